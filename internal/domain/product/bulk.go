package product

import (
	"context"
	"errors"
	"fmt"
)

// descriptionTemplates drives the admin bulk description tool, one stock
// blurb per category.
var descriptionTemplates = map[string]string{
	"Electronics":   "Cutting-edge technology meets premium design in this exceptional electronic device. Built for performance and reliability.",
	"Clothing":      "Crafted from premium materials with attention to detail, this clothing item combines style, comfort, and durability.",
	"Home & Garden": "Transform your living space with this carefully designed home and garden essential. Quality meets functionality.",
	"Sports":        "Engineered for performance and built to last, this sports equipment helps you achieve your fitness goals.",
	"Beauty":        "Discover the perfect blend of luxury and effectiveness in this premium beauty product.",
	"Books":         "Expand your knowledge and imagination with this carefully curated literary work.",
	"Toys":          "Safe, educational, and fun - this toy is designed to inspire creativity and learning.",
	"Automotive":    "Enhance your driving experience with this high-quality automotive accessory.",
}

const fallbackTemplateCategory = "Electronics"

// TemplateDescription produces the generated description for a product.
func TemplateDescription(p Product) string {
	tpl, ok := descriptionTemplates[p.Category]
	if !ok {
		tpl = descriptionTemplates[fallbackTemplateCategory]
	}
	return fmt.Sprintf("%s - %s Perfect for those who appreciate quality and innovation.", p.Name, tpl)
}

// ApplyTemplates regenerates descriptions for the selected product ids.
// Unknown ids are skipped. Returns the number of products updated.
func (s *Service) ApplyTemplates(ctx context.Context, ids []string) (int, error) {
	updated := 0
	for _, id := range ids {
		p, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				continue
			}
			return updated, err
		}
		if err := s.Update(ctx, id, map[string]any{"description": TemplateDescription(*p)}); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}
