package product

import (
	"sort"
	"strings"
	"time"
)

// Categories recognized by the storefront.
var Categories = []string{
	"Electronics", "Clothing", "Home & Garden", "Sports",
	"Books", "Beauty", "Toys", "Automotive",
}

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	OriginalPrice float64   `json:"original_price,omitempty"`
	Image         string    `json:"image"`
	Category      string    `json:"category"`
	Rating        float64   `json:"rating"`
	ReviewCount   int       `json:"review_count"`
	InStock       bool      `json:"in_stock"`
	Featured      bool      `json:"featured"`
	Discount      int       `json:"discount,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Filter narrows a product listing. Zero values mean "no constraint".
type Filter struct {
	Search      string
	Category    string
	MinPrice    float64
	MaxPrice    float64
	MinRating   float64
	InStockOnly bool
}

type Sort string

const (
	SortName      Sort = "name"
	SortPriceLow  Sort = "price-low"
	SortPriceHigh Sort = "price-high"
	SortRating    Sort = "rating"
	SortNewest    Sort = "newest"
)

func (f Filter) matches(p Product) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			return false
		}
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if p.Rating < f.MinRating {
		return false
	}
	if f.InStockOnly && !p.InStock {
		return false
	}
	return true
}

// Apply filters a product list, preserving input order.
func (f Filter) Apply(products []Product) []Product {
	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if f.matches(p) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SortProducts orders products in place. Unknown sorts fall back to name.
func SortProducts(products []Product, by Sort) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch by {
		case SortPriceLow:
			return a.Price < b.Price
		case SortPriceHigh:
			return b.Price < a.Price
		case SortRating:
			return b.Rating < a.Rating
		case SortNewest:
			return a.CreatedAt.After(b.CreatedAt)
		default:
			return a.Name < b.Name
		}
	})
}
