package product

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/storefront/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

const collection = "products"

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidName     = errors.New("product name is required")
	ErrInvalidPrice    = errors.New("product price must not be negative")
)

// Service owns the product catalog on top of the document store.
type Service struct {
	docs docstore.Store
	log  *zap.Logger
}

func NewService(docs docstore.Store, log *zap.Logger) *Service {
	return &Service{docs: docs, log: log.Named("product")}
}

// List returns catalog entries matching the filter, sorted as requested.
// Search, range and rating filters run in memory over the collection; the
// catalog is small and the document store only filters on equality.
func (s *Service) List(ctx context.Context, f Filter, by Sort) ([]Product, error) {
	var products []Product
	if err := s.docs.Query(ctx, collection, docstore.Query{}, &products); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	products = f.Apply(products)
	SortProducts(products, by)
	return products, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	var p Product
	if err := s.docs.Get(ctx, collection, id, &p); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *Service) Create(ctx context.Context, p Product) (*Product, error) {
	if p.Name == "" {
		return nil, ErrInvalidName
	}
	if p.Price < 0 {
		return nil, ErrInvalidPrice
	}
	p.CreatedAt = time.Now()

	id, err := s.docs.Create(ctx, collection, p)
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	p.ID = id
	s.log.Info("product created", zap.String("product_id", id), zap.String("name", p.Name))
	return &p, nil
}

// Update merges partial fields into a product record and stamps updated_at.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	if price, ok := fields["price"].(float64); ok && price < 0 {
		return ErrInvalidPrice
	}
	fields["updated_at"] = time.Now().Format(time.RFC3339Nano)
	if err := s.docs.Update(ctx, collection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.docs.Delete(ctx, collection, id); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.log.Info("product deleted", zap.String("product_id", id))
	return nil
}

// AddRating folds a new review rating into the product's aggregates.
func (s *Service) AddRating(ctx context.Context, id string, rating int) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	count := p.ReviewCount + 1
	avg := (p.Rating*float64(p.ReviewCount) + float64(rating)) / float64(count)
	avg = math.Round(avg*10) / 10

	return s.Update(ctx, id, map[string]any{
		"rating":       avg,
		"review_count": count,
	})
}
