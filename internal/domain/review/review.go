package review

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"go.uber.org/zap"
)

const collection = "reviews"

var (
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
	ErrEmptyComment  = errors.New("review comment is required")
)

type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

// Service stores reviews and folds each new rating into the product's
// aggregate rating.
type Service struct {
	docs     docstore.Store
	products *product.Service
	log      *zap.Logger
}

func NewService(docs docstore.Store, products *product.Service, log *zap.Logger) *Service {
	return &Service{docs: docs, products: products, log: log.Named("review")}
}

func (s *Service) Create(ctx context.Context, r Review) (*Review, error) {
	if r.Rating < 1 || r.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if r.Comment == "" {
		return nil, ErrEmptyComment
	}
	if _, err := s.products.Get(ctx, r.ProductID); err != nil {
		return nil, err
	}

	r.CreatedAt = time.Now()
	id, err := s.docs.Create(ctx, collection, r)
	if err != nil {
		return nil, fmt.Errorf("failed to save review: %w", err)
	}
	r.ID = id

	if err := s.products.AddRating(ctx, r.ProductID, r.Rating); err != nil {
		s.log.Warn("review saved but product rating not updated",
			zap.String("product_id", r.ProductID), zap.Error(err))
	}

	s.log.Info("review created",
		zap.String("product_id", r.ProductID),
		zap.Int("rating", r.Rating))
	return &r, nil
}

// ListByProduct returns a product's reviews, newest first.
func (s *Service) ListByProduct(ctx context.Context, productID string) ([]Review, error) {
	var reviews []Review
	err := s.docs.Query(ctx, collection, docstore.Query{
		Filters:    map[string]string{"product_id": productID},
		OrderBy:    "created_at",
		Descending: true,
	}, &reviews)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	return reviews, nil
}
