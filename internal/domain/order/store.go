package order

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const collection = "orders"

// totalsEpsilon absorbs float representation noise when checking the
// subtotal/tax/shipping/total invariant.
const totalsEpsilon = 1e-6

// EventPublisher pushes order events onto the fulfillment topic.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Store is the append-only order record store. Orders are created exactly
// once per payment reference and never deleted; only status transitions
// mutate a record afterwards.
type Store struct {
	docs      docstore.Store
	publisher EventPublisher
	log       *zap.Logger
}

func NewStore(docs docstore.Store, publisher EventPublisher, log *zap.Logger) *Store {
	return &Store{docs: docs, publisher: publisher, log: log.Named("order")}
}

// Create assigns an id and creation time and persists the order. Calling
// it again with the same payment reference returns the already recorded
// order id instead of writing a duplicate, which makes the post-payment
// record retry safe.
func (s *Store) Create(ctx context.Context, o *Order) (string, error) {
	if len(o.Items) == 0 {
		return "", ErrEmptyOrder
	}
	if math.Abs(o.Total-(o.Subtotal+o.ShippingCost+o.Tax)) > totalsEpsilon {
		return "", ErrInconsistentTotals
	}

	if o.PaymentRef != "" {
		if existing, err := s.FindByPaymentRef(ctx, o.PaymentRef); err == nil {
			s.log.Info("order already recorded for payment, reusing",
				zap.String("order_id", existing.ID),
				zap.String("payment_ref", o.PaymentRef))
			return existing.ID, nil
		} else if !errors.Is(err, ErrOrderNotFound) {
			return "", err
		}
	}

	o.ID = uuid.New().String()
	o.CreatedAt = time.Now()
	if o.Status == "" {
		o.Status = StatusConfirmed
	}

	if err := s.docs.Set(ctx, collection, o.ID, o); err != nil {
		return "", fmt.Errorf("failed to write order: %w", err)
	}

	s.publish(ctx, Envelope{
		EventType:  EventOrderCreated,
		OrderID:    o.ID,
		OccurredAt: o.CreatedAt,
		UserID:     o.UserID,
		Email:      o.GuestEmail,
		Total:      o.Total,
		Items:      o.Items,
	})

	s.log.Info("order recorded",
		zap.String("order_id", o.ID),
		zap.String("user_id", o.UserID),
		zap.Float64("total", o.Total))
	return o.ID, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Order, error) {
	var o Order
	if err := s.docs.Get(ctx, collection, id, &o); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByPaymentRef locates the order recorded for a payment confirmation.
func (s *Store) FindByPaymentRef(ctx context.Context, paymentRef string) (*Order, error) {
	var orders []Order
	err := s.docs.Query(ctx, collection, docstore.Query{
		Filters: map[string]string{"payment_ref": paymentRef},
		Limit:   1,
	}, &orders)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrOrderNotFound
	}
	return &orders[0], nil
}

// ListByUser returns a user's orders, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var orders []Order
	err := s.docs.Query(ctx, collection, docstore.Query{
		Filters:    map[string]string{"user_id": userID},
		OrderBy:    "created_at",
		Descending: true,
	}, &orders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// ListAll returns every order, newest first, for the admin view.
func (s *Store) ListAll(ctx context.Context) ([]Order, error) {
	var orders []Order
	err := s.docs.Query(ctx, collection, docstore.Query{
		OrderBy:    "created_at",
		Descending: true,
	}, &orders)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus applies a fulfillment transition.
func (s *Store) UpdateStatus(ctx context.Context, id string, target Status) error {
	o, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !o.CanTransitionTo(target) {
		return o.transitionError(target)
	}

	if err := s.docs.Update(ctx, collection, id, map[string]any{"status": string(target)}); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	s.publish(ctx, Envelope{
		EventType:  EventOrderStatusChanged,
		OrderID:    id,
		OccurredAt: time.Now(),
		UserID:     o.UserID,
		Email:      o.GuestEmail,
		From:       o.Status,
		To:         target,
	})

	s.log.Info("order status changed",
		zap.String("order_id", id),
		zap.String("from", string(o.Status)),
		zap.String("to", string(target)))
	return nil
}

// publish is fire-and-forget: a lost event never fails the order write.
func (s *Store) publish(ctx context.Context, e Envelope) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e.OrderID, e); err != nil {
		s.log.Warn("failed to publish order event",
			zap.String("event_type", e.EventType),
			zap.String("order_id", e.OrderID),
			zap.Error(err))
	}
}
