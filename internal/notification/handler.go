package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/identity"
	"go.uber.org/zap"
)

// Mailer is the slice of the email service the notifier needs.
type Mailer interface {
	SendOrderConfirmation(to, orderID string, total float64, items []email.OrderItem) error
	SendStatusUpdate(to, orderID, status string) error
}

// Handler turns order events into shopper emails. Guest orders carry the
// contact email in the event; account orders resolve it from the user
// record.
type Handler struct {
	mailer Mailer
	users  *user.Service
	log    *zap.Logger
}

func NewHandler(mailer Mailer, users *user.Service, log *zap.Logger) *Handler {
	return &Handler{mailer: mailer, users: users, log: log.Named("notifier")}
}

// HandleEvent processes one message from the order topic.
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var e order.Envelope
	if err := json.Unmarshal(value, &e); err != nil {
		return fmt.Errorf("failed to unmarshal order event: %w", err)
	}

	switch e.EventType {
	case order.EventOrderCreated:
		return h.handleCreated(ctx, e)
	case order.EventOrderStatusChanged:
		return h.handleStatusChanged(ctx, e)
	default:
		h.log.Debug("ignoring event", zap.String("event_type", e.EventType))
		return nil
	}
}

func (h *Handler) handleCreated(ctx context.Context, e order.Envelope) error {
	to, err := h.recipient(ctx, e)
	if err != nil || to == "" {
		return err
	}

	items := make([]email.OrderItem, len(e.Items))
	for i, it := range e.Items {
		items[i] = email.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}

	if err := h.mailer.SendOrderConfirmation(to, e.OrderID, e.Total, items); err != nil {
		return fmt.Errorf("failed to send order confirmation: %w", err)
	}
	h.log.Info("order confirmation sent",
		zap.String("order_id", e.OrderID), zap.String("to", to))
	return nil
}

func (h *Handler) handleStatusChanged(ctx context.Context, e order.Envelope) error {
	to, err := h.recipient(ctx, e)
	if err != nil || to == "" {
		return err
	}

	if err := h.mailer.SendStatusUpdate(to, e.OrderID, string(e.To)); err != nil {
		return fmt.Errorf("failed to send status update: %w", err)
	}
	h.log.Info("status update sent",
		zap.String("order_id", e.OrderID),
		zap.String("status", string(e.To)),
		zap.String("to", to))
	return nil
}

// recipient resolves the address to notify. A missing address is not an
// error: the event is logged and skipped rather than retried forever.
func (h *Handler) recipient(ctx context.Context, e order.Envelope) (string, error) {
	if e.Email != "" {
		return e.Email, nil
	}
	if e.UserID == "" || e.UserID == identity.GuestUserID {
		h.log.Warn("order event has no contact email",
			zap.String("order_id", e.OrderID))
		return "", nil
	}

	u, err := h.users.Get(ctx, e.UserID)
	if errors.Is(err, user.ErrUserNotFound) {
		h.log.Warn("order event for unknown user",
			zap.String("order_id", e.OrderID),
			zap.String("user_id", e.UserID))
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.Email, nil
}
