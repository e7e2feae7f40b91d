package order

import "time"

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Envelope wraps order events for the fulfillment topic.
type Envelope struct {
	EventType  string    `json:"event_type"`
	OrderID    string    `json:"order_id"`
	OccurredAt time.Time `json:"occurred_at"`

	// OrderCreated fields
	UserID string  `json:"user_id,omitempty"`
	Email  string  `json:"email,omitempty"`
	Total  float64 `json:"total,omitempty"`
	Items  []Item  `json:"items,omitempty"`

	// OrderStatusChanged fields
	From Status `json:"from,omitempty"`
	To   Status `json:"to,omitempty"`
}
