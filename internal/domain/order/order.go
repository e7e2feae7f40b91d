package order

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrEmptyOrder         = errors.New("order must have at least one item")
	ErrInvalidStatus      = errors.New("invalid order status transition")
	ErrInconsistentTotals = errors.New("order totals do not add up")
)

// validTransitions defines allowed fulfillment transitions. Orders enter
// as confirmed (payment already captured); pending exists for imports from
// legacy records.
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusConfirmed, StatusProcessing},
	StatusConfirmed:  {StatusProcessing},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {}, // terminal state
}

// CanTransitionTo checks if the order can move to the target status.
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

func (o *Order) transitionError(target Status) error {
	return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidStatus, o.Status, target)
}

// Item is a cart line frozen into the order at checkout time.
type Item struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	Quantity  int     `json:"quantity"`
}

// Address is the structured shipping destination. Validate enforces the
// checkout-required fields; Company and Apartment stay optional.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company,omitempty"`
	Address   string `json:"address"`
	Apartment string `json:"apartment,omitempty"`
	City      string `json:"city"`
	State     string `json:"state"`
	ZipCode   string `json:"zip_code"`
	Country   string `json:"country"`
	Phone     string `json:"phone"`
}

// Validate reports the first missing required field.
func (a Address) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"firstName", a.FirstName},
		{"lastName", a.LastName},
		{"address", a.Address},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
		{"phone", a.Phone},
	}
	for _, f := range required {
		if f.value == "" {
			return fmt.Errorf("missing required shipping field: %s", f.name)
		}
	}
	return nil
}

type ShippingMethod struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	Price         float64 `json:"price"`
	EstimatedDays int     `json:"estimated_days"`
}

// ShippingMethods are the options offered at checkout.
var ShippingMethods = []ShippingMethod{
	{ID: "standard", Name: "Standard Shipping", Description: "5-7 business days", Price: 0, EstimatedDays: 7},
	{ID: "express", Name: "Express Shipping", Description: "2-3 business days", Price: 9.99, EstimatedDays: 3},
	{ID: "overnight", Name: "Overnight Shipping", Description: "Next business day", Price: 24.99, EstimatedDays: 1},
}

func MethodByID(id string) (ShippingMethod, bool) {
	for _, m := range ShippingMethods {
		if m.ID == id {
			return m, true
		}
	}
	return ShippingMethod{}, false
}

// Order is the immutable record of a completed purchase. Only Status ever
// changes after creation, through the fulfillment transitions above.
type Order struct {
	ID                string         `json:"id"`
	UserID            string         `json:"user_id"`
	GuestEmail        string         `json:"guest_email,omitempty"`
	Items             []Item         `json:"items"`
	Subtotal          float64        `json:"subtotal"`
	Tax               float64        `json:"tax"`
	ShippingCost      float64        `json:"shipping_cost"`
	Total             float64        `json:"total"`
	Status            Status         `json:"status"`
	PaymentRef        string         `json:"payment_ref"`
	ShippingAddress   Address        `json:"shipping_address"`
	ShippingMethod    ShippingMethod `json:"shipping_method"`
	CreatedAt         time.Time      `json:"created_at"`
	EstimatedDelivery time.Time      `json:"estimated_delivery"`
}
