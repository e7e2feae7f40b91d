package payment

import (
	"context"
	"errors"
	"fmt"
)

var ErrUnavailable = errors.New("payment provider unavailable")

// Card carries raw card details through to the provider. It is never
// persisted anywhere.
type Card struct {
	Number   string `json:"number"`
	ExpMonth int    `json:"exp_month"`
	ExpYear  int    `json:"exp_year"`
	CVC      string `json:"cvc"`
}

// Intent is a provider-side payment awaiting confirmation.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// Confirmation is the proof of a captured payment. Reference is the
// provider's identifier and keys the order record.
type Confirmation struct {
	Reference string `json:"reference"`
}

// DeclineError is a rejection by the card issuer. The provider's message
// passes through verbatim so the shopper sees the real reason.
type DeclineError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("payment declined (%s): %s", e.Code, e.Message)
}

// Client is the gateway boundary used by checkout.
type Client interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	Confirm(ctx context.Context, intentID string, card Card) (*Confirmation, error)
}
