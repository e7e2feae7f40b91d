package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

// Gateway talks to a Stripe-style payment intents API. All calls run
// through a circuit breaker so a dying provider fails fast instead of
// holding checkout requests open.
type Gateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	breaker   *gobreaker.CircuitBreaker[*apiResponse]
	log       *zap.Logger
}

type apiResponse struct {
	status int
	body   []byte
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func NewGateway(baseURL, secretKey string, log *zap.Logger) *Gateway {
	breaker := gobreaker.NewCircuitBreaker[*apiResponse](gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &Gateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		breaker:   breaker,
		log:       log.Named("payment"),
	}
}

func (g *Gateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	resp, err := g.post(ctx, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}

	var intent Intent
	if err := json.Unmarshal(resp, &intent); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	g.log.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount_minor", amountMinor))
	return &intent, nil
}

func (g *Gateway) Confirm(ctx context.Context, intentID string, card Card) (*Confirmation, error) {
	form := url.Values{}
	form.Set("payment_method_data[type]", "card")
	form.Set("payment_method_data[card][number]", card.Number)
	form.Set("payment_method_data[card][exp_month]", strconv.Itoa(card.ExpMonth))
	form.Set("payment_method_data[card][exp_year]", strconv.Itoa(card.ExpYear))
	form.Set("payment_method_data[card][cvc]", card.CVC)

	resp, err := g.post(ctx, "/v1/payment_intents/"+intentID+"/confirm", form)
	if err != nil {
		return nil, err
	}

	var confirmed Intent
	if err := json.Unmarshal(resp, &confirmed); err != nil {
		return nil, fmt.Errorf("failed to decode payment confirmation: %w", err)
	}
	g.log.Info("payment captured", zap.String("intent_id", confirmed.ID))
	return &Confirmation{Reference: confirmed.ID}, nil
}

// post runs the request through the breaker. Card declines are issuer
// answers, not provider failures, so they do not count against the
// breaker; only transport errors and 5xx responses do.
func (g *Gateway) post(ctx context.Context, path string, form url.Values) ([]byte, error) {
	resp, err := g.breaker.Execute(func() (*apiResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+g.secretKey)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		res, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer res.Body.Close()

		body, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}
		if res.StatusCode >= 500 {
			return nil, fmt.Errorf("payment provider returned %d", res.StatusCode)
		}
		return &apiResponse{status: res.StatusCode, body: body}, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.log.Warn("payment circuit open, rejecting request")
			return nil, ErrUnavailable
		}
		return nil, fmt.Errorf("payment request failed: %w", err)
	}

	if resp.status >= 400 {
		var apiErr apiError
		if jsonErr := json.Unmarshal(resp.body, &apiErr); jsonErr == nil && apiErr.Error.Message != "" {
			return nil, &DeclineError{Code: apiErr.Error.Code, Message: apiErr.Error.Message}
		}
		return nil, fmt.Errorf("payment request rejected with status %d", resp.status)
	}
	return resp.body, nil
}
