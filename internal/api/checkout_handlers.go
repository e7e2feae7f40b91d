package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/payment"
	"go.uber.org/zap"
)

// CheckoutHandlers drives the two-step checkout over HTTP.
type CheckoutHandlers struct {
	orchestrator *checkout.Orchestrator
	orders       *order.Store
	log          *zap.Logger
}

func NewCheckoutHandlers(orchestrator *checkout.Orchestrator, orders *order.Store, log *zap.Logger) *CheckoutHandlers {
	return &CheckoutHandlers{
		orchestrator: orchestrator,
		orders:       orders,
		log:          log.Named("checkout-api"),
	}
}

// sessionResponse is the wire shape for checkout progress.
type sessionResponse struct {
	SessionID  string               `json:"session_id"`
	State      checkout.State       `json:"state"`
	Items      []order.Item         `json:"items"`
	Totals     checkout.Totals      `json:"totals"`
	Method     order.ShippingMethod `json:"shipping_method,omitempty"`
	OrderID    string               `json:"order_id,omitempty"`
	PaymentRef string               `json:"payment_ref,omitempty"`
}

func newSessionResponse(s *checkout.Session) sessionResponse {
	return sessionResponse{
		SessionID:  s.ID,
		State:      s.State,
		Items:      s.Items,
		Totals:     s.Totals.Display(),
		Method:     s.Method,
		OrderID:    s.OrderID,
		PaymentRef: s.PaymentRef,
	}
}

// Begin freezes the cart into a new checkout session.
func (h *CheckoutHandlers) Begin(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromRequest(r)
	sess, err := h.orchestrator.Begin(r.Context(), id)
	if err != nil {
		if errors.Is(err, checkout.ErrEmptyCart) {
			respondJSONError(w, "Cart is empty", http.StatusBadRequest)
			return
		}
		respondJSONError(w, "Failed to start checkout", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, newSessionResponse(sess))
}

// SubmitShipping collects the address, method and (for guests) email.
func (h *CheckoutHandlers) SubmitShipping(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID  string        `json:"session_id"`
		Address    order.Address `json:"address"`
		MethodID   string        `json:"shipping_method"`
		GuestEmail string        `json:"guest_email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.orchestrator.SubmitShipping(r.Context(), req.SessionID, checkout.ShippingInput{
		Address:    req.Address,
		MethodID:   req.MethodID,
		GuestEmail: req.GuestEmail,
	})
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

// SubmitPayment confirms the charge and records the order.
func (h *CheckoutHandlers) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string       `json:"session_id"`
		Card      payment.Card `json:"card"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.orchestrator.SubmitPayment(r.Context(), req.SessionID, req.Card)
	if err != nil {
		var decline *payment.DeclineError
		if errors.As(err, &decline) {
			// The provider's message goes to the shopper verbatim.
			respondJSON(w, http.StatusPaymentRequired, map[string]string{
				"error": decline.Message,
				"code":  decline.Code,
			})
			return
		}
		h.respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

// RetryRecord retries the order write after a post-payment failure.
func (h *CheckoutHandlers) RetryRecord(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess, err := h.orchestrator.RetryRecord(r.Context(), req.SessionID)
	if err != nil {
		h.respondCheckoutError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

// GetSession reports checkout progress.
func (h *CheckoutHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := h.orchestrator.Get(pathID(r, "/api/checkout/sessions/"))
	if err != nil {
		respondJSONError(w, "Checkout session not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, newSessionResponse(sess))
}

// GetOrders lists the signed-in user's orders.
func (h *CheckoutHandlers) GetOrders(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	orders, err := h.orders.ListByUser(r.Context(), claims.UserID)
	if err != nil {
		respondJSONError(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// GetOrder returns one order; shoppers only see their own.
func (h *CheckoutHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	o, err := h.orders.Get(r.Context(), pathID(r, "/api/orders/"))
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondJSONError(w, "Order not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load order", http.StatusInternalServerError)
		return
	}
	if o.UserID != claims.UserID && claims.Role != "admin" {
		respondJSONError(w, "Order not found", http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, o)
}

func (h *CheckoutHandlers) respondCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrSessionNotFound):
		respondJSONError(w, "Checkout session not found", http.StatusNotFound)
	case errors.Is(err, checkout.ErrInvalidState):
		respondJSONError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, checkout.ErrGuestEmailRequired),
		errors.Is(err, checkout.ErrUnknownShippingMethod):
		respondJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, checkout.ErrOrderNotRecorded):
		// The charge went through; tell the client to retry the record,
		// not the payment.
		respondJSON(w, http.StatusAccepted, map[string]string{
			"error": "Payment received; order record pending. Retry to finish.",
		})
	case errors.Is(err, payment.ErrUnavailable):
		respondJSONError(w, "Payment provider unavailable, try again shortly", http.StatusServiceUnavailable)
	default:
		if verr := err.Error(); verr != "" && len(verr) < 120 {
			respondJSONError(w, verr, http.StatusBadRequest)
			return
		}
		respondJSONError(w, "Checkout failed", http.StatusInternalServerError)
	}
}
