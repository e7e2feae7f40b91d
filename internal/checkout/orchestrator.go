package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/identity"
	"github.com/example/storefront/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type State string

const (
	StateCollectingShipping State = "collecting_shipping"
	StateCollectingPayment  State = "collecting_payment"
	StateSubmitting         State = "submitting"
	StatePaymentUnrecorded  State = "payment_unrecorded"
	StateCompleted          State = "completed"
)

const (
	// Abandoned sessions are swept after this long.
	sessionTTL    = 2 * time.Hour
	sweepInterval = 10 * time.Minute
)

var (
	ErrSessionNotFound       = errors.New("checkout session not found")
	ErrEmptyCart             = errors.New("cannot check out an empty cart")
	ErrInvalidState          = errors.New("operation not allowed in current checkout state")
	ErrGuestEmailRequired    = errors.New("guest checkout requires a contact email")
	ErrUnknownShippingMethod = errors.New("unknown shipping method")
	ErrOrderNotRecorded      = errors.New("payment captured but order not yet recorded")
)

// Session is one shopper's progress through checkout. The cart contents
// are frozen at Begin so later cart edits cannot change what gets charged.
// The orchestrator holds the session lock for the whole of each step and
// hands out copies, so callers never see a step half-applied.
type Session struct {
	mu sync.Mutex

	ID         string
	Identity   identity.Identity
	State      State
	Items      []order.Item
	Subtotal   float64
	Address    order.Address
	Method     order.ShippingMethod
	GuestEmail string
	Totals     Totals
	IntentID   string
	PaymentRef string
	OrderID    string
	CreatedAt  time.Time
}

// snapshot copies the session for callers. Items stays shared: it is
// frozen at Begin and never mutated afterwards.
func (s *Session) snapshot() *Session {
	return &Session{
		ID:         s.ID,
		Identity:   s.Identity,
		State:      s.State,
		Items:      s.Items,
		Subtotal:   s.Subtotal,
		Address:    s.Address,
		Method:     s.Method,
		GuestEmail: s.GuestEmail,
		Totals:     s.Totals,
		IntentID:   s.IntentID,
		PaymentRef: s.PaymentRef,
		OrderID:    s.OrderID,
		CreatedAt:  s.CreatedAt,
	}
}

// ShippingInput is everything the shipping step collects.
type ShippingInput struct {
	Address    order.Address
	MethodID   string
	GuestEmail string
}

// OrderRecorder is the slice of the order store checkout needs.
type OrderRecorder interface {
	Create(ctx context.Context, o *order.Order) (string, error)
}

// CartAccess is the slice of the cart service checkout needs.
type CartAccess interface {
	Get(ctx context.Context, id identity.Identity) *cart.Cart
	Clear(ctx context.Context, id identity.Identity)
}

// Orchestrator drives checkout through its states. Each step locks the
// session, validates its state, and applies the whole step before
// unlocking, so a stale or replayed request cannot double-charge or skip
// shipping collection.
type Orchestrator struct {
	payments payment.Client
	orders   OrderRecorder
	carts    CartAccess
	log      *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewOrchestrator(payments payment.Client, orders OrderRecorder, carts CartAccess, log *zap.Logger) *Orchestrator {
	o := &Orchestrator{
		payments: payments,
		orders:   orders,
		carts:    carts,
		log:      log.Named("checkout"),
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
	go o.sweep()
	return o
}

// Begin freezes the current cart into a new checkout session.
func (o *Orchestrator) Begin(ctx context.Context, id identity.Identity) (*Session, error) {
	c := o.carts.Get(ctx, id)
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	items := make([]order.Item, 0, c.Len())
	for _, it := range c.List() {
		items = append(items, order.Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Image:     it.Image,
			Quantity:  it.Quantity,
		})
	}

	sess := &Session{
		ID:        uuid.New().String(),
		Identity:  id,
		State:     StateCollectingShipping,
		Items:     items,
		Subtotal:  c.Subtotal(),
		CreatedAt: o.now(),
	}
	snap := sess.snapshot()

	o.mu.Lock()
	o.sessions[sess.ID] = sess
	o.mu.Unlock()

	o.log.Info("checkout started",
		zap.String("session", sess.ID),
		zap.String("user", id.OrderUserID()),
		zap.Int("items", len(items)))
	return snap, nil
}

func (o *Orchestrator) lookup(sessionID string) (*Session, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	sess, ok := o.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Get returns a copy of the session's current progress. A read during an
// in-flight step waits for the step to finish.
func (o *Orchestrator) Get(sessionID string) (*Session, error) {
	sess, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.snapshot(), nil
}

// SubmitShipping validates the destination, prices the order and opens a
// payment intent for the exact total. Resubmitting from the payment step
// is allowed so the shopper can go back and change the address or method.
func (o *Orchestrator) SubmitShipping(ctx context.Context, sessionID string, in ShippingInput) (*Session, error) {
	sess, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateCollectingShipping && sess.State != StateCollectingPayment {
		return nil, o.stateError(sess, "submit shipping")
	}

	if err := in.Address.Validate(); err != nil {
		return nil, err
	}
	method, ok := order.MethodByID(in.MethodID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownShippingMethod, in.MethodID)
	}
	if !sess.Identity.Authenticated() && in.GuestEmail == "" {
		return nil, ErrGuestEmailRequired
	}

	totals := Compute(sess.Subtotal, method.Price)
	intent, err := o.payments.CreateIntent(ctx, MinorUnits(totals.Total), "usd", map[string]string{
		"checkout_session": sess.ID,
		"user_id":          sess.Identity.OrderUserID(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open payment: %w", err)
	}

	sess.Address = in.Address
	sess.Method = method
	sess.GuestEmail = in.GuestEmail
	sess.Totals = totals
	sess.IntentID = intent.ID
	sess.State = StateCollectingPayment

	o.log.Info("shipping collected",
		zap.String("session", sess.ID),
		zap.String("method", method.ID),
		zap.Float64("total", Round2(totals.Total)))
	return sess.snapshot(), nil
}

// SubmitPayment confirms the payment and records the order. A decline
// returns the session to the payment step with the cart untouched. If the
// charge succeeds but the order write fails, the session parks in
// StatePaymentUnrecorded: the money has moved, so the only safe retry is
// RetryRecord, never another charge. The session stays locked across the
// provider call, so a concurrent or replayed submit waits here and then
// fails the state check instead of confirming a second charge.
func (o *Orchestrator) SubmitPayment(ctx context.Context, sessionID string, card payment.Card) (*Session, error) {
	sess, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StateCollectingPayment {
		return nil, o.stateError(sess, "submit payment")
	}
	sess.State = StateSubmitting

	conf, err := o.payments.Confirm(ctx, sess.IntentID, card)
	if err != nil {
		sess.State = StateCollectingPayment
		var decline *payment.DeclineError
		if errors.As(err, &decline) {
			o.log.Info("payment declined",
				zap.String("session", sess.ID),
				zap.String("code", decline.Code))
			return nil, decline
		}
		return nil, fmt.Errorf("payment failed: %w", err)
	}
	sess.PaymentRef = conf.Reference

	if err := o.record(ctx, sess); err != nil {
		sess.State = StatePaymentUnrecorded
		o.log.Error("payment captured but order write failed",
			zap.String("session", sess.ID),
			zap.String("payment_ref", sess.PaymentRef),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrOrderNotRecorded, err)
	}

	o.complete(ctx, sess)
	return sess.snapshot(), nil
}

// RetryRecord retries only the order write for a session whose payment
// was captured but never recorded. The order store deduplicates on the
// payment reference, so this is safe to call any number of times.
func (o *Orchestrator) RetryRecord(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := o.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.State != StatePaymentUnrecorded {
		return nil, o.stateError(sess, "retry record")
	}

	if err := o.record(ctx, sess); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOrderNotRecorded, err)
	}

	o.complete(ctx, sess)
	return sess.snapshot(), nil
}

func (o *Orchestrator) record(ctx context.Context, sess *Session) error {
	ord := &order.Order{
		UserID:            sess.Identity.OrderUserID(),
		GuestEmail:        sess.GuestEmail,
		Items:             sess.Items,
		Subtotal:          sess.Totals.Subtotal,
		Tax:               sess.Totals.Tax,
		ShippingCost:      sess.Totals.ShippingCost,
		Total:             sess.Totals.Total,
		Status:            order.StatusConfirmed,
		PaymentRef:        sess.PaymentRef,
		ShippingAddress:   sess.Address,
		ShippingMethod:    sess.Method,
		EstimatedDelivery: o.now().AddDate(0, 0, sess.Method.EstimatedDays),
	}

	id, err := o.orders.Create(ctx, ord)
	if err != nil {
		return err
	}
	sess.OrderID = id
	return nil
}

func (o *Orchestrator) complete(ctx context.Context, sess *Session) {
	o.carts.Clear(ctx, sess.Identity)
	sess.State = StateCompleted
	o.log.Info("checkout completed",
		zap.String("session", sess.ID),
		zap.String("order_id", sess.OrderID),
		zap.Float64("total", Round2(sess.Totals.Total)))
}

func (o *Orchestrator) sweep() {
	for {
		time.Sleep(sweepInterval)
		o.evictStale()
	}
}

// evictStale drops sessions nobody can come back to: completed ones and
// abandoned ones past the TTL. A session holding a captured but
// unrecorded payment is never evicted; it carries the only reference
// tying the money to the missing order.
func (o *Orchestrator) evictStale() {
	cutoff := o.now().Add(-sessionTTL)
	o.mu.Lock()
	defer o.mu.Unlock()
	for id, sess := range o.sessions {
		sess.mu.Lock()
		stale := sess.State != StatePaymentUnrecorded &&
			(sess.State == StateCompleted || sess.CreatedAt.Before(cutoff))
		sess.mu.Unlock()
		if stale {
			delete(o.sessions, id)
		}
	}
}

func (o *Orchestrator) stateError(sess *Session, op string) error {
	return fmt.Errorf("%w: cannot %s while %s", ErrInvalidState, op, sess.State)
}
