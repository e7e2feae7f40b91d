package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/identity"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/example/storefront/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePayments struct {
	createCalls  int
	confirmCalls int
	decline      *payment.DeclineError
	lastAmount   int64
}

func (f *fakePayments) CreateIntent(_ context.Context, amountMinor int64, _ string, _ map[string]string) (*payment.Intent, error) {
	f.createCalls++
	f.lastAmount = amountMinor
	return &payment.Intent{ID: fmt.Sprintf("pi_%d", f.createCalls), ClientSecret: "secret"}, nil
}

func (f *fakePayments) Confirm(_ context.Context, intentID string, _ payment.Card) (*payment.Confirmation, error) {
	f.confirmCalls++
	if f.decline != nil {
		return nil, f.decline
	}
	return &payment.Confirmation{Reference: intentID}, nil
}

type fakeOrders struct {
	createCalls int
	failures    int
	byRef       map[string]string
	created     []*order.Order
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{byRef: map[string]string{}}
}

func (f *fakeOrders) Create(_ context.Context, o *order.Order) (string, error) {
	f.createCalls++
	if f.failures > 0 {
		f.failures--
		return "", errors.New("store unavailable")
	}
	if id, ok := f.byRef[o.PaymentRef]; ok {
		return id, nil
	}
	id := fmt.Sprintf("order-%d", len(f.created)+1)
	o.ID = id
	f.byRef[o.PaymentRef] = id
	f.created = append(f.created, o)
	return id, nil
}

func shippedTo() order.Address {
	return order.Address{
		FirstName: "Jane", LastName: "Doe", Address: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Phone: "555-0100",
	}
}

func newTestCarts(t *testing.T) *cart.Service {
	t.Helper()
	users := cart.NewDocstoreRepository(docstore.NewMemoryStore())
	guests := cart.NewDocstoreRepository(docstore.NewMemoryStore())
	return cart.NewService(users, guests, zap.NewNop())
}

func seedCart(t *testing.T, carts *cart.Service, id identity.Identity) {
	t.Helper()
	p := cart.Product{ID: "p1", Name: "Wireless Headphones", Price: 19.99}
	carts.AddItem(context.Background(), id, p)
	carts.AddItem(context.Background(), id, p)
}

func TestBegin_RejectsEmptyCart(t *testing.T) {
	o := NewOrchestrator(&fakePayments{}, newFakeOrders(), newTestCarts(t), zap.NewNop())

	_, err := o.Begin(context.Background(), identity.Identity{UserID: "user-1"})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestSubmitShipping_ValidatesAddress(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	o := NewOrchestrator(&fakePayments{}, newFakeOrders(), carts, zap.NewNop())

	sess, err := o.Begin(context.Background(), shopper)
	require.NoError(t, err)

	addr := shippedTo()
	addr.Phone = ""
	_, err = o.SubmitShipping(context.Background(), sess.ID, ShippingInput{Address: addr, MethodID: "standard"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "phone")

	cur, err := o.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCollectingShipping, cur.State)
}

func TestSubmitShipping_RejectsUnknownMethod(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	o := NewOrchestrator(&fakePayments{}, newFakeOrders(), carts, zap.NewNop())

	sess, err := o.Begin(context.Background(), shopper)
	require.NoError(t, err)

	_, err = o.SubmitShipping(context.Background(), sess.ID, ShippingInput{Address: shippedTo(), MethodID: "drone"})
	assert.ErrorIs(t, err, ErrUnknownShippingMethod)
}

func TestCheckout_SuccessPath(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1", Email: "jane@example.com"}
	seedCart(t, carts, shopper)
	pay := &fakePayments{}
	orders := newFakeOrders()
	o := NewOrchestrator(pay, orders, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)

	sess, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	require.NoError(t, err)
	assert.Equal(t, StateCollectingPayment, sess.State)
	assert.Equal(t, int64(4318), pay.lastAmount)

	sess, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, sess.State)
	require.NotEmpty(t, sess.OrderID)

	require.Len(t, orders.created, 1)
	recorded := orders.created[0]
	assert.Equal(t, "user-1", recorded.UserID)
	assert.Equal(t, order.StatusConfirmed, recorded.Status)
	assert.Equal(t, 43.18, Round2(recorded.Total))
	assert.Equal(t, sess.PaymentRef, recorded.PaymentRef)

	assert.True(t, carts.Get(ctx, shopper).IsEmpty(), "cart should be cleared after checkout")
}

func TestCheckout_DeclineReturnsToPaymentStep(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	pay := &fakePayments{decline: &payment.DeclineError{Code: "card_declined", Message: "Your card was declined."}}
	orders := newFakeOrders()
	o := NewOrchestrator(pay, orders, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)
	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "express"})
	require.NoError(t, err)

	_, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4000000000000002"})
	var decline *payment.DeclineError
	require.ErrorAs(t, err, &decline)
	assert.Equal(t, "Your card was declined.", decline.Message)

	cur, err := o.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCollectingPayment, cur.State)
	assert.Empty(t, orders.created, "no order may exist for a declined payment")
	assert.False(t, carts.Get(ctx, shopper).IsEmpty(), "cart must survive a decline")

	// The shopper retries with a working card on the same session.
	pay.decline = nil
	sess, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, sess.State)
}

func TestCheckout_OrderWriteFailureParksWithoutRecharging(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	pay := &fakePayments{}
	orders := newFakeOrders()
	orders.failures = 1
	o := NewOrchestrator(pay, orders, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)
	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	require.NoError(t, err)

	_, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.ErrorIs(t, err, ErrOrderNotRecorded)
	cur, err := o.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatePaymentUnrecorded, cur.State)
	assert.Equal(t, 1, pay.confirmCalls)

	// Submitting payment again is refused outright.
	_, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, 1, pay.confirmCalls, "a captured payment must never be confirmed twice")

	sess, err = o.RetryRecord(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, sess.State)
	require.Len(t, orders.created, 1)
	assert.Equal(t, sess.PaymentRef, orders.created[0].PaymentRef)
	assert.Equal(t, 1, pay.confirmCalls)
}

func TestRetryRecord_IsIdempotentAgainstRealStore(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	store := order.NewStore(docstore.NewMemoryStore(), nil, zap.NewNop())
	o := NewOrchestrator(&fakePayments{}, store, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)
	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	require.NoError(t, err)
	sess, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.NoError(t, err)

	// A replayed record for the same payment reference reuses the order.
	dup := &order.Order{
		UserID:     "user-1",
		Items:      sess.Items,
		Subtotal:   sess.Totals.Subtotal,
		Tax:        sess.Totals.Tax,
		Total:      sess.Totals.Total,
		PaymentRef: sess.PaymentRef,
	}
	id, err := store.Create(ctx, dup)
	require.NoError(t, err)
	assert.Equal(t, sess.OrderID, id)

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCheckout_GuestRecordsContactEmail(t *testing.T) {
	carts := newTestCarts(t)
	guest := identity.Identity{SessionID: "sess-1"}
	seedCart(t, carts, guest)
	orders := newFakeOrders()
	o := NewOrchestrator(&fakePayments{}, orders, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, guest)
	require.NoError(t, err)

	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	assert.ErrorIs(t, err, ErrGuestEmailRequired)

	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{
		Address: shippedTo(), MethodID: "standard", GuestEmail: "guest@example.com",
	})
	require.NoError(t, err)

	sess, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.NoError(t, err)

	require.Len(t, orders.created, 1)
	assert.Equal(t, "guest", orders.created[0].UserID)
	assert.Equal(t, "guest@example.com", orders.created[0].GuestEmail)
}

func TestSubmitPayment_ConcurrentSubmitsConfirmOnce(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	pay := &fakePayments{}
	orders := newFakeOrders()
	o := NewOrchestrator(pay, orders, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)
	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	require.NoError(t, err)

	// A double-clicked pay button lands as two simultaneous submits. The
	// second must lose the state check, not confirm the charge again.
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, pay.confirmCalls, "exactly one confirmation may reach the provider")
	require.Len(t, orders.created, 1)

	if errs[0] == nil {
		assert.ErrorIs(t, errs[1], ErrInvalidState)
	} else {
		assert.ErrorIs(t, errs[0], ErrInvalidState)
		require.NoError(t, errs[1])
	}

	cur, err := o.Get(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, cur.State)
}

func TestEvictStale_DropsAbandonedSessions(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	o := NewOrchestrator(&fakePayments{}, newFakeOrders(), carts, zap.NewNop())

	sess, err := o.Begin(context.Background(), shopper)
	require.NoError(t, err)

	o.now = func() time.Time { return time.Now().Add(sessionTTL + time.Minute) }
	o.evictStale()

	_, err = o.Get(sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEvictStale_KeepsUnrecordedPayment(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	orders := newFakeOrders()
	orders.failures = 1
	o := NewOrchestrator(&fakePayments{}, orders, carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)
	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	require.NoError(t, err)
	_, err = o.SubmitPayment(ctx, sess.ID, payment.Card{Number: "4242424242424242"})
	require.ErrorIs(t, err, ErrOrderNotRecorded)

	// However old it gets, a session whose money moved but whose order was
	// never written must stay reachable for RetryRecord.
	o.now = func() time.Time { return time.Now().Add(24 * time.Hour) }
	o.evictStale()

	sess, err = o.RetryRecord(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StateCompleted, sess.State)
}

func TestSubmitShipping_ChangingMethodReprices(t *testing.T) {
	carts := newTestCarts(t)
	shopper := identity.Identity{UserID: "user-1"}
	seedCart(t, carts, shopper)
	pay := &fakePayments{}
	o := NewOrchestrator(pay, newFakeOrders(), carts, zap.NewNop())
	ctx := context.Background()

	sess, err := o.Begin(ctx, shopper)
	require.NoError(t, err)

	_, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "standard"})
	require.NoError(t, err)
	standardAmount := pay.lastAmount

	sess, err = o.SubmitShipping(ctx, sess.ID, ShippingInput{Address: shippedTo(), MethodID: "overnight"})
	require.NoError(t, err)
	assert.Equal(t, "overnight", sess.Method.ID)
	assert.Greater(t, pay.lastAmount, standardAmount)
	assert.Equal(t, 2, pay.createCalls)
}
