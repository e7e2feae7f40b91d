package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"github.com/example/storefront/internal/domain/user"
	"github.com/example/storefront/internal/domain/wishlist"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/example/storefront/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPayments struct {
	decline *payment.DeclineError
	intents int
}

func (s *stubPayments) CreateIntent(_ context.Context, amountMinor int64, _ string, _ map[string]string) (*payment.Intent, error) {
	s.intents++
	return &payment.Intent{ID: fmt.Sprintf("pi_%d", s.intents), ClientSecret: "secret"}, nil
}

func (s *stubPayments) Confirm(_ context.Context, intentID string, _ payment.Card) (*payment.Confirmation, error) {
	if s.decline != nil {
		return nil, s.decline
	}
	return &payment.Confirmation{Reference: intentID}, nil
}

type testEnv struct {
	server   *httptest.Server
	client   *http.Client
	products *product.Service
	users    *user.Service
	orders   *order.Store
	payments *stubPayments
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	docs := docstore.NewMemoryStore()

	products := product.NewService(docs, log)
	carts := cart.NewService(
		cart.NewDocstoreRepository(docs),
		cart.NewDocstoreRepository(docstore.NewMemoryStore()),
		log,
	)
	wishlists := wishlist.NewService(
		wishlist.NewDocstoreRepository(docs),
		wishlist.NewDocstoreRepository(docstore.NewMemoryStore()),
		log,
	)
	reviews := review.NewService(docs, products, log)
	users := user.NewService(docs, log)
	orders := order.NewStore(docs, nil, log)
	payments := &stubPayments{}
	orchestrator := checkout.NewOrchestrator(payments, orders, carts, log)
	jwtService := auth.NewJWTService("test-secret", 15*time.Minute, 7*24*time.Hour)

	router := NewRouter(
		NewHandlers(products, carts, wishlists, reviews, log),
		NewAuthHandlers(users, jwtService, docs, carts, wishlists, log),
		NewCheckoutHandlers(orchestrator, orders, log),
		NewAdminHandlers(products, orders, log),
		jwtService,
		log,
	)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		server:   server,
		client:   &http.Client{Jar: jar},
		products: products,
		users:    users,
		orders:   orders,
		payments: payments,
	}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (e *testEnv) seedProduct(t *testing.T, name string, price float64) string {
	t.Helper()
	p, err := e.products.Create(context.Background(), product.Product{
		Name: name, Price: price, Category: "Electronics", InStock: true,
	})
	require.NoError(t, err)
	return p.ID
}

func TestGuestCartFlow(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedProduct(t, "Wireless Headphones", 19.99)

	resp, body := env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": id})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": id})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	items := body["items"].([]any)
	require.Len(t, items, 1)
	line := items[0].(map[string]any)
	assert.Equal(t, 2.0, line["quantity"])
	assert.Equal(t, 39.98, body["subtotal"])

	// The cart rides on the guest session cookie.
	resp, body = env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"].([]any), 1)
}

func TestAddToCart_UnknownAndOutOfStock(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": "missing"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	p, err := env.products.Create(context.Background(), product.Product{
		Name: "Sold Out", Price: 5, Category: "Electronics", InStock: false,
	})
	require.NoError(t, err)

	resp, _ = env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": p.ID})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLoginMergesGuestCart(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedProduct(t, "Wireless Headphones", 19.99)

	// Build up a guest cart first.
	resp, _ := env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": id})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "jane@example.com", "password": "correct-horse", "name": "Jane",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// The account cart now holds the guest items.
	resp, body := env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["items"].([]any), 1)
}

func TestCheckoutOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedProduct(t, "Wireless Headphones", 19.99)

	resp, _ := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{
		"email": "jane@example.com", "password": "correct-horse", "name": "Jane",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": id})
	env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": id})

	resp, body := env.do(t, http.MethodPost, "/api/checkout/begin", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := body["session_id"].(string)

	resp, body = env.do(t, http.MethodPost, "/api/checkout/shipping", map[string]any{
		"session_id": sessionID,
		"address": map[string]string{
			"first_name": "Jane", "last_name": "Doe", "address": "1 Main St",
			"city": "Springfield", "state": "IL", "zip_code": "62701", "phone": "555-0100",
		},
		"shipping_method": "standard",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	totals := body["totals"].(map[string]any)
	assert.Equal(t, 39.98, totals["subtotal"])
	assert.Equal(t, 3.20, totals["tax"])
	assert.Equal(t, 43.18, totals["total"])

	resp, body = env.do(t, http.MethodPost, "/api/checkout/payment", map[string]any{
		"session_id": sessionID,
		"card":       map[string]any{"number": "4242424242424242", "exp_month": 12, "exp_year": 2030, "cvc": "123"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(checkout.StateCompleted), body["state"])
	orderID := body["order_id"].(string)
	require.NotEmpty(t, orderID)

	// Order shows up in history and the cart is empty.
	resp, body = env.do(t, http.MethodGet, "/api/orders", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["orders"].([]any), 1)

	resp, body = env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["items"])
}

func TestCheckoutDeclineOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	id := env.seedProduct(t, "Wireless Headphones", 19.99)
	env.payments.decline = &payment.DeclineError{Code: "card_declined", Message: "Your card was declined."}

	env.do(t, http.MethodPost, "/api/cart/items", map[string]string{"product_id": id})

	resp, body := env.do(t, http.MethodPost, "/api/checkout/begin", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	sessionID := body["session_id"].(string)

	resp, _ = env.do(t, http.MethodPost, "/api/checkout/shipping", map[string]any{
		"session_id": sessionID,
		"address": map[string]string{
			"first_name": "Jane", "last_name": "Doe", "address": "1 Main St",
			"city": "Springfield", "state": "IL", "zip_code": "62701", "phone": "555-0100",
		},
		"shipping_method": "standard",
		"guest_email":     "guest@example.com",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, "/api/checkout/payment", map[string]any{
		"session_id": sessionID,
		"card":       map[string]any{"number": "4000000000000002"},
	})
	require.Equal(t, http.StatusPaymentRequired, resp.StatusCode)
	assert.Equal(t, "Your card was declined.", body["error"])

	// Cart survives the decline.
	resp, body = env.do(t, http.MethodGet, "/api/cart", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["items"].([]any), 1)
}

func TestAdminEndpointsRequireRole(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, err := env.users.Register(context.Background(), "customer@example.com", "correct-horse", "Customer")
	require.NoError(t, err)
	resp, _ = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "customer@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/admin/orders", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAdminProductAndOrderManagement(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.users.RegisterAdmin(context.Background(), "admin@example.com", "correct-horse", "Admin")
	require.NoError(t, err)
	resp, _ := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{
		"email": "admin@example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.do(t, http.MethodPost, "/api/admin/products", map[string]any{
		"name": "Desk Lamp", "price": 34.5, "category": "Home & Garden", "in_stock": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	productID := body["id"].(string)

	resp, _ = env.do(t, http.MethodPut, "/api/admin/products/"+productID, map[string]any{
		"price": 29.99,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	p, err := env.products.Get(context.Background(), productID)
	require.NoError(t, err)
	assert.Equal(t, 29.99, p.Price)

	// Record an order directly and walk it through fulfillment.
	orderID, err := env.orders.Create(context.Background(), &order.Order{
		UserID:     "user-1",
		Items:      []order.Item{{ProductID: productID, Name: "Desk Lamp", Price: 29.99, Quantity: 1}},
		Subtotal:   29.99,
		Total:      29.99,
		PaymentRef: "pi_admin",
	})
	require.NoError(t, err)

	resp, _ = env.do(t, http.MethodPut, "/api/admin/orders/"+orderID+"/status", map[string]string{
		"status": "processing",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPut, "/api/admin/orders/"+orderID+"/status", map[string]string{
		"status": "delivered",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestProductListFiltersAndSort(t *testing.T) {
	env := newTestEnv(t)
	env.seedProduct(t, "Cheap Widget", 5)
	env.seedProduct(t, "Pricey Widget", 50)

	resp, body := env.do(t, http.MethodGet, "/api/products?min_price=10&sort=price-high", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	products := body["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "Pricey Widget", products[0].(map[string]any)["name"])
}
