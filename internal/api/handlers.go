package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/storefront/internal/api/middleware"
	"github.com/example/storefront/internal/checkout"
	"github.com/example/storefront/internal/domain/cart"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/domain/review"
	"github.com/example/storefront/internal/domain/wishlist"
	"go.uber.org/zap"
)

// Handlers serves the storefront endpoints.
type Handlers struct {
	products  *product.Service
	carts     *cart.Service
	wishlists *wishlist.Service
	reviews   *review.Service
	log       *zap.Logger
}

func NewHandlers(products *product.Service, carts *cart.Service, wishlists *wishlist.Service, reviews *review.Service, log *zap.Logger) *Handlers {
	return &Handlers{
		products:  products,
		carts:     carts,
		wishlists: wishlists,
		reviews:   reviews,
		log:       log.Named("api"),
	}
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// pathID returns the last path segment after the given prefix.
func pathID(r *http.Request, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix), "/")
}

// GetProducts lists the catalog. Filters and sort come from query params.
func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := product.Filter{
		Search:      q.Get("search"),
		Category:    q.Get("category"),
		InStockOnly: q.Get("in_stock") == "true",
	}
	if v := q.Get("min_price"); v != "" {
		filter.MinPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("max_price"); v != "" {
		filter.MaxPrice, _ = strconv.ParseFloat(v, 64)
	}
	if v := q.Get("min_rating"); v != "" {
		filter.MinRating, _ = strconv.ParseFloat(v, 64)
	}

	products, err := h.products.List(r.Context(), filter, product.Sort(q.Get("sort")))
	if err != nil {
		respondJSONError(w, "Failed to list products", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/api/products/")
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"categories": product.Categories})
}

func (h *Handlers) GetShippingMethods(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"shipping_methods": order.ShippingMethods})
}

// cartResponse is the wire shape for cart state.
type cartResponse struct {
	Items    []cart.Item `json:"items"`
	Subtotal float64     `json:"subtotal"`
}

func newCartResponse(c *cart.Cart) cartResponse {
	return cartResponse{
		Items:    c.List(),
		Subtotal: checkout.Round2(c.Subtotal()),
	}
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromRequest(r)
	respondJSON(w, http.StatusOK, newCartResponse(h.carts.Get(r.Context(), id)))
}

// AddToCart adds one unit of a product to the shopper's cart.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.products.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}
	if !p.InStock {
		respondJSONError(w, "Product is out of stock", http.StatusConflict)
		return
	}

	id := middleware.IdentityFromRequest(r)
	c := h.carts.AddItem(r.Context(), id, cart.Product{
		ID: p.ID, Name: p.Name, Price: p.Price, Image: p.Image,
	})
	respondJSON(w, http.StatusOK, newCartResponse(c))
}

// UpdateCartItem sets a line's quantity; zero or less removes the line.
func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := pathID(r, "/api/cart/items/")
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id := middleware.IdentityFromRequest(r)
	c := h.carts.UpdateQuantity(r.Context(), id, productID, req.Quantity)
	respondJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID := pathID(r, "/api/cart/items/")
	id := middleware.IdentityFromRequest(r)
	c := h.carts.RemoveItem(r.Context(), id, productID)
	respondJSON(w, http.StatusOK, newCartResponse(c))
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromRequest(r)
	h.carts.Clear(r.Context(), id)
	respondJSON(w, http.StatusOK, cartResponse{Items: []cart.Item{}})
}

func (h *Handlers) GetWishlist(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromRequest(r)
	wl := h.wishlists.Get(r.Context(), id)
	respondJSON(w, http.StatusOK, map[string]any{"products": wl.List()})
}

func (h *Handlers) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.products.Get(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to load product", http.StatusInternalServerError)
		return
	}

	id := middleware.IdentityFromRequest(r)
	wl := h.wishlists.Add(r.Context(), id, *p)
	respondJSON(w, http.StatusOK, map[string]any{"products": wl.List()})
}

func (h *Handlers) RemoveFromWishlist(w http.ResponseWriter, r *http.Request) {
	productID := pathID(r, "/api/wishlist/")
	id := middleware.IdentityFromRequest(r)
	wl := h.wishlists.Remove(r.Context(), id, productID)
	respondJSON(w, http.StatusOK, map[string]any{"products": wl.List()})
}

// GetReviews lists a product's reviews, newest first.
func (h *Handlers) GetReviews(w http.ResponseWriter, r *http.Request) {
	productID := strings.TrimSuffix(pathID(r, "/api/products/"), "/reviews")
	reviews, err := h.reviews.ListByProduct(r.Context(), productID)
	if err != nil {
		respondJSONError(w, "Failed to list reviews", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reviews": reviews})
}

// CreateReview posts a review; requires a signed-in user.
func (h *Handlers) CreateReview(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetUserFromContext(r.Context())
	if !ok {
		respondJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	productID := strings.TrimSuffix(pathID(r, "/api/products/"), "/reviews")
	var req struct {
		Rating   int    `json:"rating"`
		Comment  string `json:"comment"`
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.reviews.Create(r.Context(), review.Review{
		ProductID: productID,
		UserID:    claims.UserID,
		UserName:  req.UserName,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		switch {
		case errors.Is(err, review.ErrInvalidRating), errors.Is(err, review.ErrEmptyComment):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, product.ErrProductNotFound):
			respondJSONError(w, "Product not found", http.StatusNotFound)
		default:
			respondJSONError(w, "Failed to create review", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusCreated, created)
}
