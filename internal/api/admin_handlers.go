package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/domain/product"
	"go.uber.org/zap"
)

// AdminHandlers serves the back-office endpoints: catalog management,
// CSV tooling and order fulfillment. Everything here sits behind
// RequireRole("admin").
type AdminHandlers struct {
	products *product.Service
	orders   *order.Store
	log      *zap.Logger
}

func NewAdminHandlers(products *product.Service, orders *order.Store, log *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		products: products,
		orders:   orders,
		log:      log.Named("admin"),
	}
}

func (h *AdminHandlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var p product.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	created, err := h.products.Create(r.Context(), p)
	if err != nil {
		if errors.Is(err, product.ErrInvalidName) || errors.Is(err, product.ErrInvalidPrice) {
			respondJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		respondJSONError(w, "Failed to create product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *AdminHandlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/api/admin/products/")
	var fields map[string]any
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.products.Update(r.Context(), id, fields); err != nil {
		switch {
		case errors.Is(err, product.ErrProductNotFound):
			respondJSONError(w, "Product not found", http.StatusNotFound)
		case errors.Is(err, product.ErrInvalidPrice):
			respondJSONError(w, err.Error(), http.StatusBadRequest)
		default:
			respondJSONError(w, "Failed to update product", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product updated"})
}

func (h *AdminHandlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "/api/admin/products/")
	if err := h.products.Delete(r.Context(), id); err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			respondJSONError(w, "Product not found", http.StatusNotFound)
			return
		}
		respondJSONError(w, "Failed to delete product", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted"})
}

// ExportCSV streams the catalog as a spreadsheet for offline editing.
func (h *AdminHandlers) ExportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), product.Filter{}, product.SortName)
	if err != nil {
		respondJSONError(w, "Failed to list products", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	if err := product.WriteCSV(w, products); err != nil {
		h.log.Error("CSV export failed", zap.Error(err))
	}
}

// ImportCSV reads an edited sheet back in and applies description changes.
func (h *AdminHandlers) ImportCSV(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), product.Filter{}, product.SortName)
	if err != nil {
		respondJSONError(w, "Failed to list products", http.StatusInternalServerError)
		return
	}

	updates, err := product.ParseDescriptionCSV(r.Body, products)
	if err != nil {
		respondJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.products.UpdateDescriptions(r.Context(), updates); err != nil {
		respondJSONError(w, "Failed to apply updates", http.StatusInternalServerError)
		return
	}

	h.log.Info("CSV import applied", zap.Int("updated", len(updates)))
	respondJSON(w, http.StatusOK, map[string]any{"updated": len(updates)})
}

// ApplyTemplates regenerates descriptions from the per-category templates.
// An empty id list means the whole catalog.
func (h *AdminHandlers) ApplyTemplates(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductIDs []string `json:"product_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ids := req.ProductIDs
	if len(ids) == 0 {
		products, err := h.products.List(r.Context(), product.Filter{}, product.SortName)
		if err != nil {
			respondJSONError(w, "Failed to list products", http.StatusInternalServerError)
			return
		}
		for _, p := range products {
			ids = append(ids, p.ID)
		}
	}

	updated, err := h.products.ApplyTemplates(r.Context(), ids)
	if err != nil {
		respondJSONError(w, "Failed to apply templates", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"updated": updated})
}

// GetAllOrders lists every order for the fulfillment view.
func (h *AdminHandlers) GetAllOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListAll(r.Context())
	if err != nil {
		respondJSONError(w, "Failed to list orders", http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

// UpdateOrderStatus applies a fulfillment transition.
func (h *AdminHandlers) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(pathID(r, "/api/admin/orders/"), "/status")
	var req struct {
		Status order.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), id, req.Status); err != nil {
		switch {
		case errors.Is(err, order.ErrOrderNotFound):
			respondJSONError(w, "Order not found", http.StatusNotFound)
		case errors.Is(err, order.ErrInvalidStatus):
			respondJSONError(w, err.Error(), http.StatusConflict)
		default:
			respondJSONError(w, "Failed to update order", http.StatusInternalServerError)
		}
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order updated"})
}
