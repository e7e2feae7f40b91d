package wishlist

import (
	"sort"
	"time"

	"github.com/example/storefront/internal/domain/product"
)

// Item is a saved product snapshot. No quantity; a product is either on
// the list or not.
type Item struct {
	Product product.Product `json:"product"`
	AddedAt time.Time       `json:"added_at"`
}

// Wishlist holds the saved products for one owner, unique by product id.
type Wishlist struct {
	OwnerID string          `json:"owner_id"`
	Items   map[string]Item `json:"items"`
}

func New(ownerID string) *Wishlist {
	return &Wishlist{OwnerID: ownerID, Items: make(map[string]Item)}
}

// Add saves a product. Adding a product that is already saved is a no-op,
// so repeated clicks produce exactly one entry.
func (w *Wishlist) Add(p product.Product) {
	if w.Items == nil {
		w.Items = make(map[string]Item)
	}
	if _, ok := w.Items[p.ID]; ok {
		return
	}
	w.Items[p.ID] = Item{Product: p, AddedAt: time.Now()}
}

func (w *Wishlist) Remove(productID string) {
	delete(w.Items, productID)
}

func (w *Wishlist) Clear() {
	w.Items = make(map[string]Item)
}

func (w *Wishlist) Contains(productID string) bool {
	_, ok := w.Items[productID]
	return ok
}

func (w *Wishlist) Len() int {
	return len(w.Items)
}

func (w *Wishlist) IsEmpty() bool {
	return len(w.Items) == 0
}

// List returns saved products in the order they were added.
func (w *Wishlist) List() []product.Product {
	items := make([]Item, 0, len(w.Items))
	for _, item := range w.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].Product.ID < items[j].Product.ID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	products := make([]product.Product, len(items))
	for i, item := range items {
		products[i] = item.Product
	}
	return products
}

// Merge unions another wishlist into this one.
func (w *Wishlist) Merge(other *Wishlist) {
	if other == nil {
		return
	}
	if w.Items == nil {
		w.Items = make(map[string]Item)
	}
	for id, item := range other.Items {
		if _, ok := w.Items[id]; !ok {
			w.Items[id] = item
		}
	}
}
