package cart

import (
	"sort"
	"time"
)

// Item is a product snapshot plus the selected quantity.
type Item struct {
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Image     string    `json:"image"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

// Product is what call sites hand to Add; the cart keeps its own snapshot.
type Product struct {
	ID    string
	Name  string
	Price float64
	Image string
}

// Cart holds the line items for one owner, keyed by product id.
type Cart struct {
	OwnerID string          `json:"owner_id"`
	Items   map[string]Item `json:"items"`
}

func New(ownerID string) *Cart {
	return &Cart{OwnerID: ownerID, Items: make(map[string]Item)}
}

// Add puts one unit of the product in the cart: a new line at quantity 1,
// or one more unit on the existing line. Call sites loop to add several.
func (c *Cart) Add(p Product) {
	if c.Items == nil {
		c.Items = make(map[string]Item)
	}
	if existing, ok := c.Items[p.ID]; ok {
		existing.Quantity++
		c.Items[p.ID] = existing
		return
	}
	c.Items[p.ID] = Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  1,
		AddedAt:   time.Now(),
	}
}

// UpdateQuantity clamps quantity to >= 0; zero removes the line. Unknown
// product ids are a no-op.
func (c *Cart) UpdateQuantity(productID string, quantity int) {
	item, ok := c.Items[productID]
	if !ok {
		return
	}
	if quantity <= 0 {
		delete(c.Items, productID)
		return
	}
	item.Quantity = quantity
	c.Items[productID] = item
}

func (c *Cart) Remove(productID string) {
	delete(c.Items, productID)
}

func (c *Cart) Clear() {
	c.Items = make(map[string]Item)
}

func (c *Cart) Contains(productID string) bool {
	_, ok := c.Items[productID]
	return ok
}

func (c *Cart) Len() int {
	return len(c.Items)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Subtotal is the exact sum of price*quantity. No rounding happens here;
// amounts are rounded at presentation and at payment-charge time only.
func (c *Cart) Subtotal() float64 {
	var total float64
	for _, item := range c.Items {
		total += item.Price * float64(item.Quantity)
	}
	return total
}

// List returns the line items in the order they were added.
func (c *Cart) List() []Item {
	items := make([]Item, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].ProductID < items[j].ProductID
		}
		return items[i].AddedAt.Before(items[j].AddedAt)
	})
	return items
}

// Merge folds another cart into this one: union by product id, quantities
// summed. Used when a guest signs in with items in both carts.
func (c *Cart) Merge(other *Cart) {
	if other == nil {
		return
	}
	if c.Items == nil {
		c.Items = make(map[string]Item)
	}
	for id, item := range other.Items {
		if existing, ok := c.Items[id]; ok {
			existing.Quantity += item.Quantity
			c.Items[id] = existing
			continue
		}
		c.Items[id] = item
	}
}

// Snapshot deep-copies the cart; checkout works on a snapshot so later
// edits don't change an in-flight order.
func (c *Cart) Snapshot() *Cart {
	copied := New(c.OwnerID)
	for id, item := range c.Items {
		copied.Items[id] = item
	}
	return copied
}
