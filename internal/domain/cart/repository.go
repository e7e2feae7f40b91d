package cart

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/example/storefront/internal/infrastructure/guestcache"
)

const collection = "carts"

// DocstoreRepository keeps account carts in the document store, one record
// per user id.
type DocstoreRepository struct {
	docs docstore.Store
}

func NewDocstoreRepository(docs docstore.Store) *DocstoreRepository {
	return &DocstoreRepository{docs: docs}
}

func (r *DocstoreRepository) Load(ctx context.Context, ownerID string) (*Cart, error) {
	var c Cart
	if err := r.docs.Get(ctx, collection, ownerID, &c); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNoCart
		}
		return nil, err
	}
	if c.Items == nil {
		c.Items = make(map[string]Item)
	}
	return &c, nil
}

func (r *DocstoreRepository) Save(ctx context.Context, c *Cart) error {
	return r.docs.Set(ctx, collection, c.OwnerID, c)
}

func (r *DocstoreRepository) Delete(ctx context.Context, ownerID string) error {
	return r.docs.Delete(ctx, collection, ownerID)
}

// GuestRepository keeps anonymous carts in the guest cache, keyed by the
// session cookie.
type GuestRepository struct {
	cache *guestcache.RedisStore
}

func NewGuestRepository(cache *guestcache.RedisStore) *GuestRepository {
	return &GuestRepository{cache: cache}
}

func guestKey(sessionID string) string {
	return "cart:guest:" + sessionID
}

func (r *GuestRepository) Load(ctx context.Context, ownerID string) (*Cart, error) {
	var c Cart
	if err := r.cache.Load(ctx, guestKey(ownerID), &c); err != nil {
		if errors.Is(err, guestcache.ErrNoRecord) {
			return nil, ErrNoCart
		}
		return nil, err
	}
	if c.Items == nil {
		c.Items = make(map[string]Item)
	}
	return &c, nil
}

func (r *GuestRepository) Save(ctx context.Context, c *Cart) error {
	return r.cache.Save(ctx, guestKey(c.OwnerID), c)
}

func (r *GuestRepository) Delete(ctx context.Context, ownerID string) error {
	return r.cache.Delete(ctx, guestKey(ownerID))
}
