package wishlist

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/example/storefront/internal/infrastructure/guestcache"
)

const collection = "wishlists"

// DocstoreRepository keeps account wishlists in the document store.
type DocstoreRepository struct {
	docs docstore.Store
}

func NewDocstoreRepository(docs docstore.Store) *DocstoreRepository {
	return &DocstoreRepository{docs: docs}
}

func (r *DocstoreRepository) Load(ctx context.Context, ownerID string) (*Wishlist, error) {
	var w Wishlist
	if err := r.docs.Get(ctx, collection, ownerID, &w); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrNoWishlist
		}
		return nil, err
	}
	if w.Items == nil {
		w.Items = make(map[string]Item)
	}
	return &w, nil
}

func (r *DocstoreRepository) Save(ctx context.Context, w *Wishlist) error {
	return r.docs.Set(ctx, collection, w.OwnerID, w)
}

func (r *DocstoreRepository) Delete(ctx context.Context, ownerID string) error {
	return r.docs.Delete(ctx, collection, ownerID)
}

// GuestRepository keeps anonymous wishlists in the guest cache.
type GuestRepository struct {
	cache *guestcache.RedisStore
}

func NewGuestRepository(cache *guestcache.RedisStore) *GuestRepository {
	return &GuestRepository{cache: cache}
}

func guestKey(sessionID string) string {
	return "wishlist:guest:" + sessionID
}

func (r *GuestRepository) Load(ctx context.Context, ownerID string) (*Wishlist, error) {
	var w Wishlist
	if err := r.cache.Load(ctx, guestKey(ownerID), &w); err != nil {
		if errors.Is(err, guestcache.ErrNoRecord) {
			return nil, ErrNoWishlist
		}
		return nil, err
	}
	if w.Items == nil {
		w.Items = make(map[string]Item)
	}
	return &w, nil
}

func (r *GuestRepository) Save(ctx context.Context, w *Wishlist) error {
	return r.cache.Save(ctx, guestKey(w.OwnerID), w)
}

func (r *GuestRepository) Delete(ctx context.Context, ownerID string) error {
	return r.cache.Delete(ctx, guestKey(ownerID))
}
