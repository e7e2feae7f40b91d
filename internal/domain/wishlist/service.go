package wishlist

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/domain/product"
	"github.com/example/storefront/internal/identity"
	"go.uber.org/zap"
)

// ErrNoWishlist is returned by repositories when no record exists.
var ErrNoWishlist = errors.New("no wishlist record")

type Repository interface {
	Load(ctx context.Context, ownerID string) (*Wishlist, error)
	Save(ctx context.Context, w *Wishlist) error
	Delete(ctx context.Context, ownerID string) error
}

// Service mirrors the cart service: remote record for accounts, guest
// cache for anonymous sessions, best-effort writes.
type Service struct {
	users  Repository
	guests Repository
	log    *zap.Logger
}

func NewService(users, guests Repository, log *zap.Logger) *Service {
	return &Service{users: users, guests: guests, log: log.Named("wishlist")}
}

func (s *Service) repoFor(id identity.Identity) Repository {
	if id.Authenticated() {
		return s.users
	}
	return s.guests
}

func (s *Service) load(ctx context.Context, id identity.Identity) *Wishlist {
	w, err := s.repoFor(id).Load(ctx, id.OwnerKey())
	if errors.Is(err, ErrNoWishlist) {
		return New(id.OwnerKey())
	}
	if err != nil {
		s.log.Warn("wishlist load failed, starting empty",
			zap.String("owner", id.OwnerKey()), zap.Error(err))
		return New(id.OwnerKey())
	}
	return w
}

func (s *Service) persist(ctx context.Context, id identity.Identity, w *Wishlist) {
	if err := s.repoFor(id).Save(ctx, w); err != nil {
		s.log.Warn("wishlist persist failed, keeping in-memory state",
			zap.String("owner", id.OwnerKey()), zap.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, id identity.Identity) *Wishlist {
	return s.load(ctx, id)
}

func (s *Service) Add(ctx context.Context, id identity.Identity, p product.Product) *Wishlist {
	w := s.load(ctx, id)
	w.Add(p)
	s.persist(ctx, id, w)
	return w
}

func (s *Service) Remove(ctx context.Context, id identity.Identity, productID string) *Wishlist {
	w := s.load(ctx, id)
	w.Remove(productID)
	s.persist(ctx, id, w)
	return w
}

// Clear empties the wishlist and deletes the backing record.
func (s *Service) Clear(ctx context.Context, id identity.Identity) {
	if err := s.repoFor(id).Delete(ctx, id.OwnerKey()); err != nil {
		s.log.Warn("wishlist clear failed",
			zap.String("owner", id.OwnerKey()), zap.Error(err))
	}
}

// MergeGuest unions a guest session's wishlist into the signing-in user's
// remote record, then removes the guest record.
func (s *Service) MergeGuest(ctx context.Context, sessionID, userID string) error {
	guest, err := s.guests.Load(ctx, sessionID)
	if errors.Is(err, ErrNoWishlist) {
		return nil
	}
	if err != nil {
		return err
	}
	if guest.IsEmpty() {
		return nil
	}

	merged, err := s.users.Load(ctx, userID)
	if errors.Is(err, ErrNoWishlist) {
		merged = New(userID)
	} else if err != nil {
		return err
	}
	merged.OwnerID = userID
	merged.Merge(guest)

	if err := s.users.Save(ctx, merged); err != nil {
		return err
	}
	if err := s.guests.Delete(ctx, sessionID); err != nil {
		s.log.Warn("failed to delete merged guest wishlist",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	return nil
}
