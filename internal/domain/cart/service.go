package cart

import (
	"context"
	"errors"

	"github.com/example/storefront/internal/identity"
	"go.uber.org/zap"
)

// ErrNoCart is returned by repositories when no record exists for an owner.
var ErrNoCart = errors.New("no cart record")

// Repository persists carts for one class of owner (account or guest).
type Repository interface {
	Load(ctx context.Context, ownerID string) (*Cart, error)
	Save(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, ownerID string) error
}

// Service keeps carts synchronized with a persistence backend chosen by
// authentication state: the remote document store for accounts, the guest
// cache for anonymous sessions. Persistence writes are best effort: a
// failed write is logged and the mutated cart is still returned, so the
// current session keeps working on its own state.
type Service struct {
	users  Repository
	guests Repository
	log    *zap.Logger
}

func NewService(users, guests Repository, log *zap.Logger) *Service {
	return &Service{users: users, guests: guests, log: log.Named("cart")}
}

func (s *Service) repoFor(id identity.Identity) Repository {
	if id.Authenticated() {
		return s.users
	}
	return s.guests
}

func (s *Service) load(ctx context.Context, id identity.Identity) *Cart {
	c, err := s.repoFor(id).Load(ctx, id.OwnerKey())
	if errors.Is(err, ErrNoCart) {
		return New(id.OwnerKey())
	}
	if err != nil {
		s.log.Warn("cart load failed, starting empty",
			zap.String("owner", id.OwnerKey()), zap.Error(err))
		return New(id.OwnerKey())
	}
	return c
}

func (s *Service) persist(ctx context.Context, id identity.Identity, c *Cart) {
	if err := s.repoFor(id).Save(ctx, c); err != nil {
		s.log.Warn("cart persist failed, keeping in-memory state",
			zap.String("owner", id.OwnerKey()), zap.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, id identity.Identity) *Cart {
	return s.load(ctx, id)
}

func (s *Service) AddItem(ctx context.Context, id identity.Identity, p Product) *Cart {
	c := s.load(ctx, id)
	c.Add(p)
	s.persist(ctx, id, c)
	return c
}

func (s *Service) UpdateQuantity(ctx context.Context, id identity.Identity, productID string, quantity int) *Cart {
	c := s.load(ctx, id)
	c.UpdateQuantity(productID, quantity)
	s.persist(ctx, id, c)
	return c
}

func (s *Service) RemoveItem(ctx context.Context, id identity.Identity, productID string) *Cart {
	c := s.load(ctx, id)
	c.Remove(productID)
	s.persist(ctx, id, c)
	return c
}

// Clear empties the cart and deletes the backing record.
func (s *Service) Clear(ctx context.Context, id identity.Identity) {
	if err := s.repoFor(id).Delete(ctx, id.OwnerKey()); err != nil {
		s.log.Warn("cart clear failed",
			zap.String("owner", id.OwnerKey()), zap.Error(err))
	}
}

// MergeGuest folds a guest session's cart into the signing-in user's
// remote cart: union by product id, quantities summed. The guest record is
// deleted only after the merged cart is safely persisted.
func (s *Service) MergeGuest(ctx context.Context, sessionID, userID string) error {
	guest, err := s.guests.Load(ctx, sessionID)
	if errors.Is(err, ErrNoCart) {
		return nil
	}
	if err != nil {
		return err
	}
	if guest.IsEmpty() {
		return nil
	}

	merged, err := s.users.Load(ctx, userID)
	if errors.Is(err, ErrNoCart) {
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
		s.log.Warn("failed to delete merged guest cart",
			zap.String("session_id", sessionID), zap.Error(err))
	}
	s.log.Info("guest cart merged",
		zap.String("user_id", userID), zap.Int("items", guest.Len()))
	return nil
}
