package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const collection = "users"

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmail       = errors.New("email is required")
	ErrInvalidName        = errors.New("name is required")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// User is an account record. PasswordHash stays in the document store but
// must never leave the API layer.
type User struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	Name         string         `json:"name"`
	Role         string         `json:"role"`
	SavedAddress *order.Address `json:"saved_address,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Service handles account registration, login and profile data.
type Service struct {
	docs docstore.Store
	log  *zap.Logger
}

func NewService(docs docstore.Store, log *zap.Logger) *Service {
	return &Service{docs: docs, log: log.Named("user")}
}

func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, "customer")
}

func (s *Service) RegisterAdmin(ctx context.Context, email, password, name string) (*User, error) {
	return s.RegisterWithRole(ctx, email, password, name, "admin")
}

func (s *Service) RegisterWithRole(ctx context.Context, email, password, name, role string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrInvalidEmail
	}
	if name == "" {
		return nil, ErrInvalidName
	}

	if _, err := s.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	u := &User{
		ID:           uuid.New().String(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.docs.Set(ctx, collection, u.ID, u); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.log.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("role", role))
	return u, nil
}

// Login checks credentials. Both unknown email and wrong password return
// ErrInvalidCredentials so the response does not reveal which accounts
// exist.
func (s *Service) Login(ctx context.Context, email, password string) (*User, error) {
	u, err := s.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := s.docs.Get(ctx, collection, id, &u); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	var users []User
	err := s.docs.Query(ctx, collection, docstore.Query{
		Filters: map[string]string{"email": email},
		Limit:   1,
	}, &users)
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrUserNotFound
	}
	return &users[0], nil
}

// UpdateName changes the display name.
func (s *Service) UpdateName(ctx context.Context, id, name string) error {
	if name == "" {
		return ErrInvalidName
	}
	return s.update(ctx, id, map[string]any{"name": name})
}

// SaveAddress stores the default shipping address used to prefill
// checkout.
func (s *Service) SaveAddress(ctx context.Context, id string, addr order.Address) error {
	if err := addr.Validate(); err != nil {
		return err
	}
	return s.update(ctx, id, map[string]any{"saved_address": addr})
}

func (s *Service) update(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	if err := s.docs.Update(ctx, collection, id, fields); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
