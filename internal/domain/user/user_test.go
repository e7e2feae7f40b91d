package user

import (
	"context"
	"testing"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/domain/order"
	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService() *Service {
	return NewService(docstore.NewMemoryStore(), zap.NewNop())
}

func TestRegister_CreatesCustomer(t *testing.T) {
	svc := newService()

	u, err := svc.Register(context.Background(), "Jane@Example.com", "correct-horse", "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "customer", u.Role)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, "correct-horse", u.PasswordHash)
}

func TestRegister_Validation(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "", "correct-horse", "Jane")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(ctx, "jane@example.com", "correct-horse", "")
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = svc.Register(ctx, "jane@example.com", "short", "Jane")
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestRegister_RejectsDuplicateEmail(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	_, err := svc.Register(ctx, "jane@example.com", "correct-horse", "Jane")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "JANE@example.com", "battery-staple", "Other Jane")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	registered, err := svc.Register(ctx, "jane@example.com", "correct-horse", "Jane")
	require.NoError(t, err)

	u, err := svc.Login(ctx, "jane@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, u.ID)

	_, err = svc.Login(ctx, "jane@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody@example.com", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSaveAddress_PrefillsProfile(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "jane@example.com", "correct-horse", "Jane")
	require.NoError(t, err)

	addr := order.Address{
		FirstName: "Jane", LastName: "Doe", Address: "1 Main St",
		City: "Springfield", State: "IL", ZipCode: "62701", Phone: "555-0100",
	}
	require.NoError(t, svc.SaveAddress(ctx, u.ID, addr))

	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SavedAddress)
	assert.Equal(t, "Springfield", got.SavedAddress.City)

	incomplete := addr
	incomplete.ZipCode = ""
	err = svc.SaveAddress(ctx, u.ID, incomplete)
	require.Error(t, err)

	assert.ErrorIs(t, svc.SaveAddress(ctx, "missing", addr), ErrUserNotFound)
}

func TestUpdateName(t *testing.T) {
	svc := newService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "jane@example.com", "correct-horse", "Jane")
	require.NoError(t, err)

	require.NoError(t, svc.UpdateName(ctx, u.ID, "Jane Q. Doe"))
	got, err := svc.Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Q. Doe", got.Name)

	assert.ErrorIs(t, svc.UpdateName(ctx, u.ID, ""), ErrInvalidName)
}
