package session

import (
	"context"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// signToken issues an HS256 token the way the backend does.
func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}

// exerciseStore is the shared contract every Store implementation must meet.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, store.Clear(ctx))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, got.Empty())
	require.Nil(t, got.User)

	require.ErrorIs(t, store.Save(ctx, Session{}), ErrEmptyToken)

	token := signToken(t, jwt.MapClaims{"sub": "7", "exp": time.Now().Add(time.Hour).Unix()})
	user := &domain.User{ID: "7", Email: "ana@startup.com", Role: domain.RoleFounder, CompanyName: "Acme"}
	require.NoError(t, store.Save(ctx, Session{Token: token, User: user}))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, token, got.Token)
	require.NotNil(t, got.User)
	require.Equal(t, *user, *got.User)

	// saving without a user drops the previous record
	require.NoError(t, store.Save(ctx, Session{Token: token}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, token, got.Token)
	require.Nil(t, got.User)

	require.NoError(t, store.Save(ctx, Session{Token: token, User: user}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	got, err = store.Load(ctx)
	require.NoError(t, err)
	require.True(t, got.Empty())
	require.Nil(t, got.User)
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	user := &domain.User{ID: "1", Email: "a@b"}
	require.NoError(t, store.Save(ctx, Session{Token: "tok", User: user}))

	user.Email = "mutated"
	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@b", got.User.Email)

	got.User.Email = "mutated again"
	again, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "a@b", again.User.Email)
}
