package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/playtube-dev/go-accounts"
	"github.com/stretchr/testify/assert"
)

func TestUserProviderVerifyIdentity(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserStore)

	provider := accounts.NewUserProvider(store)

	t.Run("Successful verification", func(t *testing.T) {
		userID := uuid.New()
		passwordHash, _ := accounts.HashPassword("password123")
		user := &accounts.User{
			ID:           userID,
			FullName:     "Test User",
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: passwordHash,
		}

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())
		assert.Equal(t, "testuser", identity.Username())
		assert.Equal(t, "test@example.com", identity.Email())

		store.AssertExpectations(t)
	})

	t.Run("Invalid password", func(t *testing.T) {
		passwordHash, _ := accounts.HashPassword("correct_password")
		user := &accounts.User{
			ID:           uuid.New(),
			Username:     "testuser",
			Email:        "test@example.com",
			PasswordHash: passwordHash,
		}

		store.On("GetByIdentifier", ctx, "test@example.com").Return(user, nil).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "wrong_password")

		assert.Nil(t, identity)
		assert.Equal(t, accounts.ErrMismatchedHashAndPassword, err)

		store.AssertExpectations(t)
	})

	t.Run("User not found reports invalid credentials", func(t *testing.T) {
		store.On("GetByIdentifier", ctx, "nonexistent@example.com").
			Return(nil, accounts.ErrIdentityNotFound).Once()

		identity, err := provider.VerifyIdentity(ctx, "nonexistent@example.com", "password123")

		assert.Nil(t, identity)
		assert.Equal(t, accounts.ErrMismatchedHashAndPassword, err)

		store.AssertExpectations(t)
	})

	t.Run("Store failure is internal", func(t *testing.T) {
		store.On("GetByIdentifier", ctx, "test@example.com").
			Return(nil, errors.New("connection refused")).Once()

		identity, err := provider.VerifyIdentity(ctx, "test@example.com", "password123")

		assert.Nil(t, identity)
		assert.Error(t, err)
		assert.NotEqual(t, accounts.ErrMismatchedHashAndPassword, err)

		store.AssertExpectations(t)
	})
}

func TestUserProviderFindIdentityByIdentifier(t *testing.T) {
	ctx := context.Background()
	store := new(MockUserStore)

	provider := accounts.NewUserProvider(store)

	t.Run("User found", func(t *testing.T) {
		userID := uuid.New()
		user := &accounts.User{
			ID:       userID,
			Username: "testuser",
			Email:    "test@example.com",
		}

		store.On("GetByIdentifier", ctx, "testuser").Return(user, nil).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "testuser")

		assert.NoError(t, err)
		assert.NotNil(t, identity)
		assert.Equal(t, userID.String(), identity.ID())

		store.AssertExpectations(t)
	})

	t.Run("User not found", func(t *testing.T) {
		store.On("GetByIdentifier", ctx, "ghost").
			Return(nil, accounts.ErrIdentityNotFound).Once()

		identity, err := provider.FindIdentityByIdentifier(ctx, "ghost")

		assert.Nil(t, identity)
		assert.Equal(t, accounts.ErrIdentityNotFound, err)

		store.AssertExpectations(t)
	})
}
