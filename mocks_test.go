package accounts_test

import (
	"context"
	"database/sql"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/playtube-dev/go-accounts"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

// MockUsers mocks the Users repository methods the lifecycle flows touch.
// The embedded interface covers the rest of the repository surface.
type MockUsers struct {
	mock.Mock
	accounts.Users
}

func (m *MockUsers) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, identifier)
	if u, ok := args.Get(0).(*accounts.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) Register(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	args := m.Called(ctx, user)
	if u, ok := args.Get(0).(*accounts.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) StoreRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	args := m.Called(ctx, id, token)
	return args.Error(0)
}

func (m *MockUsers) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdateAccountDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*accounts.User, error) {
	args := m.Called(ctx, id, fullName, email)
	if u, ok := args.Get(0).(*accounts.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*accounts.User, error) {
	args := m.Called(ctx, id, url)
	if u, ok := args.Get(0).(*accounts.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*accounts.User, error) {
	args := m.Called(ctx, id, url)
	if u, ok := args.Get(0).(*accounts.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// stubRepoManager hands the lifecycle a fixed Users repository
type stubRepoManager struct {
	users accounts.Users
}

func (s stubRepoManager) Validate() error { return nil }

func (s stubRepoManager) MustValidate() {}

func (s stubRepoManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	return f(ctx, bun.Tx{})
}

func (s stubRepoManager) Users() accounts.Users { return s.users }

// MockUploader implements accounts.Uploader
type MockUploader struct {
	mock.Mock
}

func (m *MockUploader) Upload(ctx context.Context, localPath string) (string, error) {
	args := m.Called(ctx, localPath)
	return args.String(0), args.Error(1)
}

// MockTokenService implements accounts.TokenService
type MockTokenService struct {
	mock.Mock
}

func (m *MockTokenService) IssueAccessToken(identity accounts.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) IssueRefreshToken(identity accounts.Identity) (string, error) {
	args := m.Called(identity)
	return args.String(0), args.Error(1)
}

func (m *MockTokenService) ValidateAccessToken(token string) (*accounts.AccessClaims, error) {
	args := m.Called(token)
	if c, ok := args.Get(0).(*accounts.AccessClaims); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockTokenService) ValidateRefreshToken(token string) (*accounts.RefreshClaims, error) {
	args := m.Called(token)
	if c, ok := args.Get(0).(*accounts.RefreshClaims); ok {
		return c, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserStore implements accounts.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*accounts.User, error) {
	args := m.Called(ctx, identifier)
	if u, ok := args.Get(0).(*accounts.User); ok {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

// testIdentity implements accounts.Identity
type testIdentity struct {
	id       string
	username string
	email    string
	fullName string
}

func (t testIdentity) ID() string { return t.id }

func (t testIdentity) Username() string { return t.username }

func (t testIdentity) Email() string { return t.email }

func (t testIdentity) FullName() string { return t.fullName }
