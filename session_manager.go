package accounts

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// SessionManager sequences the account session lifecycle: registration,
// login, logout, refresh rotation, and credential/profile changes. Each flow
// runs its steps strictly in order and short-circuits on the first failure.
type SessionManager struct {
	repo     RepositoryManager
	provider IdentityProvider
	tokens   TokenService
	uploader Uploader
	logger   Logger
}

// NewSessionManager wires the lifecycle orchestrator
func NewSessionManager(repo RepositoryManager, tokens TokenService, uploader Uploader) *SessionManager {
	return &SessionManager{
		repo:     repo,
		provider: NewUserProvider(repo.Users()),
		tokens:   tokens,
		uploader: uploader,
		logger:   defLogger{},
	}
}

func (s *SessionManager) WithLogger(l Logger) *SessionManager {
	if l != nil {
		s.logger = l
	}
	return s
}

// WithIdentityProvider overrides the default store-backed provider
func (s *SessionManager) WithIdentityProvider(provider IdentityProvider) *SessionManager {
	if provider != nil {
		s.provider = provider
	}
	return s
}

// RegisterInput carries the already parsed registration fields. Media paths
// point at locally staged files the transport layer accepted.
type RegisterInput struct {
	FullName       string
	Email          string
	Username       string
	Password       string
	AvatarPath     string
	CoverImagePath string
	UseHashid      bool
}

// Register creates an account after uniqueness and media checks pass.
// The returned record is sanitized.
func (s *SessionManager) Register(ctx context.Context, input RegisterInput) (*User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.TrimSpace(input.Email)
	username := NormalizeUsername(input.Username)
	password := strings.TrimSpace(input.Password)

	if fullName == "" || email == "" || username == "" || password == "" {
		return nil, errors.New("all fields are required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	if err := s.ensureIdentifierFree(ctx, email); err != nil {
		return nil, err
	}
	if err := s.ensureIdentifierFree(ctx, username); err != nil {
		return nil, err
	}

	if input.AvatarPath == "" {
		return nil, errors.New("avatar file is required", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeAvatarRequired)
	}

	// A registration without a usable avatar is rejected as bad input,
	// whether the file is missing or the upload yielded nothing.
	avatarURL, err := s.uploader.Upload(ctx, input.AvatarPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryBadInput, "avatar upload failed").
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodeUploadFailed)
	}

	// Cover image is optional and its upload failure does not block
	// registration; the account simply starts without one.
	coverURL := ""
	if input.CoverImagePath != "" {
		if url, err := s.uploader.Upload(ctx, input.CoverImagePath); err == nil {
			coverURL = url
		} else {
			s.logger.Info("cover image upload failed, continuing without it", "error", err)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	user := &User{
		FullName:     fullName,
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Avatar:       avatarURL,
		CoverImage:   coverURL,
	}

	if input.UseHashid {
		if id, err := hashid.NewUUID(email); err == nil {
			user.ID = id
		}
	}

	created, err := s.repo.Users().Register(ctx, user)
	if err != nil {
		// Only a uniqueness race is a conflict; anything else is the
		// store failing on us.
		if isUniqueViolation(err) {
			return nil, errors.Wrap(err, errors.CategoryConflict, "could not create user").
				WithCode(errors.CodeConflict).
				WithTextCode(TextCodeIdentifierTaken)
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create user")
	}

	return created.Sanitize(), nil
}

// LoginResult is what a successful login hands back to the transport
type LoginResult struct {
	User   *User     `json:"user"`
	Tokens TokenPair `json:"tokens"`
}

// Login verifies credentials, issues a token pair, and binds the refresh
// token to the user's slot. Nothing is persisted unless issuance succeeded.
func (s *SessionManager) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	if strings.TrimSpace(identifier) == "" || password == "" {
		return nil, errors.New("username or email and password are required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	identity, err := s.provider.VerifyIdentity(ctx, identifier, password)
	if err != nil {
		s.logger.Error("login verify identity error", "error", err)
		return nil, err
	}

	pair, err := s.issueAndBind(ctx, identity)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.Users().GetByIdentifier(ctx, identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user after login")
	}

	return &LoginResult{
		User:   user.Sanitize(),
		Tokens: *pair,
	}, nil
}

// Logout clears the stored refresh token, invalidating every previously
// issued refresh token for the user.
func (s *SessionManager) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.Users().ClearRefreshToken(ctx, userID); err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to clear refresh token")
	}
	return nil
}

// ChangePassword verifies the old password before persisting the new hash.
// The write skips unrelated field validation.
func (s *SessionManager) ChangePassword(ctx context.Context, userID uuid.UUID, oldPassword, newPassword string) error {
	user, err := s.repo.Users().GetByIdentifier(ctx, userID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return ErrIdentityNotFound
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to load user")
	}

	if err := ComparePasswordAndHash(oldPassword, user.PasswordHash); err != nil {
		return errors.New("invalid previous password", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest).
			WithTextCode(TextCodePasswordMismatch)
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		var richErr *errors.Error
		if errors.As(err, &richErr) {
			return richErr
		}
		return errors.Wrap(err, errors.CategoryInternal, "failed to hash password")
	}

	if err := s.repo.Users().UpdatePassword(ctx, user.ID, hash); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to persist new password")
	}

	return nil
}

// CurrentUser returns the sanitized record for an authenticated identity
func (s *SessionManager) CurrentUser(ctx context.Context, userID uuid.UUID) (*User, error) {
	user, err := s.repo.Users().GetByIdentifier(ctx, userID.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return user.Sanitize(), nil
}

// UpdateAccountDetails updates the mutable text profile fields
func (s *SessionManager) UpdateAccountDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(email)

	if fullName == "" || email == "" {
		return nil, errors.New("full name and email are required", errors.CategoryValidation).
			WithCode(errors.CodeBadRequest)
	}

	user, err := s.repo.Users().UpdateAccountDetails(ctx, userID, fullName, email)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to update account details")
	}

	return user.Sanitize(), nil
}

// UpdateAvatar uploads the staged file and persists its public URL
func (s *SessionManager) UpdateAvatar(ctx context.Context, userID uuid.UUID, localPath string) (*User, error) {
	return s.updateMedia(ctx, userID, localPath, s.repo.Users().UpdateAvatar, "avatar")
}

// UpdateCoverImage uploads the staged file and persists its public URL
func (s *SessionManager) UpdateCoverImage(ctx context.Context, userID uuid.UUID, localPath string) (*User, error) {
	return s.updateMedia(ctx, userID, localPath, s.repo.Users().UpdateCoverImage, "cover image")
}

func (s *SessionManager) updateMedia(
	ctx context.Context,
	userID uuid.UUID,
	localPath string,
	persist func(context.Context, uuid.UUID, string) (*User, error),
	label string,
) (*User, error) {
	if localPath == "" {
		return nil, errors.New(label+" file is missing", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	url, err := s.uploader.Upload(ctx, localPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryExternal, "error while uploading "+label).
			WithTextCode(TextCodeUploadFailed)
	}

	user, err := persist(ctx, userID, url)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to persist "+label)
	}

	return user.Sanitize(), nil
}

// issueAndBind mints the pair first, then persists the refresh token so a
// failed signature never leaves a dangling binding.
func (s *SessionManager) issueAndBind(ctx context.Context, identity Identity) (*TokenPair, error) {
	access, err := s.tokens.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refresh, err := s.tokens.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(identity.ID())
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "identity has a malformed id")
	}

	if err := s.repo.Users().StoreRefreshToken(ctx, id, refresh); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to bind refresh token")
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}

func (s *SessionManager) ensureIdentifierFree(ctx context.Context, identifier string) error {
	_, err := s.repo.Users().GetByIdentifier(ctx, identifier)
	if err == nil {
		return errors.New("user with email or username already exists", errors.CategoryConflict).
			WithCode(errors.CodeConflict).
			WithTextCode(TextCodeIdentifierTaken)
	}

	if errors.IsNotFound(err) {
		return nil
	}

	return errors.Wrap(err, errors.CategoryInternal, "failed to check identifier availability")
}
