package accounts

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Text codes attached to structured errors so API clients can branch
// without parsing messages.
const (
	TextCodeInvalidCreds        = "INVALID_CREDENTIALS"
	TextCodeEmptyPassword       = "EMPTY_PASSWORD"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeTokenMalformed      = "TOKEN_MALFORMED"
	TextCodeRefreshMissing      = "REFRESH_TOKEN_MISSING"
	TextCodeRefreshReused       = "REFRESH_TOKEN_REUSED"
	TextCodeIdentifierTaken     = "IDENTIFIER_TAKEN"
	TextCodeAvatarRequired      = "AVATAR_REQUIRED"
	TextCodeUploadFailed        = "UPLOAD_FAILED"
	TextCodeSigningKeyMissing   = "SIGNING_KEY_MISSING"
	TextCodePasswordMismatch    = "PASSWORD_MISMATCH"
	TextCodeIdentityNotFound    = "IDENTITY_NOT_FOUND"
	TextCodeRefreshTokenInvalid = "REFRESH_TOKEN_INVALID"
)

// ErrIdentityNotFound is returned when no user matches an identifier
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithCode(errors.CodeNotFound).
	WithTextCode(TextCodeIdentityNotFound)

// ErrMismatchedHashAndPassword is returned on credential verification failure
var ErrMismatchedHashAndPassword = errors.New("the credentials provided are invalid", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeInvalidCreds)

// ErrNoEmptyString guards against hashing an empty password
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryValidation).
	WithCode(errors.CodeBadRequest).
	WithTextCode(TextCodeEmptyPassword)

// ErrTokenExpired is returned for tokens past their expiry
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenExpired)

// ErrTokenMalformed is returned for tokens that fail parsing or signature checks
var ErrTokenMalformed = errors.New("invalid or expired token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeTokenMalformed)

// ErrRefreshTokenMissing is returned when no refresh token was supplied
var ErrRefreshTokenMissing = errors.New("unauthorized request", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeRefreshMissing)

// ErrRefreshTokenInvalid is returned when a refresh token verifies but
// resolves to no user.
var ErrRefreshTokenInvalid = errors.New("invalid refresh token", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeRefreshTokenInvalid)

// ErrRefreshTokenReused is returned when a structurally valid refresh token
// does not match the stored slot: it was rotated away or the slot was cleared.
// Callers get the same category and status as any other invalid token.
var ErrRefreshTokenReused = errors.New("refresh token is expired or already used", errors.CategoryAuth).
	WithCode(errors.CodeUnauthorized).
	WithTextCode(TextCodeRefreshReused)

// ErrSigningKeyMissing signals missing key material, a configuration fault
var ErrSigningKeyMissing = errors.New("token signing key is not configured", errors.CategoryInternal).
	WithCode(errors.CodeInternal).
	WithTextCode(TextCodeSigningKeyMissing)

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for tokens rejected during parsing
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}

	var richErr *errors.Error
	if errors.As(err, &richErr) && richErr.TextCode == TextCodeTokenMalformed {
		return true
	}

	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// IsConflictError reports uniqueness violations surfaced by registration
func IsConflictError(err error) bool {
	var richErr *errors.Error
	if errors.As(err, &richErr) {
		return richErr.Category == errors.CategoryConflict
	}
	return false
}
