package accounts

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identity holds the attributes of an authenticated identity
type Identity interface {
	ID() string
	Username() string
	Email() string
	FullName() string
}

// TokenPair is the access/refresh credential pair issued on login and
// on every successful rotation.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenService issues and validates the two token classes. Access and
// refresh tokens are signed with distinct keys so leaking one secret
// never lets an attacker forge the other class.
type TokenService interface {
	IssueAccessToken(identity Identity) (string, error)
	IssueRefreshToken(identity Identity) (string, error)
	ValidateAccessToken(token string) (*AccessClaims, error)
	ValidateRefreshToken(token string) (*RefreshClaims, error)
}

// IdentityProvider ensure we have a store to retrieve and verify identities
type IdentityProvider interface {
	VerifyIdentity(ctx context.Context, identifier, password string) (Identity, error)
	FindIdentityByIdentifier(ctx context.Context, identifier string) (Identity, error)
}

// Uploader moves a locally staged media file to a public location and
// returns the URL clients should use.
type Uploader interface {
	Upload(ctx context.Context, localPath string) (string, error)
}

// Config holds session lifecycle options
type Config interface {
	GetAccessSigningKey() string
	GetRefreshSigningKey() string
	GetAccessTokenExpiration() int  // minutes
	GetRefreshTokenExpiration() int // hours
	GetIssuer() string
	GetAudience() []string
	GetAccessCookieName() string
	GetRefreshCookieName() string
	GetAuthScheme() string
	GetContextKey() string
	GetTokenLookup() string
}

// SimpleConfig is a plain struct implementation of Config with
// defaults suitable for development.
type SimpleConfig struct {
	AccessSigningKey       string   `json:"access_signing_key"`
	RefreshSigningKey      string   `json:"refresh_signing_key"`
	AccessTokenExpiration  int      `json:"access_token_expiration"`
	RefreshTokenExpiration int      `json:"refresh_token_expiration"`
	Issuer                 string   `json:"issuer"`
	Audience               []string `json:"audience"`
	AccessCookieName       string   `json:"access_cookie_name"`
	RefreshCookieName      string   `json:"refresh_cookie_name"`
	AuthScheme             string   `json:"auth_scheme"`
	ContextKey             string   `json:"context_key"`
	TokenLookup            string   `json:"token_lookup"`
}

func (c SimpleConfig) GetAccessSigningKey() string { return c.AccessSigningKey }

func (c SimpleConfig) GetRefreshSigningKey() string { return c.RefreshSigningKey }

func (c SimpleConfig) GetAccessTokenExpiration() int {
	if c.AccessTokenExpiration <= 0 {
		return 15
	}
	return c.AccessTokenExpiration
}

func (c SimpleConfig) GetRefreshTokenExpiration() int {
	if c.RefreshTokenExpiration <= 0 {
		return 72
	}
	return c.RefreshTokenExpiration
}

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetAccessCookieName() string {
	if c.AccessCookieName == "" {
		return "access_token"
	}
	return c.AccessCookieName
}

func (c SimpleConfig) GetRefreshCookieName() string {
	if c.RefreshCookieName == "" {
		return "refresh_token"
	}
	return c.RefreshCookieName
}

func (c SimpleConfig) GetAuthScheme() string {
	if c.AuthScheme == "" {
		return "Bearer"
	}
	return c.AuthScheme
}

func (c SimpleConfig) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c SimpleConfig) GetTokenLookup() string {
	if c.TokenLookup == "" {
		return "header:Authorization,cookie:" + c.GetAccessCookieName()
	}
	return c.TokenLookup
}

var _ Config = SimpleConfig{}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] ACCOUNTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] ACCOUNTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
