package accounts

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenServiceImpl implements the TokenService interface with a separate
// signing key per token class.
type TokenServiceImpl struct {
	accessKey         []byte
	refreshKey        []byte
	accessExpiration  int // minutes
	refreshExpiration int // hours
	issuer            string
	audience          jwt.ClaimStrings
	logger            Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(cfg Config, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		accessKey:         []byte(cfg.GetAccessSigningKey()),
		refreshKey:        []byte(cfg.GetRefreshSigningKey()),
		accessExpiration:  cfg.GetAccessTokenExpiration(),
		refreshExpiration: cfg.GetRefreshTokenExpiration(),
		issuer:            cfg.GetIssuer(),
		audience:          cfg.GetAudience(),
		logger:            logger,
	}
}

// AccessTokenTTL is the configured access token lifetime
func (ts *TokenServiceImpl) AccessTokenTTL() time.Duration {
	return time.Duration(ts.accessExpiration) * time.Minute
}

// RefreshTokenTTL is the configured refresh token lifetime
func (ts *TokenServiceImpl) RefreshTokenTTL() time.Duration {
	return time.Duration(ts.refreshExpiration) * time.Hour
}

// IssueAccessToken signs a short-lived token carrying the identity's
// public attributes.
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, error) {
	if len(ts.accessKey) == 0 {
		return "", ErrSigningKeyMissing
	}
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.claimAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.AccessTokenTTL())),
		},
		UID:      identity.ID(),
		Username: identity.Username(),
		Email:    identity.Email(),
		Name:     identity.FullName(),
	}
	ensureTokenID(&claims.RegisteredClaims)

	return ts.sign(claims, ts.accessKey)
}

// IssueRefreshToken signs a long-lived token carrying the user ID only.
func (ts *TokenServiceImpl) IssueRefreshToken(identity Identity) (string, error) {
	if len(ts.refreshKey) == 0 {
		return "", ErrSigningKeyMissing
	}
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.claimAudience(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.RefreshTokenTTL())),
		},
		UID: identity.ID(),
	}
	ensureTokenID(&claims.RegisteredClaims)

	return ts.sign(claims, ts.refreshKey)
}

// ValidateAccessToken parses and validates an access token string
func (ts *TokenServiceImpl) ValidateAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.parseInto(tokenString, claims, ts.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// ValidateRefreshToken parses and validates a refresh token string
func (ts *TokenServiceImpl) ValidateRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.parseInto(tokenString, claims, ts.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

func (ts *TokenServiceImpl) parseInto(tokenString string, claims jwt.Claims, key []byte) error {
	parserOptions := make([]jwt.ParserOption, 0, 2)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	if !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return ErrTokenMalformed
	}

	return nil
}

func (ts *TokenServiceImpl) claimAudience() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}

var _ TokenService = (*TokenServiceImpl)(nil)
