package accounts

import (
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/playtube-dev/go-accounts/middleware/jwtware"
)

// RouteAuthenticator owns token delivery at the transport boundary. Tokens
// travel over two channels at once, secure httpOnly cookies for browsers and
// the response body for everything else; logout clears both cookies.
type RouteAuthenticator struct {
	cfg              Config
	tokens           TokenService
	accessDuration   time.Duration
	refreshDuration  time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
}

func NewRouteAuthenticator(tokens TokenService, cfg Config) *RouteAuthenticator {
	a := &RouteAuthenticator{
		cfg:             cfg,
		tokens:          tokens,
		Logger:          defLogger{},
		accessDuration:  time.Duration(cfg.GetAccessTokenExpiration()) * time.Minute,
		refreshDuration: time.Duration(cfg.GetRefreshTokenExpiration()) * time.Hour,
	}

	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a
}

// ProtectedRoute validates the access token from the configured lookup
// chain and exposes its claims on the router context.
func (a *RouteAuthenticator) ProtectedRoute() router.MiddlewareFunc {
	return jwtware.New(jwtware.Config{
		ErrorHandler: a.AuthErrorHandler,
		SigningKey: jwtware.SigningKey{
			Key:    []byte(a.cfg.GetAccessSigningKey()),
			JWTAlg: "HS256",
		},
		AuthScheme:     a.cfg.GetAuthScheme(),
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
		TokenValidator: accessValidator{tokens: a.tokens},
	})
}

// SetTokenCookies delivers a freshly issued pair on the cookie channel
func (a *RouteAuthenticator) SetTokenCookies(c router.Context, pair TokenPair) {
	a.setCookie(c, a.cfg.GetAccessCookieName(), pair.AccessToken, a.accessDuration)
	a.setCookie(c, a.cfg.GetRefreshCookieName(), pair.RefreshToken, a.refreshDuration)
}

// ClearTokenCookies expires both token cookies
func (a *RouteAuthenticator) ClearTokenCookies(c router.Context) {
	a.cookieDel(c, a.cfg.GetAccessCookieName())
	a.cookieDel(c, a.cfg.GetRefreshCookieName())
}

// RefreshTokenFromRequest reads the incoming refresh token from the cookie
// channel first and falls back to the request body value, so browser and
// non-browser clients both work.
func (a *RouteAuthenticator) RefreshTokenFromRequest(c router.Context, bodyToken string) string {
	if token := c.Cookies(a.cfg.GetRefreshCookieName()); token != "" {
		return token
	}
	return bodyToken
}

func (a *RouteAuthenticator) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) {
		richErr = ErrTokenMalformed
	} else {
		richErr = errors.Wrap(err, errors.CategoryAuth, "invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"authentication error",
		"error", richErr.Message,
		"path", c.OriginalURL(),
	)

	return JSONError(c, richErr)
}

// accessValidator adapts TokenService to the middleware's validator shape
type accessValidator struct {
	tokens TokenService
}

func (v accessValidator) Validate(tokenString string) (jwtware.Claims, error) {
	claims, err := v.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
