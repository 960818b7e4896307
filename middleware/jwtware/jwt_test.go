package jwtware

import (
	"fmt"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClaims struct {
	uid string
	exp time.Time
}

func (s stubClaims) UserID() string { return s.uid }

func (s stubClaims) Expires() time.Time { return s.exp }

type stubValidator struct {
	claims Claims
	err    error
}

func (s stubValidator) Validate(tokenString string) (Claims, error) {
	return s.claims, s.err
}

// stubCtx overrides the extraction and response methods from the base
// MockContext with plain maps.
type stubCtx struct {
	*router.MockContext
	headers    map[string]string
	cookies    map[string]string
	queries    map[string]string
	locals     map[any]any
	nextCalled bool
	status     int
	sent       string
}

func newStubCtx() *stubCtx {
	return &stubCtx{
		MockContext: router.NewMockContext(),
		headers:     map[string]string{},
		cookies:     map[string]string{},
		queries:     map[string]string{},
		locals:      map[any]any{},
	}
}

func (s *stubCtx) GetString(key string, def string) string {
	if v, ok := s.headers[key]; ok {
		return v
	}
	return def
}

func (s *stubCtx) Cookies(key string, defaultValue ...string) string {
	if v, ok := s.cookies[key]; ok {
		return v
	}
	return ""
}

func (s *stubCtx) Query(key string, defaultValue ...string) string {
	if v, ok := s.queries[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (s *stubCtx) Param(key string, defaultValue ...string) string {
	return ""
}

func (s *stubCtx) Locals(key any, value ...any) any {
	if len(value) > 0 {
		s.locals[key] = value[0]
	}
	return s.locals[key]
}

func (s *stubCtx) Next() error {
	s.nextCalled = true
	return nil
}

func (s *stubCtx) Status(code int) router.Context {
	s.status = code
	return s
}

func (s *stubCtx) SendString(body string) error {
	s.sent = body
	return nil
}

func passthrough(ctx router.Context) error {
	return ctx.Next()
}

func TestMiddlewareValidToken(t *testing.T) {
	claims := stubClaims{uid: "user-1", exp: time.Now().Add(time.Minute)}

	mw := New(Config{
		SigningKey:     SigningKey{Key: []byte("secret"), JWTAlg: "HS256"},
		TokenValidator: stubValidator{claims: claims},
	})

	ctx := newStubCtx()
	ctx.headers[router.HeaderAuthorization] = "Bearer some.jwt.token"

	err := mw(passthrough)(ctx)
	require.NoError(t, err)

	assert.True(t, ctx.nextCalled)
	assert.Equal(t, claims, ctx.Locals("user"))
}

func TestMiddlewareMissingToken(t *testing.T) {
	mw := New(Config{
		SigningKey:     SigningKey{Key: []byte("secret")},
		TokenValidator: stubValidator{},
	})

	ctx := newStubCtx()

	err := mw(passthrough)(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusBadRequest, ctx.status)
	assert.Equal(t, ErrJWTMissingOrMalformed.Error(), ctx.sent)
}

func TestMiddlewareInvalidToken(t *testing.T) {
	mw := New(Config{
		SigningKey:     SigningKey{Key: []byte("secret")},
		TokenValidator: stubValidator{err: fmt.Errorf("signature is invalid")},
	})

	ctx := newStubCtx()
	ctx.headers[router.HeaderAuthorization] = "Bearer bad.jwt.token"

	err := mw(passthrough)(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusUnauthorized, ctx.status)
}

func TestMiddlewareFilterSkips(t *testing.T) {
	mw := New(Config{
		SigningKey:     SigningKey{Key: []byte("secret")},
		TokenValidator: stubValidator{err: fmt.Errorf("should not run")},
		Filter: func(router.Context) bool {
			return true
		},
	})

	ctx := newStubCtx()

	err := mw(passthrough)(ctx)
	require.NoError(t, err)
	assert.True(t, ctx.nextCalled)
}

func TestMiddlewareCustomContextKey(t *testing.T) {
	claims := stubClaims{uid: "user-9"}

	mw := New(Config{
		SigningKey:     SigningKey{Key: []byte("secret")},
		TokenValidator: stubValidator{claims: claims},
		ContextKey:     "identity",
	})

	ctx := newStubCtx()
	ctx.headers[router.HeaderAuthorization] = "Bearer some.jwt.token"

	err := mw(passthrough)(ctx)
	require.NoError(t, err)
	assert.Equal(t, claims, ctx.Locals("identity"))
}

func TestGetExtractors(t *testing.T) {
	t.Run("Header then cookie chain", func(t *testing.T) {
		extractors := GetExtractors("header:Authorization,cookie:access_token", "Bearer")
		require.Len(t, extractors, 2)

		ctx := newStubCtx()
		ctx.cookies["access_token"] = "from.cookie"

		raw, err := ExtractRawTokenFromContext(ctx, extractors)
		require.NoError(t, err)
		assert.Equal(t, "from.cookie", raw)
	})

	t.Run("Header wins when present", func(t *testing.T) {
		extractors := GetExtractors("header:Authorization,cookie:access_token", "Bearer")

		ctx := newStubCtx()
		ctx.headers["Authorization"] = "Bearer from.header"
		ctx.cookies["access_token"] = "from.cookie"

		raw, err := ExtractRawTokenFromContext(ctx, extractors)
		require.NoError(t, err)
		assert.Equal(t, "from.header", raw)
	})

	t.Run("Query", func(t *testing.T) {
		extractors := GetExtractors("query:auth_token")
		require.Len(t, extractors, 1)

		ctx := newStubCtx()
		ctx.queries["auth_token"] = "from.query"

		raw, err := ExtractRawTokenFromContext(ctx, extractors)
		require.NoError(t, err)
		assert.Equal(t, "from.query", raw)
	})

	t.Run("Wrong scheme", func(t *testing.T) {
		extractors := GetExtractors("header:Authorization", "Bearer")

		ctx := newStubCtx()
		ctx.headers["Authorization"] = "Basic dXNlcjpwYXNz"

		_, err := ExtractRawTokenFromContext(ctx, extractors)
		assert.Equal(t, ErrJWTMissingOrMalformed, err)
	})
}

func TestGetDefaultConfigRequiresValidatorOrKeys(t *testing.T) {
	assert.Panics(t, func() {
		GetDefaultConfig(Config{})
	})

	assert.NotPanics(t, func() {
		cfg := GetDefaultConfig(Config{
			SigningKey: SigningKey{Key: []byte("secret"), JWTAlg: "HS256"},
		})
		assert.NotNil(t, cfg.TokenValidator)
	})
}

func signToken(t *testing.T, key []byte, claims jwt.MapClaims) string {
	t.Helper()

	if claims["exp"] == nil {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestMiddlewareSigningKeyOnly(t *testing.T) {
	signingKey := []byte("test-secret")

	mw := New(Config{
		SigningKey: SigningKey{Key: signingKey, JWTAlg: jwt.SigningMethodHS256.Alg()},
	})

	token := signToken(t, signingKey, jwt.MapClaims{"sub": "user-42"})

	ctx := newStubCtx()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	err := mw(passthrough)(ctx)
	require.NoError(t, err)
	require.True(t, ctx.nextCalled)

	claims, ok := ctx.Locals("user").(Claims)
	require.True(t, ok)
	assert.Equal(t, "user-42", claims.UserID())
	assert.False(t, claims.Expires().IsZero())
}

func TestMiddlewareSigningKeyOnlyRejectsBadSignature(t *testing.T) {
	mw := New(Config{
		SigningKey: SigningKey{Key: []byte("test-secret"), JWTAlg: jwt.SigningMethodHS256.Alg()},
	})

	token := signToken(t, []byte("some-other-secret"), jwt.MapClaims{"sub": "user-42"})

	ctx := newStubCtx()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	err := mw(passthrough)(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusUnauthorized, ctx.status)
}

func TestMiddlewareSigningKeyOnlyRejectsExpired(t *testing.T) {
	signingKey := []byte("test-secret")

	mw := New(Config{
		SigningKey: SigningKey{Key: signingKey, JWTAlg: jwt.SigningMethodHS256.Alg()},
	})

	token := signToken(t, signingKey, jwt.MapClaims{
		"sub": "user-42",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})

	ctx := newStubCtx()
	ctx.headers[router.HeaderAuthorization] = "Bearer " + token

	err := mw(passthrough)(ctx)
	require.NoError(t, err)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, router.StatusUnauthorized, ctx.status)
}
