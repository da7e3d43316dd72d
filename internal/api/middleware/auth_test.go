package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookshelf/catalog-api/internal/core/domain"
	"github.com/bookshelf/catalog-api/internal/infrastructure/security"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) Revoke(_ context.Context, tokenID string, _ time.Time) error {
	s.revoked[tokenID] = true
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[tokenID], nil
}

func issueToken(t *testing.T, tm *security.TokenManager, id, role string) string {
	t.Helper()
	token, err := tm.Issue(&domain.User{ID: id, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

func runAuth(t *testing.T, mw echo.MiddlewareFunc, header string) (echo.Context, bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	c := e.NewContext(req, httptest.NewRecorder())

	called := false
	err := mw(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})(c)
	return c, called, err
}

func expectUnauthorized(t *testing.T, err error, called bool) {
	t.Helper()
	if called {
		t.Fatalf("next should not be called")
	}
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %v", err)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour)
	token := issueToken(t, tm, "user-1", domain.RoleAdmin)

	c, called, err := runAuth(t, Auth(tm, nil, zerolog.Nop()), "Bearer "+token)
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}

	identity, ok := c.Get(IdentityKey).(domain.Identity)
	if !ok {
		t.Fatalf("identity not set")
	}
	if identity.UserID != "user-1" || identity.Role != domain.RoleAdmin || identity.TokenID == "" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if c.Get(UserIDKey) != "user-1" || c.Get(RoleKey) != domain.RoleAdmin {
		t.Fatalf("user_id/role not set")
	}
}

func TestAuthMiddleware_SchemeIsCaseInsensitive(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour)
	token := issueToken(t, tm, "user-1", domain.RoleUser)

	_, called, err := runAuth(t, Auth(tm, nil, zerolog.Nop()), "bearer "+token)
	if err != nil || !called {
		t.Fatalf("expected lowercase scheme to be accepted, err=%v", err)
	}
}

func TestAuthMiddleware_MissingHeader(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour)
	_, called, err := runAuth(t, Auth(tm, nil, zerolog.Nop()), "")
	expectUnauthorized(t, err, called)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour)
	token := issueToken(t, tm, "user-1", domain.RoleUser)

	for _, header := range []string{token, "Basic " + token, "Bearer ", "Bearer"} {
		_, called, err := runAuth(t, Auth(tm, nil, zerolog.Nop()), header)
		expectUnauthorized(t, err, called)
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	token := issueToken(t, security.NewTokenManager("other", time.Hour), "user-1", domain.RoleAdmin)

	_, called, err := runAuth(t, Auth(security.NewTokenManager("secret", time.Hour), nil, zerolog.Nop()), "Bearer "+token)
	expectUnauthorized(t, err, called)
}

func TestAuthMiddleware_RevokedToken(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour)
	token := issueToken(t, tm, "user-1", domain.RoleUser)
	identity, err := tm.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}

	store := &stubRevocations{revoked: map[string]bool{identity.TokenID: true}}
	_, called, err := runAuth(t, Auth(tm, store, zerolog.Nop()), "Bearer "+token)
	expectUnauthorized(t, err, called)
}

func TestAuthMiddleware_RevocationStoreDownFailsOpen(t *testing.T) {
	tm := security.NewTokenManager("secret", time.Hour)
	token := issueToken(t, tm, "user-1", domain.RoleUser)

	store := &stubRevocations{err: errors.New("redis: connection refused")}
	_, called, err := runAuth(t, Auth(tm, store, zerolog.Nop()), "Bearer "+token)
	if err != nil || !called {
		t.Fatalf("expected request to pass when revocation store fails, err=%v", err)
	}
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": map[string]any{"id": "user-1", "role": domain.RoleAdmin},
		"jti":  "expired-jti",
		"iat":  issued.Unix(),
		"exp":  issued.Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tm := security.NewTokenManager("secret", time.Hour)
	_, called, err := runAuth(t, Auth(tm, nil, zerolog.Nop()), "Bearer "+signed)
	expectUnauthorized(t, err, called)
}

func TestAuthMiddleware_FreshTokenWithSameShapeIsAccepted(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": map[string]any{"id": "user-1", "role": domain.RoleAdmin},
		"jti":  "fresh-jti",
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	tm := security.NewTokenManager("secret", time.Hour)
	_, called, err := runAuth(t, Auth(tm, nil, zerolog.Nop()), "Bearer "+signed)
	if err != nil || !called {
		t.Fatalf("expected token to be accepted, err=%v", err)
	}
}
