package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/bookshelf/catalog-api/internal/core/ports"
	"github.com/bookshelf/catalog-api/internal/infrastructure/metrics"
)

// Context keys set by Auth.
const (
	IdentityKey = "identity"
	UserIDKey   = "user_id"
	RoleKey     = "role"
)

// Auth validates the bearer token and injects the caller's identity into the
// context. revocations may be nil; when the store errors the token is accepted.
func Auth(verifier ports.TokenVerifier, revocations ports.TokenRevoker, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				metrics.AuthRejectedTotal.WithLabelValues("missing_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				metrics.AuthRejectedTotal.WithLabelValues("malformed_header").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
			}

			identity, err := verifier.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				metrics.AuthRejectedTotal.WithLabelValues("invalid_token").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			if revocations != nil && identity.TokenID != "" {
				revoked, err := revocations.IsRevoked(c.Request().Context(), identity.TokenID)
				switch {
				case err != nil:
					log.Warn().Err(err).Str("token_id", identity.TokenID).Msg("revocation lookup failed, accepting token")
				case revoked:
					metrics.AuthRejectedTotal.WithLabelValues("revoked").Inc()
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			c.Set(IdentityKey, identity)
			c.Set(UserIDKey, identity.UserID)
			c.Set(RoleKey, identity.Role)

			return next(c)
		}
	}
}
