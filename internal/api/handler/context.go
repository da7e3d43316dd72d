package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bookshelf/catalog-api/internal/api/middleware"
	"github.com/bookshelf/catalog-api/internal/core/domain"
)

// ctxIdentity extracts the identity injected by the Auth middleware. A missing
// identity means the route was registered without the middleware; reject with
// 401 rather than let the service treat the caller as anonymous.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := c.Get(middleware.IdentityKey).(domain.Identity)
	if !ok || id.UserID == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
