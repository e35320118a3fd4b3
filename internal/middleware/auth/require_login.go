package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/dkoval/market_api/internal/token"
)

// Middleware guards auth-sensitive routes with the bearer token issued at
// login. A missing or invalid token fails with 401 before any handler
// logic runs.
type Middleware struct {
	Tokens *token.Service
}

func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		if header == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}

		raw := strings.TrimPrefix(header, "Bearer ")
		if raw == header || raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Not authenticated")
		}

		userID, err := m.Tokens.Verify(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		c.Set("userID", userID)
		return next(c)
	}
}
