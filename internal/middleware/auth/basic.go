package auth

import (
	"crypto/subtle"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/logging"
)

const Realm = "Main"

// RequireAdmin guards the back office with HTTP Basic auth against a single operator
// account. With no account configured every request is refused.
func RequireAdmin(user, passwordHash string) echo.MiddlewareFunc {
	return middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
		Realm: Realm,
		Validator: func(u, p string, c echo.Context) (bool, error) {
			if user == "" || passwordHash == "" {
				return false, nil
			}
			userOK := subtle.ConstantTimeCompare([]byte(u), []byte(user)) == 1
			passOK := hash.CheckPassword(passwordHash, p)
			if !userOK || !passOK {
				logging.FromContext(c.Request().Context()).Warn("admin_auth_failed", "status", 401, "username", u)
				return false, nil
			}
			return true, nil
		},
	})
}
