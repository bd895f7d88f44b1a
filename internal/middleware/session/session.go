// Package sessionmw attaches the visitor session to every request.
package sessionmw

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
)

const (
	CookieName = "sessionid"
	contextKey = "session"
)

type Config struct {
	Store  session.Store
	Secret []byte
	TTL    time.Duration
	Secure bool
}

// Load resolves the session from the signed cookie. A missing, expired or tampered cookie
// starts a fresh session; a valid cookie whose data has expired or cannot be decoded keeps
// its id. When the cookie is reissued the stored data is saved again so both expire
// together. Other changes are saved by the handlers that make them.
func Load(cfg Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			l := logging.FromContext(ctx).With("middleware", "session")

			var sess *session.Session
			reissue := true

			if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
				claims, err := session.ParseToken(ck.Value, cfg.Secret)
				if err != nil {
					l.Info("session_token_rejected", "error", err)
				} else {
					reissue = claims.IssuedAt == nil || time.Since(claims.IssuedAt.Time) > cfg.TTL/2

					sess, err = cfg.Store.Load(ctx, claims.ID)
					switch {
					case errors.Is(err, session.ErrCorrupt):
						l.Warn("session_data_discarded", "session_id", claims.ID, "error", err)
						sess = session.WithID(claims.ID)
						if err := cfg.Store.Save(ctx, sess); err != nil {
							l.Error("session_refresh_failed", "error", err)
						}
					case errors.Is(err, session.ErrNotFound):
						sess = session.WithID(claims.ID)
					case err != nil:
						l.Error("session_load_failed", "status", 503, "error", err)
						return echo.NewHTTPError(http.StatusServiceUnavailable, "session store unavailable")
					case reissue:
						// the stored data must outlive the reissued cookie
						if err := cfg.Store.Save(ctx, sess); err != nil {
							l.Error("session_refresh_failed", "error", err)
						}
					}
				}
			}

			if sess == nil {
				sess = session.New()
				reissue = true
			}
			if reissue {
				if err := setCookie(c, cfg, sess.ID); err != nil {
					l.Error("session_cookie_failed", "status", 500, "error", err)
					return echo.NewHTTPError(http.StatusInternalServerError, "cannot start session")
				}
			}

			c.Set(contextKey, sess)
			return next(c)
		}
	}
}

// Get returns the session loaded for this request. Outside Load it returns a throwaway one.
func Get(c echo.Context) *session.Session {
	if s, ok := c.Get(contextKey).(*session.Session); ok {
		return s
	}
	return session.New()
}

func setCookie(c echo.Context, cfg Config, id string) error {
	now := time.Now()
	token, err := session.SignToken(id, cfg.Secret, now, cfg.TTL)
	if err != nil {
		return err
	}
	c.SetCookie(&http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		Expires:  now.Add(cfg.TTL),
		MaxAge:   int(cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
