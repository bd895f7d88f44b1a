package loggingmw

import (
	"log/slog"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/logging"
)

type Config struct {
	Logger  *slog.Logger
	Skipper echomw.Skipper
}

// SkipProbes keeps liveness and readiness checks out of the request log.
func SkipProbes(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/health/")
}

func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return RequestLoggerWithConfig(Config{Logger: base, Skipper: SkipProbes})
}

// RequestLoggerWithConfig puts a request scoped logger into the request context and writes
// one line per finished request. Errors returned by handlers are rendered here so the
// logged status is the one the client saw.
func RequestLoggerWithConfig(cfg Config) echo.MiddlewareFunc {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Skipper == nil {
		cfg.Skipper = echomw.DefaultSkipper
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = res.Header().Get(echo.HeaderXRequestID)
			}

			l := cfg.Logger
			if rid != "" {
				l = l.With("request_id", rid)
			}
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))

			if cfg.Skipper(c) {
				return next(c)
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			attrs := []any{
				"method", req.Method,
				"route", c.Path(),
				"url", req.URL.Path,
				"remote_ip", c.RealIP(),
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			switch {
			case res.Status >= 500:
				l.Error("http_request", append(attrs, "error", err)...)
			case res.Status >= 400:
				l.Warn("http_request", attrs...)
			default:
				l.Info("http_request", append(attrs, "bytes", res.Size, "user_agent", req.UserAgent())...)
			}
			return nil
		}
	}
}
