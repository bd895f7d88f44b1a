package httpserver

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

func pageParams(c echo.Context) (page, offset, limit int) {
	page = util.ParseIntDefault(c.QueryParam("page"), 1)
	if page < 1 {
		page = 1
	}
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	return page, offset, limit
}

func pageMeta(page, offset, limit int, total int64) transport.Meta {
	return transport.Meta{
		Page:       page,
		Size:       limit,
		Total:      total,
		TotalPages: (total + int64(limit) - 1) / int64(limit),
		HasPrev:    page > 1,
		HasNext:    int64(offset+limit) < total,
	}
}

func paged(c echo.Context, data any, meta transport.Meta) error {
	return c.JSON(http.StatusOK, map[string]any{
		"data": data,
		"meta": meta,
	})
}

// saveSession persists the session; a failure is logged and reported as a 500.
func saveSession(ctx context.Context, store session.Store, sess *session.Session) error {
	if err := store.Save(ctx, sess); err != nil {
		logging.FromContext(ctx).Error("session_save_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot save session")
	}
	return nil
}
