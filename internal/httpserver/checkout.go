package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

const EmptyCartRedirect = "/products"

type CheckoutHTTP struct {
	Svc      *service.CheckoutService
	Orders   *service.OrderService
	Sessions session.Store
}

func (h *CheckoutHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout")
	sess := sessionmw.Get(c)

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Svc.Checkout(ctx, sess, req)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			sess.AddNotice("Your cart is empty.")
			if saveErr := saveSession(ctx, h.Sessions, sess); saveErr != nil {
				return saveErr
			}
			l.Info("checkout_empty_cart", "status", 303)
			return c.Redirect(http.StatusSeeOther, EmptyCartRedirect)
		case errors.As(err, &verr):
			l.Warn("checkout_error", "status", 400, "reason", "invalid checkout form", "fields", verr.Fields)
			return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
				Message: "validation failed",
				Fields:  verr.Fields,
			})
		case errors.Is(err, service.ErrValidation):
			l.Warn("checkout_error", "status", 400, "reason", "invalid checkout form", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "validation failed")
		case errors.Is(err, service.ErrPromoInvalid):
			if saveErr := saveSession(ctx, h.Sessions, sess); saveErr != nil {
				return saveErr
			}
			l.Warn("checkout_error", "status", 400, "reason", "promo code does not exist", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid promo code")
		case errors.Is(err, service.ErrPromoUsed):
			if saveErr := saveSession(ctx, h.Sessions, sess); saveErr != nil {
				return saveErr
			}
			l.Warn("checkout_error", "status", 409, "reason", "promo code already used", "error", err)
			return echo.NewHTTPError(http.StatusConflict, "promo code has already been used")
		}
		l.Error("checkout_error", "status", 500, "reason", "transaction failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "an error occurred processing your order")
	}

	if err := saveSession(ctx, h.Sessions, sess); err != nil {
		return err
	}

	l.Info("checkout_success", "order_id", order.ID)
	return c.JSON(http.StatusCreated, orderResponse(order))
}

// GetOrder shows a confirmation for an order placed from this session.
func (h *CheckoutHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "order.get")

	id, ok := util.ParseID(c.Param("id"))
	if !ok || !sessionmw.Get(c).OwnsOrder(id) {
		l.Warn("get_order_failed", "status", 404, "reason", "not an order of this session", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusNotFound, "order not found")
	}

	order, err := h.Orders.GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("get_order_failed", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		l.Error("get_order_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot get order")
	}
	return c.JSON(http.StatusOK, orderResponse(order))
}

func orderResponse(o *models.Order) transport.OrderResponse {
	resp := transport.OrderResponse{Order: *o, Subtotal: o.TotalPrice.Add(o.Discount)}
	if resp.Items == nil {
		resp.Items = []models.OrderItem{}
	}
	return resp
}
