package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

type CartHTTP struct {
	Svc      *service.CartService
	Promos   *service.PromoService
	Sessions session.Store
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.get")
	sess := sessionmw.Get(c)

	view, err := h.Svc.View(ctx, sess)
	if err != nil {
		l.Error("get_cart_error", "status", 500, "reason", "cannot build cart", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot load cart")
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CartHTTP) CartCount(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.count")

	n, err := h.Svc.Count(ctx, sessionmw.Get(c))
	if err != nil {
		l.Error("cart_count_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot count cart")
	}
	return c.JSON(http.StatusOK, echo.Map{"count": n})
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.add")
	sess := sessionmw.Get(c)

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	qty := service.ParseQuantity(string(req.Quantity))
	item, err := h.Svc.Add(ctx, sess, req.ProductID, qty)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("add_to_cart_error", "status", 400, "reason", "product_id required", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "product_id required")
		case errors.Is(err, service.ErrNotFound):
			l.Warn("add_to_cart_error", "status", 404, "reason", "product does not exist", "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("add_to_cart_error", "status", 500, "reason", "cannot add item", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add item to cart")
	}

	if err := saveSession(ctx, h.Sessions, sess); err != nil {
		return err
	}

	l.Info("add_to_cart_success", "product_id", req.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, echo.Map{
		"product_id": item.ProductID,
		"quantity":   item.Quantity,
	})
}

func (h *CartHTTP) DecreaseCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.decrease")

	productID, ok := util.ParseID(c.Param("product_id"))
	if !ok {
		l.Warn("decrease_error", "status", 400, "reason", "bad product id", "id", c.Param("product_id"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	sess := sessionmw.Get(c)
	if err := h.Svc.Decrease(ctx, sess, productID); err != nil {
		l.Error("decrease_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
	}
	if err := saveSession(ctx, h.Sessions, sess); err != nil {
		return err
	}
	return h.GetCart(c)
}

func (h *CartHTTP) RemoveCartItem(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.remove")

	productID, ok := util.ParseID(c.Param("product_id"))
	if !ok {
		l.Warn("remove_error", "status", 400, "reason", "bad product id", "id", c.Param("product_id"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	sess := sessionmw.Get(c)
	if err := h.Svc.Remove(ctx, sess, productID); err != nil {
		l.Error("remove_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update cart")
	}
	if err := saveSession(ctx, h.Sessions, sess); err != nil {
		return err
	}
	return h.GetCart(c)
}

func (h *CartHTTP) ApplyPromo(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "cart.apply_promo")
	sess := sessionmw.Get(c)

	var req transport.ApplyPromoRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("apply_promo_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	promo, err := h.Promos.Apply(ctx, sess, req.Code)
	if saveErr := saveSession(ctx, h.Sessions, sess); saveErr != nil {
		return saveErr
	}
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPromoInvalid):
			l.Warn("apply_promo_error", "status", 400, "reason", "unknown code", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, "invalid promo code")
		case errors.Is(err, service.ErrPromoUsed):
			l.Warn("apply_promo_error", "status", 409, "reason", "code already used", "error", err)
			return echo.NewHTTPError(http.StatusConflict, "promo code has already been used")
		}
		l.Error("apply_promo_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot apply promo code")
	}

	l.Info("apply_promo_success")
	return c.JSON(http.StatusOK, transport.PromoResponse{Code: promo.Code, DiscountAmount: promo.DiscountAmount})
}

func (h *CartHTTP) ClearPromo(c echo.Context) error {
	ctx := c.Request().Context()
	sess := sessionmw.Get(c)

	h.Promos.Clear(sess)
	if err := saveSession(ctx, h.Sessions, sess); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Notices hands out pending notices once.
func (h *CartHTTP) Notices(c echo.Context) error {
	ctx := c.Request().Context()
	sess := sessionmw.Get(c)

	notices := sess.PopNotices()
	if len(notices) > 0 {
		if err := saveSession(ctx, h.Sessions, sess); err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"notices": notices})
}
