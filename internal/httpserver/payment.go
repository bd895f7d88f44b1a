package httpserver

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	SignatureHeader = "X-Signature"
	maxCallbackBody = 64 << 10
)

type PaymentHTTP struct {
	Orders *service.OrderService
}

// Callback accepts a signed payment notification and marks the order paid.
func (h *PaymentHTTP) Callback(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "payment.callback")

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		l.Warn("payment_callback_error", "status", 400, "reason", "cannot read body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	if !h.Orders.VerifySignature(body, c.Request().Header.Get(SignatureHeader)) {
		l.Warn("payment_callback_error", "status", 401, "reason", "bad signature")
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var req transport.PaymentCallbackRequest
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&req); err != nil {
		l.Warn("payment_callback_error", "status", 400, "reason", "invalid json", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	order, err := h.Orders.ConfirmPayment(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrValidation):
			l.Warn("payment_callback_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrNotFound):
			l.Warn("payment_callback_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrConflict):
			l.Warn("payment_callback_error", "status", 409, "error", err)
			return echo.NewHTTPError(http.StatusConflict, "order is not pending")
		}
		l.Error("payment_callback_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot confirm payment")
	}

	l.Info("payment_confirmed", "order_id", order.ID)
	return c.JSON(http.StatusOK, echo.Map{"order_id": order.ID, "status": order.Status})
}
