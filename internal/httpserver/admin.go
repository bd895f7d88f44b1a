package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/storefront/internal/export"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/transport"
	"github.com/Skotchmaster/storefront/internal/util"
)

// AdminHTTP is the back office: catalog upkeep, promotion codes and orders.
type AdminHTTP struct {
	Catalog *service.CatalogService
	Promos  *service.PromoService
	Orders  *service.OrderService
}

func (h *AdminHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_products")

	page, offset, limit := pageParams(c)
	total, items, err := h.Catalog.GetProducts(ctx, offset, limit)
	if err != nil {
		l.Error("list_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}
	return paged(c, items, pageMeta(page, offset, limit, total))
}

func (h *AdminHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.create_product")

	var req transport.CreateProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("product_create_error", "status", 400, "reason", "invalid fields", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
			Message: "validation failed",
			Fields:  transport.FieldErrors(err),
		})
	}

	prod, err := h.Catalog.CreateProduct(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("product_create_error", "status", 400, "reason", "invalid body", "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("product_create_error", "status", 500, "reason", "cannot add product to db", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot add product to db")
	}

	l.Info("create_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *AdminHTTP) PatchProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.patch_product")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		l.Warn("product_patch_error", "status", 400, "reason", "bad id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	var req transport.PatchProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		l.Warn("product_patch_error", "status", 400, "reason", "invalid fields", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, transport.ErrorResponse{
			Message: "validation failed",
			Fields:  transport.FieldErrors(err),
		})
	}

	prod, err := h.Catalog.PatchProduct(ctx, id, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			l.Warn("product_patch_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		case errors.Is(err, service.ErrValidation):
			l.Warn("product_patch_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("product_patch_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot update product")
	}

	l.Info("patch_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *AdminHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.delete_product")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
		l.Warn("product_delete_error", "status", 400, "reason", "bad id", "id", c.Param("id"))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if err := h.Catalog.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			l.Warn("product_delete_error", "status", 404, "error", err)
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		l.Error("product_delete_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot delete product")
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHTTP) ExportProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.export_products")

	items, err := h.Catalog.AllProducts(ctx)
	if err != nil {
		l.Error("export_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot export products")
	}

	var buf bytes.Buffer
	if err := export.WriteProductsXLSX(&buf, items); err != nil {
		l.Error("export_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot export products")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", export.ProductsFilename(time.Now())))
	l.Info("export_success", "products", len(items))
	return c.Blob(http.StatusOK, export.XLSXContentType, buf.Bytes())
}

func (h *AdminHTTP) ReindexProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.reindex_products")

	n, err := h.Catalog.ReindexAll(ctx)
	if err != nil {
		l.Error("reindex_error", "status", 502, "indexed", n, "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "search index rejected the update")
	}
	return c.JSON(http.StatusOK, echo.Map{"indexed": n})
}

func (h *AdminHTTP) ListPromotions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_promotions")

	page, offset, limit := pageParams(c)
	total, items, err := h.Promos.List(ctx, offset, limit)
	if err != nil {
		l.Error("list_promotions_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list promotions")
	}
	return paged(c, items, pageMeta(page, offset, limit, total))
}

func (h *AdminHTTP) GeneratePromotions(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.generate_promotions")

	var req transport.GeneratePromotionsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("generate_promotions_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	codes, err := h.Promos.Generate(ctx, req.Count)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			l.Warn("generate_promotions_error", "status", 400, "error", err)
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		l.Error("generate_promotions_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot generate promotions")
	}

	l.Info("generate_promotions_success", "created", len(codes))
	return c.JSON(http.StatusCreated, echo.Map{"data": codes})
}

func (h *AdminHTTP) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.list_orders")

	page, offset, limit := pageParams(c)
	total, items, err := h.Orders.ListOrders(ctx, offset, limit)
	if err != nil {
		l.Error("list_orders_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list orders")
	}
	return paged(c, items, pageMeta(page, offset, limit, total))
}

func (h *AdminHTTP) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "admin.get_order")

	id, ok := util.ParseID(c.Param("id"))
	if !ok {
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
