package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/auth"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
)

type Deps struct {
	CatalogHandler  *CatalogHTTP
	CartHandler     *CartHTTP
	CheckoutHandler *CheckoutHTTP
	PaymentHandler  *PaymentHTTP
	AdminHandler    *AdminHTTP

	Session           sessionmw.Config
	CSRF              *csrf.Config // nil turns the check off
	AdminUser         string
	AdminPasswordHash string
	PromoApplyRate    float64

	// Ready reports whether backing stores answer; nil means always ready.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready == nil {
			return c.NoContent(http.StatusOK)
		}
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := d.Ready(ctx); err != nil {
			logging.FromContext(ctx).Warn("not_ready", "status", 503, "error", err)
			return c.NoContent(http.StatusServiceUnavailable)
		}
		return c.NoContent(http.StatusOK)
	})

	// Provider callbacks carry no session.
	e.POST("/payments/callback", d.PaymentHandler.Callback)

	shop := e.Group("", sessionmw.Load(d.Session))
	if d.CSRF != nil {
		shop.Use(csrf.Middleware(*d.CSRF))
	}

	products := shop.Group("/products")
	products.GET("", d.CatalogHandler.GetProducts)
	products.GET("/search", d.CatalogHandler.SearchProducts)
	products.GET("/:id", d.CatalogHandler.GetProduct)

	promoLimiter := echomw.RateLimiter(echomw.NewRateLimiterMemoryStore(rate.Limit(promoRate(d.PromoApplyRate))))

	cart := shop.Group("/cart")
	cart.GET("", d.CartHandler.GetCart)
	cart.GET("/count", d.CartHandler.CartCount)
	cart.POST("/items", d.CartHandler.AddToCart)
	cart.POST("/items/:product_id/decrease", d.CartHandler.DecreaseCartItem)
	cart.DELETE("/items/:product_id", d.CartHandler.RemoveCartItem)
	cart.POST("/promo", d.CartHandler.ApplyPromo, promoLimiter)
	cart.DELETE("/promo", d.CartHandler.ClearPromo)

	shop.POST("/checkout", d.CheckoutHandler.Checkout)
	shop.GET("/orders/:id", d.CheckoutHandler.GetOrder)
	shop.GET("/notices", d.CartHandler.Notices)

	admin := e.Group("/manage", auth.RequireAdmin(d.AdminUser, d.AdminPasswordHash))
	admin.GET("/products", d.AdminHandler.ListProducts)
	admin.POST("/products", d.AdminHandler.CreateProduct)
	admin.PATCH("/products/:id", d.AdminHandler.PatchProduct)
	admin.DELETE("/products/:id", d.AdminHandler.DeleteProduct)
	admin.GET("/products/export", d.AdminHandler.ExportProducts)
	admin.POST("/products/reindex", d.AdminHandler.ReindexProducts)
	admin.GET("/promotions", d.AdminHandler.ListPromotions)
	admin.POST("/promotions", d.AdminHandler.GeneratePromotions)
	admin.GET("/orders", d.AdminHandler.ListOrders)
	admin.GET("/orders/:id", d.AdminHandler.GetOrder)
}

func promoRate(r float64) float64 {
	if r <= 0 {
		return 1
	}
	return r
}
