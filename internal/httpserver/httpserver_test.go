package httpserver

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/export"
	"github.com/Skotchmaster/storefront/internal/hash"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/testutil"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	adminUser     = "boss"
	adminPassword = "hunter2"
	webhookSecret = "hook-secret"
)

type testEnv struct {
	T        *testing.T
	E        *echo.Echo
	DB       *gorm.DB
	Events   *testutil.Publisher
	Checkout *service.CheckoutService
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	gdb := testutil.NewDB(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	sessions := session.NewRedisStore(rdb, time.Hour)

	adminHash, err := hash.HashPassword(adminPassword)
	require.NoError(t, err)

	events := &testutil.Publisher{}
	validate := transport.NewValidator()

	r := &repo.GormRepo{DB: gdb}
	catalogSvc := &service.CatalogService{Repo: r, Events: events}
	cartSvc := &service.CartService{Repo: r, Events: events}
	promoSvc := &service.PromoService{Repo: r, Events: events}
	orderSvc := &service.OrderService{Repo: r, Events: events, WebhookSecret: []byte(webhookSecret)}
	checkoutSvc := &service.CheckoutService{
		Repo:        r,
		Carts:       cartSvc,
		Promos:      promoSvc,
		Notifier:    &testutil.Notifier{},
		Events:      events,
		Validate:    validate,
		PaymentMode: config.PaymentModeInstant,
	}

	deps := &Deps{
		CatalogHandler:  &CatalogHTTP{Svc: catalogSvc},
		CartHandler:     &CartHTTP{Svc: cartSvc, Promos: promoSvc, Sessions: sessions},
		CheckoutHandler: &CheckoutHTTP{Svc: checkoutSvc, Orders: orderSvc, Sessions: sessions},
		PaymentHandler:  &PaymentHTTP{Orders: orderSvc},
		AdminHandler:    &AdminHTTP{Catalog: catalogSvc, Promos: promoSvc, Orders: orderSvc},
		Session: sessionmw.Config{
			Store:  sessions,
			Secret: []byte("session-secret"),
			TTL:    time.Hour,
		},
		AdminUser:         adminUser,
		AdminPasswordHash: adminHash,
		PromoApplyRate:    1000,
	}
	for _, opt := range opts {
		opt(deps)
	}

	e := echo.New()
	e.Validator = &transport.EchoValidator{V: validate}
	Register(e, deps)

	return &testEnv{T: t, E: e, DB: gdb, Events: events, Checkout: checkoutSvc}
}

// client keeps the session cookie between requests like a browser would.
type client struct {
	env    *testEnv
	cookie *http.Cookie
	admin  bool
}

func (env *testEnv) visitor() *client {
	return &client{env: env}
}

func (env *testEnv) operator() *client {
	return &client{env: env, admin: true}
}

func (c *client) do(method, target string, body any) *httptest.ResponseRecorder {
	c.env.T.Helper()

	var rdr *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.env.T, err)
		rdr = bytes.NewReader(raw)
	} else {
		rdr = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.admin {
		req.SetBasicAuth(adminUser, adminPassword)
	}

	rec := httptest.NewRecorder()
	c.env.E.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.Name == sessionmw.CookieName {
			c.cookie = ck
		}
	}
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func checkoutForm() transport.CheckoutRequest {
	return transport.CheckoutRequest{
		LastName:   "Lovelace",
		FirstName:  "Ada",
		Username:   "ada",
		Email:      "ada@example.com",
		Address:    "1 Analytical St",
		CardNumber: "4111111111111111",
		CardExpiry: "12/29",
	}
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/health/live", "/health/ready"} {
		rec := env.visitor().do(http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestProducts_ListDetailSearch(t *testing.T) {
	env := newTestEnv(t)
	var ids []uint
	for _, name := range []string{"Desk lamp", "Chair", "Table", "Floor lamp", "Shelf", "Rug"} {
		ids = append(ids, testutil.SeedProduct(t, env.DB, name, "10").ID)
	}
	v := env.visitor()

	rec := v.do(http.MethodGet, "/products?page=2&size=4", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[struct {
		Data []models.Product `json:"data"`
		Meta transport.Meta   `json:"meta"`
	}](t, rec)
	assert.Len(t, page.Data, 2)
	assert.EqualValues(t, 6, page.Meta.Total)
	assert.EqualValues(t, 2, page.Meta.TotalPages)
	assert.True(t, page.Meta.HasPrev)
	assert.False(t, page.Meta.HasNext)

	rec = v.do(http.MethodGet, "/products/1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decodeBody[transport.ProductPage](t, rec)
	assert.Equal(t, "Desk lamp", detail.Product.Name)
	require.Len(t, detail.Related, service.RelatedProductsLimit)
	assert.Equal(t, ids[5], detail.Related[0].ID)

	assert.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/products/999", nil).Code)
	assert.Equal(t, http.StatusNotFound, v.do(http.MethodGet, "/products/abc", nil).Code)

	rec = v.do(http.MethodGet, "/products/search?q="+url.QueryEscape("LAMP"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decodeBody[struct {
		Data []models.Product `json:"data"`
	}](t, rec)
	assert.Len(t, found.Data, 2)

	assert.Equal(t, http.StatusBadRequest, v.do(http.MethodGet, "/products/search?q=", nil).Code)
}

func TestCart_Flow(t *testing.T) {
	env := newTestEnv(t)
	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
	desk := testutil.SeedProduct(t, env.DB, "Desk", "120")
	v := env.visitor()

	rec := v.do(http.MethodGet, "/cart/count", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, decodeBody[map[string]int](t, rec)["count"])

	rec = v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID, "quantity": "2"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID, "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 5, decodeBody[map[string]any](t, rec)["quantity"])

	// junk quantity counts as one
	rec = v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": desk.ID, "quantity": "lots"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = v.do(http.MethodGet, "/cart/count", nil)
	assert.EqualValues(t, 6, decodeBody[map[string]int](t, rec)["count"])

	rec = v.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeBody[transport.CartView](t, rec)
	require.Len(t, view.Items, 2)
	assert.True(t, decimal.NewFromInt(2620).Equal(view.Total), view.Total.String())

	rec = v.do(http.MethodPost, "/cart/items/"+itoa(desk.ID)+"/decrease", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[transport.CartView](t, rec)
	require.Len(t, view.Items, 1)

	rec = v.do(http.MethodDelete, "/cart/items/"+itoa(lamp.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view = decodeBody[transport.CartView](t, rec)
	assert.Empty(t, view.Items)

	assert.Equal(t, http.StatusNotFound, v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": 999}).Code)
	assert.Equal(t, http.StatusBadRequest, v.do(http.MethodPost, "/cart/items", map[string]any{}).Code)
}

func TestCart_IsolatedPerSession(t *testing.T) {
	env := newTestEnv(t)
	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")

	a, b := env.visitor(), env.visitor()
	require.Equal(t, http.StatusOK, a.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID}).Code)

	rec := b.do(http.MethodGet, "/cart/count", nil)
	assert.EqualValues(t, 0, decodeBody[map[string]int](t, rec)["count"])
}

func TestPromo_ApplyAndCheckout(t *testing.T) {
	env := newTestEnv(t)
	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
	testutil.SeedPromo(t, env.DB, "SAVE300", "300")
	v := env.visitor()

	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID, "quantity": 3}).Code)

	rec := v.do(http.MethodPost, "/cart/promo", map[string]string{"code": "WRONG"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = v.do(http.MethodPost, "/cart/promo", map[string]string{"code": "SAVE300"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = v.do(http.MethodPost, "/checkout", checkoutForm())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decodeBody[transport.OrderResponse](t, rec)
	assert.True(t, decimal.NewFromInt(1200).Equal(order.TotalPrice), order.TotalPrice.String())
	assert.True(t, decimal.NewFromInt(1500).Equal(order.Subtotal), order.Subtotal.String())
	assert.Equal(t, "************1111", order.CardNumber)
	assert.Equal(t, models.OrderStatusPaid, order.Status)

	rec = v.do(http.MethodGet, "/orders/"+itoa(order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// another visitor cannot open it
	assert.Equal(t, http.StatusNotFound, env.visitor().do(http.MethodGet, "/orders/"+itoa(order.ID), nil).Code)

	rec = v.do(http.MethodGet, "/cart/count", nil)
	assert.EqualValues(t, 0, decodeBody[map[string]int](t, rec)["count"])

	// the code is spent now
	other := env.visitor()
	rec = other.do(http.MethodPost, "/cart/promo", map[string]string{"code": "SAVE300"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestPromo_Clear(t *testing.T) {
	env := newTestEnv(t)
	testutil.SeedPromo(t, env.DB, "SAVE100", "100")
	v := env.visitor()

	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/promo", map[string]string{"code": "SAVE100"}).Code)
	require.Equal(t, http.StatusNoContent, v.do(http.MethodDelete, "/cart/promo", nil).Code)

	view := decodeBody[transport.CartView](t, v.do(http.MethodGet, "/cart", nil))
	assert.Empty(t, view.PromoCode)
}

func TestCheckout_EmptyCartRedirects(t *testing.T) {
	env := newTestEnv(t)
	v := env.visitor()

	rec := v.do(http.MethodPost, "/checkout", checkoutForm())
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, EmptyCartRedirect, rec.Header().Get(echo.HeaderLocation))

	rec = v.do(http.MethodGet, "/notices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	notices := decodeBody[map[string][]string](t, rec)["notices"]
	assert.Equal(t, []string{"Your cart is empty."}, notices)

	rec = v.do(http.MethodGet, "/notices", nil)
	assert.Empty(t, decodeBody[map[string][]string](t, rec)["notices"])
}

func TestCheckout_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)
	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
	v := env.visitor()
	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID}).Code)

	form := checkoutForm()
	form.CardNumber = "1234"
	form.CardExpiry = "1/2"

	rec := v.do(http.MethodPost, "/checkout", form)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[transport.ErrorResponse](t, rec)
	assert.Contains(t, body.Fields, "card_number")
	assert.Contains(t, body.Fields, "card_expiry")

	var n int64
	require.NoError(t, env.DB.Model(&models.Order{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPaymentCallback(t *testing.T) {
	env := newTestEnv(t)
	env.Checkout.PaymentMode = config.PaymentModeCallback
	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
	v := env.visitor()
	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID}).Code)

	rec := v.do(http.MethodPost, "/checkout", checkoutForm())
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[transport.OrderResponse](t, rec)
	require.Equal(t, models.OrderStatusPending, order.Status)

	body := []byte(`{"order_id":` + itoa(order.ID) + `,"status":"paid","payment_ref":"tx-9"}`)
	callback := func(sig string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/payments/callback", bytes.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.Header.Set(SignatureHeader, sig)
		rec := httptest.NewRecorder()
		env.E.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusUnauthorized, callback("00").Code)

	good := hex.EncodeToString(service.Sign([]byte(webhookSecret), body))
	rec = callback(good)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var stored models.Order
	require.NoError(t, env.DB.First(&stored, order.ID).Error)
	assert.Equal(t, models.OrderStatusPaid, stored.Status)
	assert.Equal(t, "tx-9", stored.PaymentRef)

	assert.Equal(t, http.StatusConflict, callback(good).Code)
}

func TestAdmin_RequiresAuth(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusUnauthorized, env.visitor().do(http.MethodGet, "/manage/products", nil).Code)
	assert.Equal(t, http.StatusOK, env.operator().do(http.MethodGet, "/manage/products", nil).Code)
}

func TestAdmin_ProductLifecycle(t *testing.T) {
	env := newTestEnv(t)
	op := env.operator()

	rec := op.do(http.MethodPost, "/manage/products", map[string]any{"name": "", "price": "1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = op.do(http.MethodPost, "/manage/products", map[string]any{"name": "Lamp", "price": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = op.do(http.MethodPost, "/manage/products", map[string]any{"name": "Lamp", "description": "warm", "price": "19.99"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeBody[models.Product](t, rec)

	rec = op.do(http.MethodPatch, "/manage/products/"+itoa(created.ID), map[string]any{"price": "24.50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	patched := decodeBody[models.Product](t, rec)
	assert.Equal(t, "Lamp", patched.Name)
	assert.True(t, decimal.RequireFromString("24.5").Equal(patched.Price))

	rec = op.do(http.MethodGet, "/manage/products/export", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, export.XLSXContentType, rec.Header().Get(echo.HeaderContentType))
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), "attachment;"))
	assert.NotZero(t, rec.Body.Len())

	require.Equal(t, http.StatusNoContent, op.do(http.MethodDelete, "/manage/products/"+itoa(created.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, op.do(http.MethodDelete, "/manage/products/"+itoa(created.ID), nil).Code)

	assert.Contains(t, env.Events.Topics(), service.TopicProductEvents)
}

func TestAdmin_PromotionsAndOrders(t *testing.T) {
	env := newTestEnv(t)
	op := env.operator()

	rec := op.do(http.MethodPost, "/manage/promotions", map[string]int{"count": 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	gen := decodeBody[struct {
		Data []models.PromotionCode `json:"data"`
	}](t, rec)
	require.Len(t, gen.Data, 3)

	rec = op.do(http.MethodGet, "/manage/promotions", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusBadRequest, op.do(http.MethodPost, "/manage/promotions", map[string]int{"count": service.MaxPromoBatch + 1}).Code)

	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
	v := env.visitor()
	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID}).Code)
	require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/promo", map[string]string{"code": gen.Data[0].Code}).Code)
	rec = v.do(http.MethodPost, "/checkout", checkoutForm())
	require.Equal(t, http.StatusCreated, rec.Code)
	order := decodeBody[transport.OrderResponse](t, rec)

	rec = op.do(http.MethodGet, "/manage/orders", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[struct {
		Data []models.Order `json:"data"`
		Meta transport.Meta `json:"meta"`
	}](t, rec)
	assert.EqualValues(t, 1, list.Meta.Total)

	rec = op.do(http.MethodGet, "/manage/orders/"+itoa(order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[transport.OrderResponse](t, rec)
	assert.Equal(t, gen.Data[0].Code, got.PromoCode)
}

func TestCSRF_GuardsSessionRoutes(t *testing.T) {
	env := newTestEnv(t, func(d *Deps) { d.CSRF = &csrf.Config{} })
	lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
	v := env.visitor()

	rec := v.do(http.MethodGet, "/cart", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Header().Get(csrf.DefaultHeaderName)
	require.NotEmpty(t, token)
	var csrfCookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == csrf.DefaultCookieName {
			csrfCookie = ck
		}
	}
	require.NotNil(t, csrfCookie)

	add := func(withToken bool) int {
		raw, err := json.Marshal(map[string]any{"product_id": lamp.ID})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewReader(raw))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		req.AddCookie(v.cookie)
		req.AddCookie(csrfCookie)
		if withToken {
			req.Header.Set(csrf.DefaultHeaderName, token)
		}
		rec := httptest.NewRecorder()
		env.E.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusForbidden, add(false))
	assert.Equal(t, http.StatusOK, add(true))

	// the provider callback carries no browser cookies
	assert.Equal(t, http.StatusUnauthorized, env.visitor().do(http.MethodPost, "/payments/callback", map[string]int{"order_id": 1}).Code)
}

func TestCheckout_PromoFailuresAreDistinct(t *testing.T) {
	tests := []struct {
		name    string
		spoil   func(db *gorm.DB, code string) error
		status  int
		message string
		notice  string
	}{
		{
			name: "code deleted",
			spoil: func(db *gorm.DB, code string) error {
				return db.Where("code = ?", code).Delete(&models.PromotionCode{}).Error
			},
			status:  http.StatusBadRequest,
			message: "invalid promo code",
			notice:  service.NoticePromoInvalid,
		},
		{
			name: "code spent",
			spoil: func(db *gorm.DB, code string) error {
				return db.Model(&models.PromotionCode{}).Where("code = ?", code).Update("is_used", true).Error
			},
			status:  http.StatusConflict,
			message: "promo code has already been used",
			notice:  service.NoticePromoUsed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			lamp := testutil.SeedProduct(t, env.DB, "Lamp", "500")
			testutil.SeedPromo(t, env.DB, "CODE1", "100")
			v := env.visitor()

			require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/items", map[string]any{"product_id": lamp.ID}).Code)
			require.Equal(t, http.StatusOK, v.do(http.MethodPost, "/cart/promo", map[string]string{"code": "CODE1"}).Code)
			require.NoError(t, tt.spoil(env.DB, "CODE1"))

			rec := v.do(http.MethodPost, "/checkout", checkoutForm())
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.message, decodeBody[map[string]string](t, rec)["message"])

			rec = v.do(http.MethodGet, "/notices", nil)
			assert.Equal(t, []string{tt.notice}, decodeBody[map[string][]string](t, rec)["notices"])

			view := decodeBody[transport.CartView](t, v.do(http.MethodGet, "/cart", nil))
			assert.Empty(t, view.PromoCode)
			assert.Len(t, view.Items, 1)

			var n int64
			require.NoError(t, env.DB.Model(&models.Order{}).Count(&n).Error)
			assert.Zero(t, n)
		})
	}
}
