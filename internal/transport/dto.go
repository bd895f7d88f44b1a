package transport

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/models"
)

type CreateProductRequest struct {
	Name        string          `json:"name"        validate:"required,max=100"`
	Description string          `json:"description" validate:"max=100"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url"   validate:"omitempty,url,max=500"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"        validate:"omitempty,min=1,max=100"`
	Description *string          `json:"description" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"   validate:"omitempty,url,max=500"`
}

// Loose keeps whatever the client sent as text. Quantities come from untrusted forms and
// are parsed later, so decoding never fails on them.
type Loose string

func (l *Loose) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*l = Loose(s)
		return nil
	}
	*l = Loose(strings.TrimSpace(string(b)))
	return nil
}

// UnmarshalParam lets echo bind the value from form and query params.
func (l *Loose) UnmarshalParam(param string) error {
	*l = Loose(param)
	return nil
}

type AddToCartRequest struct {
	ProductID uint  `json:"product_id" form:"product_id"`
	Quantity  Loose `json:"quantity"   form:"quantity"`
}

type ApplyPromoRequest struct {
	Code string `json:"code" form:"code"`
}

type CheckoutRequest struct {
	LastName   string `json:"last_name"   form:"last_name"   validate:"required,max=50"`
	FirstName  string `json:"first_name"  form:"first_name"  validate:"required,max=50"`
	Username   string `json:"username"    form:"username"    validate:"required,max=50"`
	Email      string `json:"email"       form:"email"       validate:"omitempty,email,max=254"`
	Address    string `json:"address"     form:"address"     validate:"required,max=250"`
	CardName   string `json:"card_name"   form:"card_name"   validate:"omitempty,max=100"`
	CardNumber string `json:"card_number" form:"card_number" validate:"required,len=16,number"`
	CardExpiry string `json:"card_expiry" form:"card_expiry" validate:"required,card_expiry"`
}

type PaymentCallbackRequest struct {
	OrderID    uint   `json:"order_id"    validate:"required"`
	Status     string `json:"status"      validate:"required"`
	PaymentRef string `json:"payment_ref" validate:"max=100"`
}

type GeneratePromotionsRequest struct {
	Count int `json:"count" form:"count"`
}

type CartLine struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	ImageURL  string          `json:"image_url,omitempty"`
	Price     decimal.Decimal `json:"price"`
	Quantity  uint            `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartView struct {
	Items     []CartLine      `json:"items"`
	Count     int64           `json:"count"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	PromoCode string          `json:"promo_code,omitempty"`
	Discount  decimal.Decimal `json:"discount"`
	Total     decimal.Decimal `json:"total"`
}

type ProductPage struct {
	Product models.Product   `json:"product"`
	Related []models.Product `json:"related"`
}

type PromoResponse struct {
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
}

type OrderResponse struct {
	models.Order
	Subtotal decimal.Decimal `json:"subtotal"`
}

type ErrorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type Meta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}

type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}
