package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          uint            `gorm:"primaryKey;autoIncrement"          json:"id"`
	Name        string          `gorm:"size:100;not null"                 json:"name"`
	Description string          `gorm:"size:100"                          json:"description,omitempty"`
	Price       decimal.Decimal `gorm:"type:decimal(8,2);not null"        json:"price"`
	ImageURL    string          `gorm:"size:500"                          json:"image_url,omitempty"`
	CreatedAt   time.Time       `                                         json:"created_at"`
	UpdatedAt   time.Time       `                                         json:"updated_at"`
}

// Cart is never deleted; abandoned carts stay behind.
type Cart struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"                    json:"id"`
	CreatedAt time.Time  `                                               json:"created_at"`
	Items     []CartItem `gorm:"constraint:OnDelete:CASCADE"             json:"items,omitempty"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CartItem struct {
	ID        uint      `gorm:"primaryKey"                                        json:"id"`
	CartID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_product;not null"   json:"cart_id"`
	ProductID uint      `gorm:"uniqueIndex:idx_cart_product;not null"             json:"product_id"`
	Product   Product   `gorm:"constraint:OnDelete:CASCADE"                       json:"product"`
	Quantity  uint      `gorm:"not null;check:quantity>0"                         json:"quantity"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Product.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type PromotionCode struct {
	ID             uint            `gorm:"primaryKey"                         json:"id"`
	Code           string          `gorm:"size:32;uniqueIndex;not null"       json:"code"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(8,2);not null"         json:"discount_amount"`
	IsUsed         bool            `gorm:"not null;default:false;index"       json:"is_used"`
	OrderID        *uint           `gorm:"index"                              json:"order_id,omitempty"`
	UsedAt         *time.Time      `                                          json:"used_at,omitempty"`
	CreatedAt      time.Time       `                                          json:"created_at"`
}

type OrderStatus string

const (
	OrderStatusPending OrderStatus = "pending"
	OrderStatusPaid    OrderStatus = "paid"
)

type Order struct {
	ID         uint            `gorm:"primaryKey"                      json:"id"`
	LastName   string          `gorm:"size:50;not null"                json:"last_name"`
	FirstName  string          `gorm:"size:50;not null"                json:"first_name"`
	Username   string          `gorm:"size:50;not null"                json:"username"`
	Email      string          `gorm:"size:254"                        json:"email,omitempty"`
	Address    string          `gorm:"size:250;not null"               json:"address"`
	CardName   string          `gorm:"size:100"                        json:"card_name,omitempty"`
	CardNumber string          `gorm:"size:16"                         json:"card_number,omitempty"`
	CardExpiry string          `gorm:"size:5"                          json:"card_expiry,omitempty"`
	PromoCode  string          `gorm:"size:32"                         json:"promo_code,omitempty"`
	Discount   decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"discount"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"     json:"total_price"`
	Status     OrderStatus     `gorm:"size:10;not null;index"          json:"status"`
	PaymentRef string          `gorm:"size:100"                        json:"payment_ref,omitempty"`
	CreatedAt  time.Time       `                                       json:"created_at"`
	UpdatedAt  time.Time       `                                       json:"updated_at"`
	Items      []OrderItem     `gorm:"constraint:OnDelete:CASCADE"     json:"items"`
}

// OrderItem keeps its own copy of the product name and price; ProductID is nulled when
// the product goes away.
type OrderItem struct {
	ID           uint            `gorm:"primaryKey"                                json:"id"`
	OrderID      uint            `gorm:"index;not null"                            json:"order_id"`
	ProductID    *uint           `gorm:"index"                                     json:"product_id"`
	Product      *Product        `gorm:"constraint:OnDelete:SET NULL"              json:"-"`
	ProductName  string          `gorm:"size:100;not null"                         json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"               json:"product_price"`
	Quantity     uint            `gorm:"not null;default:1;check:quantity>0"       json:"quantity"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
