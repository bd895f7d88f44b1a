package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const receiptTimeout = 10 * time.Second

// Notices left on the session when the applied code fails at checkout.
const (
	NoticePromoInvalid = "The promo code does not exist and was removed from your cart."
	NoticePromoUsed    = "The promo code has already been used and was removed from your cart."
)

// Notifier delivers the order receipt. Delivery is best effort.
type Notifier interface {
	SendReceipt(ctx context.Context, order *models.Order) error
}

type CheckoutService struct {
	Repo        *repo.GormRepo
	Carts       *CartService
	Promos      *PromoService
	Notifier    Notifier
	Events      Publisher
	Validate    *validator.Validate
	PaymentMode string
}

// Checkout turns the session cart into an order. Order creation, code consumption and
// emptying the cart commit together or not at all. On success the session forgets the
// applied code and remembers the order; the caller persists the session.
func (s *CheckoutService) Checkout(ctx context.Context, sess *session.Session, req transport.CheckoutRequest) (*models.Order, error) {
	l := logging.FromContext(ctx).With("op", "checkout")

	cart, err := s.Carts.Resolve(ctx, sess, false)
	if err != nil {
		return nil, err
	}
	if cart == nil {
		return nil, ErrEmptyCart
	}
	n, err := s.Repo.CountCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrEmptyCart
	}

	req = normalizeCheckout(req)
	if err := s.Validate.Struct(req); err != nil {
		if fields := transport.FieldErrors(err); fields != nil {
			return nil, &ValidationError{Fields: fields}
		}
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	code := sess.AppliedPromoCode
	var order models.Order

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		items, err := tx.GetCartItems(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		subtotal := Subtotal(items)
		discount := decimal.Zero
		if code != "" {
			p, err := s.Promos.Lookup(ctx, tx, code)
			if err != nil {
				return err
			}
			discount = p.DiscountAmount
		}
		total := ApplyDiscount(subtotal, discount)

		order = models.Order{
			LastName:   req.LastName,
			FirstName:  req.FirstName,
			Username:   req.Username,
			Email:      req.Email,
			Address:    req.Address,
			CardName:   req.CardName,
			CardNumber: MaskCardNumber(req.CardNumber),
			CardExpiry: req.CardExpiry,
			PromoCode:  code,
			Discount:   subtotal.Sub(total),
			TotalPrice: total,
			Status:     s.initialStatus(),
			Items:      snapshotItems(items),
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return err
		}

		if code != "" {
			if err := s.Promos.Consume(ctx, tx, code, order.ID); err != nil {
				return err
			}
		}

		return tx.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrPromoInvalid):
			sess.ClearPromo()
			sess.AddNotice(NoticePromoInvalid)
			return nil, err
		case errors.Is(err, ErrPromoUsed):
			sess.ClearPromo()
			sess.AddNotice(NoticePromoUsed)
			return nil, err
		case errors.Is(err, ErrEmptyCart):
			return nil, err
		}
		return nil, fmt.Errorf("checkout transaction: %w", err)
	}

	sess.ClearPromo()
	sess.RememberOrder(order.ID)
	l.Info("order_created", "order_id", order.ID, "total", order.TotalPrice.String(), "promo", code != "")

	publish(ctx, s.Events, TopicOrderEvents, idKey(order.ID), "order_created", &order)
	s.sendReceipt(ctx, &order)

	return &order, nil
}

func (s *CheckoutService) initialStatus() models.OrderStatus {
	if s.PaymentMode == config.PaymentModeCallback {
		return models.OrderStatusPending
	}
	return models.OrderStatusPaid
}

func (s *CheckoutService) sendReceipt(ctx context.Context, order *models.Order) {
	if s.Notifier == nil || order.Email == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receiptTimeout)
	defer cancel()
	if err := s.Notifier.SendReceipt(ctx, order); err != nil {
		logging.FromContext(ctx).Error("receipt_send_failed", "order_id", order.ID, "error", err)
	}
}

func snapshotItems(items []models.CartItem) []models.OrderItem {
	out := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		pid := it.ProductID
		out = append(out, models.OrderItem{
			ProductID:    &pid,
			ProductName:  it.Product.Name,
			ProductPrice: it.Product.Price,
			Quantity:     it.Quantity,
		})
	}
	return out
}

func normalizeCheckout(req transport.CheckoutRequest) transport.CheckoutRequest {
	req.LastName = strings.TrimSpace(req.LastName)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.Address = strings.TrimSpace(req.Address)
	req.CardName = strings.TrimSpace(req.CardName)
	req.CardNumber = strings.ReplaceAll(strings.TrimSpace(req.CardNumber), " ", "")
	req.CardExpiry = strings.TrimSpace(req.CardExpiry)
	return req
}

// MaskCardNumber keeps the last four digits only.
func MaskCardNumber(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
