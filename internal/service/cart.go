package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type CartService struct {
	Repo   *repo.GormRepo
	Events Publisher
}

// ParseQuantity reads a requested quantity from untrusted input. Anything that is not a
// positive integer counts as 1.
func ParseQuantity(raw string) uint {
	n, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || n == 0 {
		return 1
	}
	return uint(n)
}

// Resolve returns the cart the session points at. With create set, a missing or stale
// cart is replaced by a new one and the session is updated; otherwise nil is returned.
// The caller persists the session.
func (s *CartService) Resolve(ctx context.Context, sess *session.Session, create bool) (*models.Cart, error) {
	if sess.CartID != nil {
		cart, err := s.Repo.GetCart(ctx, *sess.CartID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		logging.FromContext(ctx).Warn("stale_cart_reference", "cart_id", sess.CartID.String())
		sess.ForgetCart()
	}

	if !create {
		return nil, nil
	}

	cart, err := s.Repo.CreateCart(ctx)
	if err != nil {
		return nil, err
	}
	sess.SetCart(cart.ID)
	return cart, nil
}

func (s *CartService) Add(ctx context.Context, sess *session.Session, productID uint, quantity uint) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("%w: product_id required", ErrValidation)
	}
	if quantity == 0 {
		quantity = 1
	}

	if _, err := s.Repo.GetProduct(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return nil, err
	}

	cart, err := s.Resolve(ctx, sess, true)
	if err != nil {
		return nil, err
	}

	item, err := s.Repo.AddCartItem(ctx, cart.ID, productID, quantity)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicCartEvents, cart.ID.String(), "cart_item_added", map[string]any{
		"cart_id":    cart.ID,
		"product_id": productID,
		"added":      quantity,
		"quantity":   item.Quantity,
	})
	return item, nil
}

// Decrease takes one unit off the line. Missing carts and lines are a no-op.
func (s *CartService) Decrease(ctx context.Context, sess *session.Session, productID uint) error {
	cart, err := s.Resolve(ctx, sess, false)
	if err != nil || cart == nil {
		return err
	}

	deleted, item, err := s.Repo.DecreaseCartItem(ctx, cart.ID, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var left uint
	if !deleted {
		left = item.Quantity
	}
	publish(ctx, s.Events, TopicCartEvents, cart.ID.String(), "cart_item_decreased", map[string]any{
		"cart_id":    cart.ID,
		"product_id": productID,
		"quantity":   left,
	})
	return nil
}

// Remove drops the whole line. Missing carts and lines are a no-op.
func (s *CartService) Remove(ctx context.Context, sess *session.Session, productID uint) error {
	cart, err := s.Resolve(ctx, sess, false)
	if err != nil || cart == nil {
		return err
	}

	removed, err := s.Repo.RemoveCartItem(ctx, cart.ID, productID)
	if err != nil {
		return err
	}
	if removed {
		publish(ctx, s.Events, TopicCartEvents, cart.ID.String(), "cart_item_removed", map[string]any{
			"cart_id":    cart.ID,
			"product_id": productID,
		})
	}
	return nil
}

func (s *CartService) Count(ctx context.Context, sess *session.Session) (int64, error) {
	cart, err := s.Resolve(ctx, sess, false)
	if err != nil || cart == nil {
		return 0, err
	}
	return s.Repo.CountCartItems(ctx, cart.ID)
}

func (s *CartService) Total(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	items, err := s.Repo.GetCartItems(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}
	return Subtotal(items), nil
}

// View renders the cart with the advisory discount of the applied code. A code that has
// been spent since it was applied shows no discount.
func (s *CartService) View(ctx context.Context, sess *session.Session) (*transport.CartView, error) {
	view := &transport.CartView{
		Items:    []transport.CartLine{},
		Subtotal: decimal.Zero,
		Discount: decimal.Zero,
		Total:    decimal.Zero,
	}

	cart, err := s.Resolve(ctx, sess, false)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		items, err := s.Repo.GetCartItems(ctx, cart.ID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			view.Items = append(view.Items, transport.CartLine{
				ProductID: it.ProductID,
				Name:      it.Product.Name,
				ImageURL:  it.Product.ImageURL,
				Price:     it.Product.Price,
				Quantity:  it.Quantity,
				Subtotal:  it.Subtotal(),
			})
			view.Count += int64(it.Quantity)
		}
		view.Subtotal = Subtotal(items)
	}

	if code := sess.AppliedPromoCode; code != "" {
		view.PromoCode = code
		promo, err := s.Repo.GetPromotionCode(ctx, code)
		switch {
		case err == nil && !promo.IsUsed:
			view.Discount = promo.DiscountAmount
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}

	view.Total = ApplyDiscount(view.Subtotal, view.Discount)
	return view, nil
}

func Subtotal(items []models.CartItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// ApplyDiscount never goes below zero.
func ApplyDiscount(subtotal, discount decimal.Decimal) decimal.Decimal {
	total := subtotal.Sub(discount)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}
