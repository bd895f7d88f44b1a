package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type OrderService struct {
	Repo          *repo.GormRepo
	Events        Publisher
	WebhookSecret []byte
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	order, err := s.Repo.GetOrder(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return order, err
}

func (s *OrderService) ListOrders(ctx context.Context, offset, limit int) (int64, []models.Order, error) {
	return s.Repo.ListOrders(ctx, offset, limit)
}

// VerifySignature checks the hex HMAC-SHA256 of body sent by the payment provider.
func (s *OrderService) VerifySignature(body []byte, signature string) bool {
	if len(s.WebhookSecret) == 0 || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(signature), "sha256="))
	if err != nil {
		return false
	}
	return hmac.Equal(got, Sign(s.WebhookSecret, body))
}

func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// ConfirmPayment applies a provider callback. Only pending orders move to paid; a repeated
// callback for a paid order is a conflict.
func (s *OrderService) ConfirmPayment(ctx context.Context, req transport.PaymentCallbackRequest) (*models.Order, error) {
	if req.OrderID == 0 {
		return nil, fmt.Errorf("%w: order_id required", ErrValidation)
	}
	if models.OrderStatus(req.Status) != models.OrderStatusPaid {
		return nil, fmt.Errorf("%w: unsupported status %q", ErrValidation, req.Status)
	}

	if _, err := s.GetOrder(ctx, req.OrderID); err != nil {
		return nil, err
	}

	n, err := s.Repo.MarkOrderPaid(ctx, req.OrderID, req.PaymentRef)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("order %d is not pending: %w", req.OrderID, ErrConflict)
	}

	order, err := s.GetOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.Events, TopicOrderEvents, idKey(order.ID), "order_paid", map[string]any{
		"order_id":    order.ID,
		"payment_ref": order.PaymentRef,
	})
	return order, nil
}
