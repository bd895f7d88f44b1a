package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/promo"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/session"
)

const (
	DefaultPromoBatch = 10
	MaxPromoBatch     = 1000
)

type PromoService struct {
	Repo   *repo.GormRepo
	Events Publisher
}

// Apply remembers code on the session if it exists and is still unused. This is advisory;
// nothing is reserved until checkout. Any failure clears the previously applied code.
func (s *PromoService) Apply(ctx context.Context, sess *session.Session, code string) (*models.PromotionCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		sess.ClearPromo()
		return nil, fmt.Errorf("%w: code required", ErrPromoInvalid)
	}

	p, err := s.Lookup(ctx, s.Repo, code)
	if err != nil {
		sess.ClearPromo()
		return nil, err
	}

	sess.ApplyPromo(p.Code)
	publish(ctx, s.Events, TopicCartEvents, sess.ID, "promo_applied", map[string]any{
		"code":            p.Code,
		"discount_amount": p.DiscountAmount,
	})
	return p, nil
}

func (s *PromoService) Clear(sess *session.Session) {
	sess.ClearPromo()
}

// Lookup fetches an unused code through r, which may be a transaction.
func (s *PromoService) Lookup(ctx context.Context, r *repo.GormRepo, code string) (*models.PromotionCode, error) {
	p, err := r.GetPromotionCode(ctx, code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%q: %w", code, ErrPromoInvalid)
	}
	if err != nil {
		return nil, err
	}
	if p.IsUsed {
		return nil, fmt.Errorf("%q: %w", code, ErrPromoUsed)
	}
	return p, nil
}

// Consume marks the code used by orderID. It must run inside the checkout transaction;
// of two concurrent checkouts with the same code exactly one gets a row back.
func (s *PromoService) Consume(ctx context.Context, tx *repo.GormRepo, code string, orderID uint) error {
	n, err := tx.ConsumePromotionCode(ctx, code, orderID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%q: %w", code, ErrPromoUsed)
	}
	return nil
}

// Generate creates n fresh codes. Collisions with existing codes are skipped, so fewer may
// come back than were asked for.
func (s *PromoService) Generate(ctx context.Context, n int) ([]models.PromotionCode, error) {
	if n <= 0 {
		n = DefaultPromoBatch
	}
	if n > MaxPromoBatch {
		return nil, fmt.Errorf("%w: at most %d codes per batch", ErrValidation, MaxPromoBatch)
	}

	generated, err := promo.Generate(n)
	if err != nil {
		return nil, err
	}

	codes := make([]models.PromotionCode, 0, len(generated))
	for _, g := range generated {
		codes = append(codes, models.PromotionCode{Code: g.Code, DiscountAmount: g.Discount})
	}

	created, err := s.Repo.CreatePromotionCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	publish(ctx, s.Events, TopicOrderEvents, "promotions", "promotions_generated", map[string]any{"count": len(created)})
	return created, nil
}

func (s *PromoService) List(ctx context.Context, offset, limit int) (int64, []models.PromotionCode, error) {
	return s.Repo.ListPromotionCodes(ctx, offset, limit)
}
