package repo

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetPromotionCode(ctx context.Context, code string) (*models.PromotionCode, error) {
	var promo models.PromotionCode
	if err := r.DB.WithContext(ctx).Where("code = ?", code).First(&promo).Error; err != nil {
		return nil, err
	}
	return &promo, nil
}

// ConsumePromotionCode flips is_used only if nobody did it first; the returned count is 0
// for the loser of a race.
func (r *GormRepo) ConsumePromotionCode(ctx context.Context, code string, orderID uint) (int64, error) {
	now := time.Now().UTC()
	res := r.DB.WithContext(ctx).
		Model(&models.PromotionCode{}).
		Where("code = ? AND is_used = ?", code, false).
		Updates(map[string]any{
			"is_used":  true,
			"order_id": orderID,
			"used_at":  now,
		})
	return res.RowsAffected, res.Error
}

// CreatePromotionCodes inserts the batch in one transaction and returns the rows that were
// actually created; codes that already exist are skipped.
func (r *GormRepo) CreatePromotionCodes(ctx context.Context, codes []models.PromotionCode) ([]models.PromotionCode, error) {
	created := make([]models.PromotionCode, 0, len(codes))
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, c := range codes {
			res := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
				Create(&c)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected > 0 {
				created = append(created, c)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *GormRepo) ListPromotionCodes(ctx context.Context, offset, limit int) (int64, []models.PromotionCode, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.PromotionCode{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.PromotionCode, 0, limit)
	if err := r.DB.WithContext(ctx).Order("id DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}
