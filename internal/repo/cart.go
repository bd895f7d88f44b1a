package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/storefront/internal/models"
)

func (r *GormRepo) GetCart(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.DB.WithContext(ctx).First(&cart, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) CreateCart(ctx context.Context) (*models.Cart, error) {
	cart := models.Cart{}
	if err := r.DB.WithContext(ctx).Omit(clause.Associations).Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *GormRepo) GetCartItems(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	if err := r.DB.WithContext(ctx).
		Preload("Product").
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CountCartItems(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var n int64
	if err := r.DB.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// AddCartItem increments the (cart, product) line or creates it. The unique index decides
// races between two first inserts; the loser retries as an increment.
func (r *GormRepo) AddCartItem(ctx context.Context, cartID uuid.UUID, productID, quantity uint) (*models.CartItem, error) {
	item, err := r.addCartItem(ctx, cartID, productID, quantity)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		item, err = r.addCartItem(ctx, cartID, productID, quantity)
	}
	return item, err
}

func (r *GormRepo) addCartItem(ctx context.Context, cartID uuid.UUID, productID, quantity uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			Update("quantity", gorm.Expr("quantity + ?", quantity))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return tx.Where("cart_id = ? AND product_id = ?", cartID, productID).First(&item).Error
		}

		item = models.CartItem{
			CartID:    cartID,
			ProductID: productID,
			Quantity:  quantity,
		}
		return tx.Omit(clause.Associations).Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DecreaseCartItem takes exactly one unit off the line and deletes it at zero.
// A missing line is reported as gorm.ErrRecordNotFound.
func (r *GormRepo) DecreaseCartItem(ctx context.Context, cartID uuid.UUID, productID uint) (bool, *models.CartItem, error) {
	var item models.CartItem
	deleted := false

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("cart_id = ? AND product_id = ?", cartID, productID).
			First(&item).Error; err != nil {
			return err
		}

		if item.Quantity > 1 {
			if err := tx.Model(&item).Update("quantity", gorm.Expr("quantity - 1")).Error; err != nil {
				return err
			}
			return tx.First(&item, item.ID).Error
		}

		if err := tx.Delete(&item).Error; err != nil {
			return err
		}
		deleted = true
		return nil
	})
	if err != nil {
		return false, nil, err
	}
	return deleted, &item, nil
}

func (r *GormRepo) RemoveCartItem(ctx context.Context, cartID uuid.UUID, productID uint) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *GormRepo) ClearCart(ctx context.Context, cartID uuid.UUID) error {
	return r.DB.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
}
