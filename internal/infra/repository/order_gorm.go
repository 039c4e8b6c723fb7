package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type OrderGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderGormRepository(db *gorm.DB) *OrderGormRepository {
	return &OrderGormRepository{db: db}
}

func (r *OrderGormRepository) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := r.db.WithContext(ctx).First(&o, orderID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Order{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// 自分の注文一覧（新しい順）
func (r *OrderGormRepository) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)

	if err := tx.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	offset := (page - 1) * limit
	if err := tx.
		Order("created_at desc").Order("id desc").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return orders, total, nil
}

func (r *OrderGormRepository) Create(ctx context.Context, order model.Order) (int64, error) {
	if err := r.db.WithContext(ctx).Create(&order).Error; err != nil {
		return 0, err
	}
	return order.ID, nil
}

func (r *OrderGormRepository) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&model.Order{}).
		Where("id = ?", orderID).
		Update("status", status)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 管理者用の注文一覧
func (r *OrderGormRepository) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Order{})

	if f.Status != "" {
		tx = tx.Where("status = ?", f.Status)
	}
	if f.UserID != nil {
		tx = tx.Where("user_id = ?", *f.UserID)
	}
	if f.From != nil {
		tx = tx.Where("created_at >= ?", *f.From)
	}
	if f.To != nil {
		tx = tx.Where("created_at <= ?", *f.To)
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Order{}, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	if err := tx.
		Order("created_at desc").Order("id desc").
		Offset(offset).Limit(f.Limit).
		Find(&orders).Error; err != nil {
		return []model.Order{}, 0, err
	}

	return orders, total, nil
}
