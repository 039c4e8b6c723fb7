package repository

import (
	"context"

	"shop/internal/domain/model"

	"gorm.io/gorm"
)

type OrderItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewOrderItemGormRepository(db *gorm.DB) *OrderItemGormRepository {
	return &OrderItemGormRepository{db: db}
}

// 注文明細を一括作成
func (r *OrderItemGormRepository) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	for i := range items {
		items[i].OrderID = orderID
	}

	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *OrderItemGormRepository) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	var items []model.OrderItem

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return []model.OrderItem{}, err
	}

	return items, nil
}

// PAID/SHIPPEDの注文にその商品の明細があるか（レビュー資格）
func (r *OrderItemGormRepository) ExistsPurchasedByUser(ctx context.Context, userID int64, productID int64) (bool, error) {
	var count int64

	err := r.db.WithContext(ctx).
		Table("order_items").
		Joins("join orders on orders.id = order_items.order_id").
		Where("orders.user_id = ?", userID).
		Where("order_items.product_id = ?", productID).
		Where("orders.status IN ?", []model.OrderStatus{model.OrderStatusPaid, model.OrderStatusShipped}).
		Count(&count).Error

	if err != nil {
		return false, err
	}

	return count > 0, nil
}
