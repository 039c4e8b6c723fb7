package repository

import (
	"context"

	"shop/internal/domain/model"
)

type OrderItemRepository interface {
	CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error
	ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error)

	// レビュー資格の判定。PAID/SHIPPEDの注文にその商品の明細があるか。
	ExistsPurchasedByUser(ctx context.Context, userID int64, productID int64) (bool, error)
}
