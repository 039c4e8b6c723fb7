package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CartItemRepository interface {
	ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error)

	// checkout用。指定IDのうち、そのカートに属する明細だけを返す。
	ListByIDsInCart(ctx context.Context, cartID int64, ids []int64) ([]model.CartItem, error)

	// 同一商品はプラス（check-then-actにならないよう行ロックの中で行う）
	UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64) error

	UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error
	DeleteByID(ctx context.Context, cartItemID int64) error

	// checkoutで消費した明細だけ削除（他の明細は残す）
	DeleteByIDsInCart(ctx context.Context, cartID int64, ids []int64) error

	FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error)
	IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error)
}
