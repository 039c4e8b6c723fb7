package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
)

// 行ロックが取れなかった（lock timeout / NOWAIT）
var ErrLockNotAvailable = errors.New("lock not available")

// 在庫の台帳。減算は必ずcheckoutのトランザクション内で行う。
type InventoryRepository interface {
	// 対象商品の行ロックを取る（ID昇順で取得してデッドロックを防ぐ）。
	// ロック済みの最新の在庫値を返す。
	LockProducts(ctx context.Context, productIDs []int64) ([]model.Product, error)

	// 在庫が足りるときだけ減算（stock >= qty を条件に入れたUPDATE）
	DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, productID int64, qty int64) error

	// 在庫の現在値を設定
	SetStock(ctx context.Context, productID int64, newStock int64) error

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
}
