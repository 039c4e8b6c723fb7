package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// unique制約違反（重複レビューなど）
var ErrDuplicate = errors.New("duplicate")

// 公開一覧の検索条件
type ProductListQuery struct {
	Page     int
	Limit    int
	Q        string
	Category string //カテゴリslug
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

// 商品の永続化（保存・取得）だけを約束。
type ProductRepository interface {
	ListPublic(ctx context.Context, q ProductListQuery) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}
