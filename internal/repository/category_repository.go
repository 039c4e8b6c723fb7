package repository

import (
	"context"

	"shop/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	FindBySlug(ctx context.Context, slug string) (model.Category, error)
	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	//子カテゴリと配下の商品も一緒に消える（DB側のcascade）
	Delete(ctx context.Context, id int64) error
}
