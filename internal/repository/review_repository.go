package repository

import (
	"context"

	"shop/internal/domain/model"
)

type ReviewListFilter struct {
	ProductID *int64
	Page      int
	Limit     int
}

type ReviewRepository interface {
	// (user, product)のunique制約違反はErrDuplicateで返す。
	// 事前チェックではなくINSERT時の制約で重複を防ぐ。
	Create(ctx context.Context, rv model.Review) (model.Review, error)

	FindByID(ctx context.Context, reviewID int64) (model.Review, error)
	List(ctx context.Context, f ReviewListFilter) ([]model.Review, int64, error)
	Update(ctx context.Context, rv model.Review) error
	DeleteByID(ctx context.Context, reviewID int64) error
}
