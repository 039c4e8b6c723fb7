package repository

import (
	"context"
	"errors"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

// DI
func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

// レビューを作成。(user_id, product_id)の重複はINSERT時のunique制約で検知する。
// check-then-actだと同時INSERTの片方をすり抜けるので、制約違反をErrDuplicateに読み替える。
func (r *ReviewGormRepository) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	if err := r.db.WithContext(ctx).Create(&rv).Error; err != nil {
		if isUniqueViolation(err) {
			return model.Review{}, repo.ErrDuplicate
		}
		return model.Review{}, err
	}
	return rv, nil
}

func (r *ReviewGormRepository) FindByID(ctx context.Context, reviewID int64) (model.Review, error) {
	var rv model.Review
	err := r.db.WithContext(ctx).First(&rv, reviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Review{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

func (r *ReviewGormRepository) List(ctx context.Context, f repo.ReviewListFilter) ([]model.Review, int64, error) {
	var reviews []model.Review
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Review{})

	if f.ProductID != nil {
		tx = tx.Where("product_id = ?", *f.ProductID)
	}

	if err := tx.Count(&total).Error; err != nil {
		return []model.Review{}, 0, err
	}

	offset := (f.Page - 1) * f.Limit
	if err := tx.
		Order("created_at desc").Order("id desc").
		Offset(offset).Limit(f.Limit).
		Find(&reviews).Error; err != nil {
		return []model.Review{}, 0, err
	}

	return reviews, total, nil
}

func (r *ReviewGormRepository) Update(ctx context.Context, rv model.Review) error {
	res := r.db.WithContext(ctx).Model(&model.Review{}).Where("id = ?", rv.ID).Updates(map[string]interface{}{
		"rating":  rv.Rating,
		"comment": rv.Comment,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReviewGormRepository) DeleteByID(ctx context.Context, reviewID int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Review{}, reviewID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// Postgresのunique_violation（23505）か
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
