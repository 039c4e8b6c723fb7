package repository

import (
	"context"

	"shop/internal/domain/model"
	repo "shop/internal/repository"

	"gorm.io/gorm"
)

type AuditLogGormRepository struct {
	db *gorm.DB
}

// DI
func NewAuditLogGormRepository(db *gorm.DB) *AuditLogGormRepository {
	return &AuditLogGormRepository{db: db}
}

// 監査ログを1件保存
func (r *AuditLogGormRepository) Create(ctx context.Context, log model.AuditLog) error {
	return r.db.WithContext(ctx).Create(&log).Error
}

// 監査ログを条件で一覧取得
func (r *AuditLogGormRepository) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	var logs []model.AuditLog

	tx := r.db.WithContext(ctx).Model(&model.AuditLog{})

	if filter.ActorUserID != nil {
		tx = tx.Where("actor_user_id = ?", *filter.ActorUserID)
	}
	if filter.Action != nil {
		tx = tx.Where("action = ?", *filter.Action)
	}
	if filter.ResourceType != nil {
		tx = tx.Where("resource_type = ?", *filter.ResourceType)
	}
	if filter.ResourceID != nil {
		tx = tx.Where("resource_id = ?", *filter.ResourceID)
	}
	if filter.CreatedFrom != nil {
		tx = tx.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		tx = tx.Where("created_at <= ?", *filter.CreatedTo)
	}

	if filter.Limit > 0 {
		tx = tx.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		tx = tx.Offset(filter.Offset)
	}

	if err := tx.Order("created_at desc").Find(&logs).Error; err != nil {
		return []model.AuditLog{}, err
	}

	return logs, nil
}
