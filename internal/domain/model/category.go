package model

import "time"

// 商品カテゴリ。親カテゴリを持てる（階層構造）。
type Category struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"type:varchar(255);not null" json:"name"`
	Slug     string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	ParentID *int64 `gorm:"index" json:"parent_id,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
