package model

import "time"

// 商品レビュー。1ユーザー1商品につき1件（DBのunique制約で保証）。
// 購入実績（PAID/SHIPPEDの注文明細）がないと作成できない。
type Review struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64  `gorm:"not null;index;uniqueIndex:idx_user_product_review" json:"user_id"`
	ProductID int64  `gorm:"not null;index;uniqueIndex:idx_user_product_review" json:"product_id"`
	Rating    int    `gorm:"not null" json:"rating"`
	Comment   string `gorm:"type:text" json:"comment,omitempty"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
