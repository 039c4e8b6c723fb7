package model

import "time"

// カートの明細。価格は持たない（確定時にProductから引く）。
// 同一カート内で同じ商品は1行（数量加算）。
type CartItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement" json:"id"`
	CartID    int64 `gorm:"not null;index;uniqueIndex:idx_cart_product" json:"cart_id"`
	ProductID int64 `gorm:"not null;index;uniqueIndex:idx_cart_product" json:"product_id"`
	Quantity  int64 `gorm:"not null" json:"quantity"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
