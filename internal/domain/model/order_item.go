package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 注文明細。商品が後から消えても履歴が残るようProductIDはnull許可。
type OrderItem struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64  `gorm:"not null;index" json:"order_id"`
	ProductID *int64 `gorm:"index" json:"product_id,omitempty"`

	//確定時点のスナップショット
	ProductNameSnapshot string          `gorm:"type:varchar(255);not null" json:"product_name_snapshot"`
	UnitPriceSnapshot   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"unit_price_snapshot"`

	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
