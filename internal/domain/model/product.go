package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	CategoryID  int64  `gorm:"not null;index" json:"category_id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`

	//通常価格とセール価格。セール価格があればそちらで販売する
	Price         decimal.Decimal  `gorm:"type:numeric(10,2);not null" json:"price"`
	DiscountPrice *decimal.Decimal `gorm:"type:numeric(10,2)" json:"discount_price,omitempty"`

	//在庫は0未満にならない（checkoutでロックして減算する）
	Stock    int64 `gorm:"not null;default:0" json:"stock"`
	IsActive bool  `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// 販売単価。セール価格が設定されていればそれ、無ければ通常価格。
func (p Product) EffectiveUnitPrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}
