package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProduct_EffectiveUnitPrice(t *testing.T) {
	price := decimal.RequireFromString("100.00")
	sale := decimal.RequireFromString("80.00")

	//セール価格なし→通常価格
	p := Product{Price: price}
	assert.True(t, p.EffectiveUnitPrice().Equal(price))

	//セール価格あり→セール価格
	p.DiscountPrice = &sale
	assert.True(t, p.EffectiveUnitPrice().Equal(sale))
}
