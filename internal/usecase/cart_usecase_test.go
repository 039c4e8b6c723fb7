package usecase_test

import (
	"context"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type CartCartRepoMock struct{ mock.Mock }

func (m *CartCartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartCartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartCartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	panic("not used in CartUsecase tests")
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) ListByIDsInCart(ctx context.Context, cartID int64, ids []int64) ([]model.CartItem, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64) error {
	args := m.Called(ctx, cartID, productID, addQty)
	return args.Error(0)
}

func (m *CartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	args := m.Called(ctx, cartItemID, qty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	args := m.Called(ctx, cartItemID)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByIDsInCart(ctx context.Context, cartID int64, ids []int64) error {
	panic("not used in CartUsecase tests")
}

func (m *CartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	args := m.Called(ctx, cartItemID)
	it, _ := args.Get(0).(model.CartItem)
	return it, args.Error(1)
}

func (m *CartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	args := m.Called(ctx, cartItemID, userID)
	return args.Bool(0), args.Error(1)
}

type CartProductRepoMock struct{ mock.Mock }

func (m *CartProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *CartProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in CartUsecase tests")
}

func (m *CartProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in CartUsecase tests")
}

func newCartFixture() (*usecase.CartUsecase, *CartCartRepoMock, *CartItemRepoMock, *CartProductRepoMock) {
	cartRepo := new(CartCartRepoMock)
	itemRepo := new(CartItemRepoMock)
	productRepo := new(CartProductRepoMock)
	return usecase.NewCartUsecase(cartRepo, itemRepo, productRepo), cartRepo, itemRepo, productRepo
}

// 同一商品の追加は数量加算のUpsertになる
func TestCartUsecase_AddToCart_MergesSameProduct(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo := newCartFixture()

	cartRepo.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(5)).Return(model.Product{ID: 5, Name: "X", Price: dec("100.00"), Stock: 10, IsActive: true}, nil)

	//既に1個入っている
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 1}}, nil)

	itemRepo.On("UpsertByCartAndProduct", mock.Anything, int64(10), int64(5), int64(2)).Return(nil)

	err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 5, Quantity: 2})
	assert.NoError(t, err)

	itemRepo.AssertExpectations(t)
}

// 既存数量＋追加分が在庫を超えたら追加できない
func TestCartUsecase_AddToCart_InsufficientStock(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo := newCartFixture()

	cartRepo.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(5)).Return(model.Product{ID: 5, Name: "X", Price: dec("100.00"), Stock: 3, IsActive: true}, nil)

	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 2}}, nil)

	err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 5, Quantity: 2})
	assertErrContains(t, err, "insufficient stock")

	itemRepo.AssertNotCalled(t, "UpsertByCartAndProduct", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

// 非公開商品は存在しない扱い
func TestCartUsecase_AddToCart_InactiveProduct(t *testing.T) {
	uc, cartRepo, _, productRepo := newCartFixture()

	cartRepo.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(5)).Return(model.Product{ID: 5, IsActive: false}, nil)

	err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 5, Quantity: 1})
	assertErrContains(t, err, "product not found")
}

func TestCartUsecase_AddToCart_InvalidQuantity(t *testing.T) {
	uc, _, _, _ := newCartFixture()

	err := uc.AddToCart(context.Background(), 1, usecase.AddCartInput{ProductID: 5, Quantity: 0})
	assertErrContains(t, err, "invalid quantity")
}

// 他人の明細は404で返す（存在も明かさない）
func TestCartUsecase_RemoveCartLine_Foreign(t *testing.T) {
	uc, _, itemRepo, _ := newCartFixture()

	itemRepo.On("IsOwnedByUser", mock.Anything, int64(100), int64(2)).Return(false, nil)

	err := uc.RemoveCartLine(context.Background(), 2, 100)
	assertErrContains(t, err, "not found")

	itemRepo.AssertNotCalled(t, "DeleteByID", mock.Anything, mock.Anything)
}

func TestCartUsecase_RemoveCartLine_Success(t *testing.T) {
	uc, _, itemRepo, _ := newCartFixture()

	itemRepo.On("IsOwnedByUser", mock.Anything, int64(100), int64(1)).Return(true, nil)
	itemRepo.On("DeleteByID", mock.Anything, int64(100)).Return(nil)

	err := uc.RemoveCartLine(context.Background(), 1, 100)
	assert.NoError(t, err)

	itemRepo.AssertExpectations(t)
}

// 数量変更は在庫の範囲まで
func TestCartUsecase_UpdateCartItem_ExceedsStock(t *testing.T) {
	uc, _, itemRepo, productRepo := newCartFixture()

	itemRepo.On("IsOwnedByUser", mock.Anything, int64(100), int64(1)).Return(true, nil)
	itemRepo.On("FindByID", mock.Anything, int64(100)).Return(model.CartItem{ID: 100, CartID: 10, ProductID: 5, Quantity: 1}, nil)
	productRepo.On("FindByID", mock.Anything, int64(5)).Return(model.Product{ID: 5, Stock: 2, IsActive: true}, nil)

	_, err := uc.UpdateCartItem(context.Background(), 1, 100, usecase.UpdateCartItemInput{Quantity: 5})
	assertErrContains(t, err, "insufficient stock")

	itemRepo.AssertNotCalled(t, "UpdateQuantity", mock.Anything, mock.Anything, mock.Anything)
}

// GetCartはセール価格で小計と合計を計算する
func TestCartUsecase_GetCart_TotalsUseEffectivePrice(t *testing.T) {
	uc, cartRepo, itemRepo, productRepo := newCartFixture()

	discount := dec("80.00")

	cartRepo.On("GetOrCreateActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	itemRepo.On("ListByCartID", mock.Anything, int64(10)).Return(
		[]model.CartItem{
			{ID: 100, CartID: 10, ProductID: 5, Quantity: 2},
			{ID: 101, CartID: 10, ProductID: 7, Quantity: 1},
		}, nil)

	productRepo.On("FindByID", mock.Anything, int64(5)).Return(
		model.Product{ID: 5, Name: "X", Price: dec("100.00"), DiscountPrice: &discount, Stock: 10, IsActive: true}, nil)
	productRepo.On("FindByID", mock.Anything, int64(7)).Return(
		model.Product{ID: 7, Name: "Y", Price: dec("50.00"), Stock: 10, IsActive: true}, nil)

	out, err := uc.GetCart(context.Background(), 1)
	assert.NoError(t, err)
	assert.Equal(t, 2, len(out.Items))
	// 80*2 + 50*1
	assert.True(t, out.Total.Equal(dec("210.00")))
	assert.True(t, out.Items[0].Price.Equal(dec("80.00")))
	assert.True(t, out.Items[0].Subtotal.Equal(dec("160.00")))
}
