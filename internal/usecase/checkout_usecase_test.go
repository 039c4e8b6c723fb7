package usecase_test

import (
	"context"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks（衝突回避の命名）
// =====================

type CoOrderRepoMock struct{ mock.Mock }

func (m *CoOrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	panic("not used in Checkout tests")
}

func (m *CoOrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in Checkout tests")
}

func (m *CoOrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *CoOrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	panic("not used in Checkout tests")
}

func (m *CoOrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	panic("not used in Checkout tests")
}

type CoOrderItemRepoMock struct{ mock.Mock }

func (m *CoOrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *CoOrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	panic("not used in Checkout tests")
}

func (m *CoOrderItemRepoMock) ExistsPurchasedByUser(ctx context.Context, userID int64, productID int64) (bool, error) {
	panic("not used in Checkout tests")
}

type CoCartRepoMock struct{ mock.Mock }

func (m *CoCartRepoMock) GetOrCreateActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	panic("not used in Checkout tests")
}

func (m *CoCartRepoMock) FindActiveByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	args := m.Called(ctx, userID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CoCartRepoMock) UpdateStatus(ctx context.Context, cartID int64, status model.CartStatus) error {
	panic("not used in Checkout tests")
}

type CoCartItemRepoMock struct{ mock.Mock }

func (m *CoCartItemRepoMock) ListByCartID(ctx context.Context, cartID int64) ([]model.CartItem, error) {
	panic("not used in Checkout tests")
}

func (m *CoCartItemRepoMock) ListByIDsInCart(ctx context.Context, cartID int64, ids []int64) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID, ids)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CoCartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID int64, productID int64, addQty int64) error {
	panic("not used in Checkout tests")
}

func (m *CoCartItemRepoMock) UpdateQuantity(ctx context.Context, cartItemID int64, qty int64) error {
	panic("not used in Checkout tests")
}

func (m *CoCartItemRepoMock) DeleteByID(ctx context.Context, cartItemID int64) error {
	panic("not used in Checkout tests")
}

func (m *CoCartItemRepoMock) DeleteByIDsInCart(ctx context.Context, cartID int64, ids []int64) error {
	args := m.Called(ctx, cartID, ids)
	return args.Error(0)
}

func (m *CoCartItemRepoMock) FindByID(ctx context.Context, cartItemID int64) (model.CartItem, error) {
	panic("not used in Checkout tests")
}

func (m *CoCartItemRepoMock) IsOwnedByUser(ctx context.Context, cartItemID int64, userID int64) (bool, error) {
	panic("not used in Checkout tests")
}

type CoInventoryRepoMock struct{ mock.Mock }

func (m *CoInventoryRepoMock) LockProducts(ctx context.Context, productIDs []int64) ([]model.Product, error) {
	args := m.Called(ctx, productIDs)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Error(1)
}

func (m *CoInventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *CoInventoryRepoMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	panic("not used in Checkout tests")
}

func (m *CoInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	panic("not used in Checkout tests")
}

func (m *CoInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	panic("not used in Checkout tests")
}

type CoProductRepoMock struct{ mock.Mock }

func (m *CoProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	panic("not used in Checkout tests")
}

func (m *CoProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	panic("not used in Checkout tests")
}

func (m *CoProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	panic("not used in Checkout tests")
}

func (m *CoProductRepoMock) Update(ctx context.Context, p model.Product) error {
	panic("not used in Checkout tests")
}

func (m *CoProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	panic("not used in Checkout tests")
}

// トランザクションの中身をそのまま実行するstub。
// commit/rollbackの検証はせず、fnの戻り値をそのまま返す。
type txReposStub struct {
	orders     *CoOrderRepoMock
	orderItems *CoOrderItemRepoMock
	carts      *CoCartRepoMock
	cartItems  *CoCartItemRepoMock
	inventory  *CoInventoryRepoMock
	products   *CoProductRepoMock
}

func (s *txReposStub) Orders() repo.OrderRepository         { return s.orders }
func (s *txReposStub) OrderItems() repo.OrderItemRepository { return s.orderItems }
func (s *txReposStub) Carts() repo.CartRepository           { return s.carts }
func (s *txReposStub) CartItems() repo.CartItemRepository   { return s.cartItems }
func (s *txReposStub) Inventory() repo.InventoryRepository  { return s.inventory }
func (s *txReposStub) Products() repo.ProductRepository     { return s.products }

type txManagerStub struct {
	repos *txReposStub
}

func (t *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return fn(t.repos)
}

func newCheckoutFixture() (*usecase.CheckoutUsecase, *txReposStub) {
	repos := &txReposStub{
		orders:     new(CoOrderRepoMock),
		orderItems: new(CoOrderItemRepoMock),
		carts:      new(CoCartRepoMock),
		cartItems:  new(CoCartItemRepoMock),
		inventory:  new(CoInventoryRepoMock),
		products:   new(CoProductRepoMock),
	}
	return usecase.NewCheckoutUsecase(&txManagerStub{repos: repos}), repos
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

// =====================
// 入力検証
// =====================

func TestCheckout_Unauthorized(t *testing.T) {
	uc, _ := newCheckoutFixture()

	_, err := uc.Checkout(context.Background(), 0, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{1}})
	assertErrContains(t, err, "unauthorized")
}

func TestCheckout_AddressRequired(t *testing.T) {
	uc, _ := newCheckoutFixture()

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "  ", CartItemIDs: []int64{1}})
	assertErrContains(t, err, "address required")
}

func TestCheckout_ItemsRequired(t *testing.T) {
	uc, _ := newCheckoutFixture()

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo"})
	assertErrContains(t, err, "items required")
}

func TestCheckout_CartNotFound(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{}, repo.ErrNotFound)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{1}})
	assertErrContains(t, err, "cart not found")
}

// 不正ID・他人の明細が混ざっていたら部分確定せず全体を400にする
func TestCheckout_InvalidSelection(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100, 999}).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 1}}, nil)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100, 999}})
	assertErrContains(t, err, "invalid cart item selection")

	repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// 全か無か
// =====================

// 明細A（在庫5に数量2）とB（在庫0に数量1）を同時に確定しようとすると、
// Aが有効でも全体が失敗し、注文も減算も行われない。
func TestCheckout_MixedSelection_FailsWhole(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100, 101}).Return(
		[]model.CartItem{
			{ID: 100, CartID: 10, ProductID: 5, Quantity: 2},
			{ID: 101, CartID: 10, ProductID: 7, Quantity: 1},
		}, nil)

	//ID昇順でロック
	repos.inventory.On("LockProducts", mock.Anything, []int64{5, 7}).Return(
		[]model.Product{
			{ID: 5, Name: "X", Price: dec("100.00"), Stock: 5, IsActive: true},
			{ID: 7, Name: "Y", Price: dec("50.00"), Stock: 0, IsActive: true},
		}, nil)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100, 101}})
	assertErrContains(t, err, "insufficient stock for 'Y'")

	repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	repos.inventory.AssertNotCalled(t, "DecreaseStockIfEnough", mock.Anything, mock.Anything, mock.Anything)
	repos.cartItems.AssertNotCalled(t, "DeleteByIDsInCart", mock.Anything, mock.Anything, mock.Anything)
}

// 有効な明細だけを選べば確定でき、選ばれなかった明細は残る
func TestCheckout_PartialSelection_Succeeds(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 2}}, nil)

	repos.inventory.On("LockProducts", mock.Anything, []int64{5}).Return(
		[]model.Product{{ID: 5, Name: "X", Price: dec("100.00"), Stock: 5, IsActive: true}}, nil)

	repos.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.UserID == 1 &&
			o.Status == model.OrderStatusPending &&
			o.TotalPrice.Equal(dec("200.00")) &&
			o.Address == "Tokyo"
	})).Return(int64(777), nil)

	repos.orderItems.On("CreateBulk", mock.Anything, int64(777), mock.MatchedBy(func(items []model.OrderItem) bool {
		if len(items) != 1 {
			return false
		}
		it := items[0]
		return it.ProductID != nil && *it.ProductID == 5 &&
			it.ProductNameSnapshot == "X" &&
			it.UnitPriceSnapshot.Equal(dec("100.00")) &&
			it.Quantity == 2
	})).Return(nil)

	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(5), int64(2)).Return(true, nil)
	repos.cartItems.On("DeleteByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(nil)

	out, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100}})
	assert.NoError(t, err)
	assert.Equal(t, int64(777), out.ID)
	assert.Equal(t, "PENDING", out.Status)
	assert.True(t, out.TotalPrice.Equal(dec("200.00")))
	assert.Equal(t, 1, len(out.Items))
	assert.Equal(t, "X", out.Items[0].ProductName)
	assert.Equal(t, int64(2), out.Items[0].Quantity)

	repos.orders.AssertExpectations(t)
	repos.orderItems.AssertExpectations(t)
	repos.inventory.AssertExpectations(t)
	repos.cartItems.AssertExpectations(t)
}

// セール価格が設定されていればそちらで合計とスナップショットを作る
func TestCheckout_UsesDiscountPrice(t *testing.T) {
	uc, repos := newCheckoutFixture()

	discount := dec("80.00")

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 3}}, nil)

	repos.inventory.On("LockProducts", mock.Anything, []int64{5}).Return(
		[]model.Product{{ID: 5, Name: "X", Price: dec("100.00"), DiscountPrice: &discount, Stock: 10, IsActive: true}}, nil)

	repos.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.TotalPrice.Equal(dec("240.00"))
	})).Return(int64(1), nil)

	repos.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.MatchedBy(func(items []model.OrderItem) bool {
		return len(items) == 1 && items[0].UnitPriceSnapshot.Equal(dec("80.00"))
	})).Return(nil)

	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(5), int64(3)).Return(true, nil)
	repos.cartItems.On("DeleteByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(nil)

	out, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100}})
	assert.NoError(t, err)
	assert.True(t, out.TotalPrice.Equal(dec("240.00")))
}

// 商品が非公開になっていたら確定できない
func TestCheckout_InactiveProduct(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 1}}, nil)

	repos.inventory.On("LockProducts", mock.Anything, []int64{5}).Return(
		[]model.Product{{ID: 5, Name: "X", Price: dec("100.00"), Stock: 5, IsActive: false}}, nil)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100}})
	assertErrContains(t, err, "product no longer available")

	repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// =====================
// 同時実行
// =====================

// 行ロックが取れないときは409で返してリトライさせる
func TestCheckout_LockConflict(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 1}}, nil)

	repos.inventory.On("LockProducts", mock.Anything, []int64{5}).Return(nil, repo.ErrLockNotAvailable)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100}})
	assertErrContains(t, err, "checkout conflict")
}

// UPDATEの条件付き減算が失敗したら（検証後に在庫が変わった）全体を中断
func TestCheckout_DecreaseGuardFails(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100}).Return(
		[]model.CartItem{{ID: 100, CartID: 10, ProductID: 5, Quantity: 2}}, nil)

	repos.inventory.On("LockProducts", mock.Anything, []int64{5}).Return(
		[]model.Product{{ID: 5, Name: "X", Price: dec("100.00"), Stock: 5, IsActive: true}}, nil)

	repos.orders.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.Anything).Return(nil)
	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(5), int64(2)).Return(false, nil)

	_, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100}})
	assertErrContains(t, err, "out of stock")

	repos.cartItems.AssertNotCalled(t, "DeleteByIDsInCart", mock.Anything, mock.Anything, mock.Anything)
}

// 複数商品はID昇順でロックを取る
func TestCheckout_LocksInAscendingOrder(t *testing.T) {
	uc, repos := newCheckoutFixture()

	repos.carts.On("FindActiveByUserID", mock.Anything, int64(1)).Return(model.Cart{ID: 10, UserID: 1}, nil)

	//カート明細は商品ID降順で返ってくる
	repos.cartItems.On("ListByIDsInCart", mock.Anything, int64(10), []int64{100, 101}).Return(
		[]model.CartItem{
			{ID: 100, CartID: 10, ProductID: 9, Quantity: 1},
			{ID: 101, CartID: 10, ProductID: 3, Quantity: 1},
		}, nil)

	//それでもロック要求は昇順
	repos.inventory.On("LockProducts", mock.Anything, []int64{3, 9}).Return(
		[]model.Product{
			{ID: 3, Name: "A", Price: dec("10.00"), Stock: 1, IsActive: true},
			{ID: 9, Name: "B", Price: dec("20.00"), Stock: 1, IsActive: true},
		}, nil)

	repos.orders.On("Create", mock.Anything, mock.Anything).Return(int64(1), nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(1), mock.Anything).Return(nil)
	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(9), int64(1)).Return(true, nil)
	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(3), int64(1)).Return(true, nil)
	repos.cartItems.On("DeleteByIDsInCart", mock.Anything, int64(10), []int64{100, 101}).Return(nil)

	out, err := uc.Checkout(context.Background(), 1, usecase.CheckoutInput{Address: "Tokyo", CartItemIDs: []int64{100, 101}})
	assert.NoError(t, err)
	assert.True(t, out.TotalPrice.Equal(dec("30.00")))

	repos.inventory.AssertExpectations(t)
}
