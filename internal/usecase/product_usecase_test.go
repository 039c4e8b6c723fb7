package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
	"shop/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type PdProductRepoMock struct{ mock.Mock }

func (m *PdProductRepoMock) ListPublic(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	ps, _ := args.Get(0).([]model.Product)
	return ps, args.Get(1).(int64), args.Error(2)
}

func (m *PdProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *PdProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *PdProductRepoMock) Update(ctx context.Context, p model.Product) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *PdProductRepoMock) SoftDelete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type PdCategoryRepoMock struct{ mock.Mock }

func (m *PdCategoryRepoMock) List(ctx context.Context) ([]model.Category, error) {
	args := m.Called(ctx)
	cs, _ := args.Get(0).([]model.Category)
	return cs, args.Error(1)
}

func (m *PdCategoryRepoMock) FindByID(ctx context.Context, id int64) (model.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(model.Category)
	return c, args.Error(1)
}

func (m *PdCategoryRepoMock) FindBySlug(ctx context.Context, slug string) (model.Category, error) {
	panic("not used in Product tests")
}

func (m *PdCategoryRepoMock) Create(ctx context.Context, c model.Category) (model.Category, error) {
	panic("not used in Product tests")
}

func (m *PdCategoryRepoMock) Update(ctx context.Context, c model.Category) error {
	panic("not used in Product tests")
}

func (m *PdCategoryRepoMock) Delete(ctx context.Context, id int64) error {
	panic("not used in Product tests")
}

type PdInventoryRepoMock struct{ mock.Mock }

func (m *PdInventoryRepoMock) LockProducts(ctx context.Context, productIDs []int64) ([]model.Product, error) {
	panic("not used in Product tests")
}

func (m *PdInventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used in Product tests")
}

func (m *PdInventoryRepoMock) IncreaseStock(ctx context.Context, productID int64, qty int64) error {
	panic("not used in Product tests")
}

func (m *PdInventoryRepoMock) SetStock(ctx context.Context, productID int64, newStock int64) error {
	args := m.Called(ctx, productID, newStock)
	return args.Error(0)
}

func (m *PdInventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

type PdAuditRepoMock struct{ mock.Mock }

func (m *PdAuditRepoMock) Create(ctx context.Context, log model.AuditLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *PdAuditRepoMock) List(ctx context.Context, filter repo.AuditLogFilter) ([]model.AuditLog, error) {
	args := m.Called(ctx, filter)
	ls, _ := args.Get(0).([]model.AuditLog)
	return ls, args.Error(1)
}

func newProductFixture() (*usecase.ProductUsecase, *PdProductRepoMock, *PdCategoryRepoMock, *PdInventoryRepoMock, *PdAuditRepoMock) {
	products := new(PdProductRepoMock)
	categories := new(PdCategoryRepoMock)
	inventory := new(PdInventoryRepoMock)
	audit := new(PdAuditRepoMock)
	uc := usecase.NewProductUsecase(products, categories, inventory, audit)
	return uc, products, categories, inventory, audit
}

func TestListPublicProducts_InvalidLimit(t *testing.T) {
	uc, products, _, _, _ := newProductFixture()

	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 101})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	products.AssertNotCalled(t, "ListPublic", mock.Anything, mock.Anything)
}

func TestListPublicProducts_PriceRangeInverted(t *testing.T) {
	uc, _, _, _, _ := newProductFixture()

	min := decimal.RequireFromString("100")
	max := decimal.RequireFromString("50")
	_, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 1, Limit: 20, MinPrice: &min, MaxPrice: &max,
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assertErrContains(t, err, "min_price must be <= max_price")
}

func TestListPublicProducts_Success(t *testing.T) {
	uc, products, _, _, _ := newProductFixture()

	products.On("ListPublic", mock.Anything, mock.MatchedBy(func(q repo.ProductListQuery) bool {
		return q.Page == 2 && q.Limit == 10 && q.Q == "coffee" && q.Sort == "price_asc"
	})).Return([]model.Product{{ID: 1, Name: "coffee beans"}}, int64(1), nil)

	out, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{
		Page: 2, Limit: 10, Q: " coffee ", Sort: "price_asc",
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	assert.Len(t, out.Items, 1)
	assert.Equal(t, 2, out.Page)

	products.AssertExpectations(t)
}

// 非公開商品は存在しない扱い（404）
func TestGetProductDetail_InactiveIsNotFound(t *testing.T) {
	uc, products, _, _, _ := newProductFixture()

	products.On("FindByID", mock.Anything, int64(5)).Return(model.Product{ID: 5, IsActive: false}, nil)

	_, err := uc.GetProductDetail(context.Background(), 5)

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, he.Status)
}

func TestAdminCreateProduct_SlugGeneratedFromName(t *testing.T) {
	uc, products, categories, _, _ := newProductFixture()

	categories.On("FindByID", mock.Anything, int64(3)).Return(model.Category{ID: 3}, nil)
	products.On("Create", mock.Anything, mock.MatchedBy(func(p model.Product) bool {
		return p.Slug == "dark-roast-beans" && p.CategoryID == 3
	})).Return(model.Product{ID: 9}, nil)

	id, err := uc.AdminCreateProduct(context.Background(), 1, usecase.AdminCreateProductInput{
		CategoryID: 3,
		Name:       "Dark Roast Beans",
		Price:      decimal.RequireFromString("12.50"),
		Stock:      10,
		IsActive:   true,
	})
	assert.NoError(t, err)
	assert.Equal(t, int64(9), id)

	products.AssertExpectations(t)
}

func TestAdminCreateProduct_UnknownCategory(t *testing.T) {
	uc, products, categories, _, _ := newProductFixture()

	categories.On("FindByID", mock.Anything, int64(99)).Return(model.Category{}, repo.ErrNotFound)

	_, err := uc.AdminCreateProduct(context.Background(), 1, usecase.AdminCreateProductInput{
		CategoryID: 99,
		Name:       "x",
		Price:      decimal.RequireFromString("1.00"),
	})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assertErrContains(t, err, "invalid category_id")

	products.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

// 在庫更新は調整履歴（delta）と監査ログ（before/after）を必ず残す
func TestAdminUpdateInventory_WritesAdjustmentAndAudit(t *testing.T) {
	uc, products, _, inventory, audit := newProductFixture()

	products.On("FindByID", mock.Anything, int64(5)).Return(model.Product{ID: 5, Stock: 3}, nil)
	inventory.On("SetStock", mock.Anything, int64(5), int64(10)).Return(nil)
	inventory.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(a model.InventoryAdjustment) bool {
		return a.ProductID == 5 && a.AdminUserID == 2 && a.Delta == 7 && a.Reason == "restock"
	})).Return(nil)
	audit.On("Create", mock.Anything, mock.MatchedBy(func(l model.AuditLog) bool {
		return l.Action == model.AuditActionUpdateStock &&
			l.ActorUserID == 2 &&
			l.ResourceID == 5 &&
			l.BeforeJSON == `{"stock":3}` &&
			l.AfterJSON == `{"stock":10}`
	})).Return(nil)

	err := uc.AdminUpdateInventory(context.Background(), 2, 5, 10, "restock")
	assert.NoError(t, err)

	inventory.AssertExpectations(t)
	audit.AssertExpectations(t)
}

func TestAdminUpdateInventory_ReasonRequired(t *testing.T) {
	uc, _, _, inventory, _ := newProductFixture()

	err := uc.AdminUpdateInventory(context.Background(), 2, 5, 10, "  ")

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)

	inventory.AssertNotCalled(t, "SetStock", mock.Anything, mock.Anything, mock.Anything)
}
