package usecase_test

import (
	"context"
	"testing"

	"app/internal/domain/model"
	"app/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProductUsecase(s *fakeStore, cache usecase.CatalogCache) *usecase.ProductUsecase {
	return usecase.NewProductUsecase(&fakeProductRepo{s: s}, &fakeCategoryRepo{s: s}, cache)
}

func TestListPublicProducts_Validation(t *testing.T) {
	s := newFakeStore()
	uc := newProductUsecase(s, noopCache{})
	ctx := context.Background()

	cases := []usecase.ListProductsInput{
		{Page: 0, Limit: 10},
		{Page: 1, Limit: 0},
		{Page: 1, Limit: 101},
		{Page: 1, Limit: 10, Sort: "oldest"},
	}
	for _, in := range cases {
		_, err := uc.ListPublicProducts(ctx, in)
		ae, ok := usecase.AsAppError(err)
		require.True(t, ok, "%+v", in)
		assert.Equal(t, usecase.CodeValidation, ae.Code, "%+v", in)
	}

	minP := decimal.RequireFromString("100")
	maxP := decimal.RequireFromString("50")
	_, err := uc.ListPublicProducts(ctx, usecase.ListProductsInput{Page: 1, Limit: 10, MinPrice: &minP, MaxPrice: &maxP})
	ae, ok := usecase.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CodeValidation, ae.Code)
}

func TestListPublicProducts_OnlyActive(t *testing.T) {
	s := newFakeStore()
	seedProduct(s, "visible", "10.00", "0", 5, true)
	seedProduct(s, "hidden", "10.00", "0", 5, false)
	uc := newProductUsecase(s, noopCache{})

	out, err := uc.ListPublicProducts(context.Background(), usecase.ListProductsInput{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), out.Total)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "visible", out.Items[0].Name)
}

func TestListPublicProducts_ServedFromCache(t *testing.T) {
	s := newFakeStore()
	seedProduct(s, "widget", "10.00", "0", 5, true)
	cache := newMemCache()
	uc := newProductUsecase(s, cache)
	in := usecase.ListProductsInput{Page: 1, Limit: 10}

	first, err := uc.ListPublicProducts(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Total)

	//ストアに追加してもTTL内はキャッシュが答える
	seedProduct(s, "another", "20.00", "0", 5, true)

	second, err := uc.ListPublicProducts(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(1), second.Total)

	//無効化後は新しい結果
	cache.Invalidate(context.Background())

	third, err := uc.ListPublicProducts(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, int64(2), third.Total)
}

func TestGetProductDetail(t *testing.T) {
	s := newFakeStore()
	p := seedProduct(s, "widget", "100.00", "25", 5, true)
	cache := newMemCache()
	uc := newProductUsecase(s, cache)

	got, err := uc.GetProductDetail(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "widget", got.Name)
	assert.True(t, got.FinalPrice().Equal(decimal.RequireFromString("75.00")))

	//detailはキャッシュされる
	_, ok := cache.GetProduct(context.Background(), p.ID)
	assert.True(t, ok)
}

func TestGetProductDetail_InactiveLooksMissing(t *testing.T) {
	s := newFakeStore()
	p := seedProduct(s, "hidden", "10.00", "0", 5, false)
	uc := newProductUsecase(s, noopCache{})

	_, err := uc.GetProductDetail(context.Background(), p.ID)
	ae, ok := usecase.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CodeNotFound, ae.Code)
}

func TestGetProductDetail_NotFound(t *testing.T) {
	s := newFakeStore()
	uc := newProductUsecase(s, noopCache{})

	_, err := uc.GetProductDetail(context.Background(), 999)
	ae, ok := usecase.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, usecase.CodeNotFound, ae.Code)
}

func TestListCategories(t *testing.T) {
	s := newFakeStore()
	catRepo := &fakeCategoryRepo{s: s}
	_, err := catRepo.Create(context.Background(), model.Category{Name: "Electronics", IsActive: true})
	require.NoError(t, err)
	_, err = catRepo.Create(context.Background(), model.Category{Name: "Archived", IsActive: false})
	require.NoError(t, err)

	uc := newProductUsecase(s, noopCache{})

	cats, err := uc.ListCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, cats, 1)
	assert.Equal(t, "Electronics", cats[0].Name)
}
