package usecase

import (
	"context"
	"fmt"
	"strings"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// カタログの読み取りキャッシュ。結果整合でよい表示系だけが使う。
// 在庫チェックはここを通らず、必ず正のストアに対して行う。
type CatalogCache interface {
	GetProduct(ctx context.Context, productID int64) (model.Product, bool)
	SetProduct(ctx context.Context, p model.Product)
	GetProductList(ctx context.Context, qkey string) ([]model.Product, int64, bool)
	SetProductList(ctx context.Context, qkey string, items []model.Product, total int64)
	Invalidate(ctx context.Context, productIDs ...int64)
}

type ProductUsecase struct {
	productRepo  repo.ProductRepository
	categoryRepo repo.CategoryRepository
	cache        CatalogCache
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	categoryRepo repo.CategoryRepository,
	cache CatalogCache,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		cache:        cache,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublicProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, newValidationError("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, newValidationError("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, newValidationError("q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, newValidationError("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, newValidationError("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, newValidationError("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, newValidationError("invalid sort")
	}

	qkey := listCacheKey(in)
	if items, total, ok := u.cache.GetProductList(ctx, qkey); ok {
		return ProductListOutput{Items: items, Total: total, Page: in.Page, Limit: in.Limit}, nil
	}

	items, total, err := u.productRepo.ListPublic(ctx, repo.ProductListQuery{
		Page:       in.Page,
		Limit:      in.Limit,
		Q:          strings.TrimSpace(in.Q),
		CategoryID: in.CategoryID,
		MinPrice:   in.MinPrice,
		MaxPrice:   in.MaxPrice,
		Sort:       in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, newInternalError()
	}

	u.cache.SetProductList(ctx, qkey, items, total)

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductDetail(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, newValidationError("invalid product id")
	}

	if p, ok := u.cache.GetProduct(ctx, productID); ok {
		if !p.IsActive {
			return model.Product{}, newNotFoundError("product not found")
		}
		return p, nil
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return model.Product{}, newNotFoundError("product not found")
	}
	if err != nil {
		return model.Product{}, newInternalError()
	}

	if !p.IsActive {
		return model.Product{}, newNotFoundError("product not found")
	}

	u.cache.SetProduct(ctx, p)
	return p, nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	cats, err := u.categoryRepo.ListActive(ctx)
	if err != nil {
		return []model.Category{}, newInternalError()
	}
	return cats, nil
}

// クエリの正規化文字列。キャッシュキーに使う。
func listCacheKey(in ListProductsInput) string {
	cat := ""
	if in.CategoryID != nil {
		cat = fmt.Sprintf("%d", *in.CategoryID)
	}
	minP := ""
	if in.MinPrice != nil {
		minP = in.MinPrice.String()
	}
	maxP := ""
	if in.MaxPrice != nil {
		maxP = in.MaxPrice.String()
	}
	return fmt.Sprintf("p=%d&l=%d&q=%s&c=%s&min=%s&max=%s&s=%s",
		in.Page, in.Limit, strings.TrimSpace(in.Q), cat, minP, maxP, in.Sort)
}
