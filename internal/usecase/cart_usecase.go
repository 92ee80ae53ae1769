package usecase

import (
	"context"

	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// カート明細は(user, product)で一意。価格は持たず、確定時に読み直す。
type CartUsecase struct {
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// priceは表示用の現在価格（割引後）。確定時の価格はここでは決まらない。
type CartItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartResponse struct {
	Items     []CartItemResponse `json:"items"`
	Total     decimal.Decimal    `json:"total"`
	ItemCount int                `json:"item_count"`
}

type AddCartInput struct {
	ProductID int64
	Quantity  int64
}

type UpdateCartItemInput struct {
	Quantity int64
}

// GetCart はカート取得。
func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newUnauthorizedError()
	}

	return u.buildCartResponse(ctx, userID)
}

// AddToCart はカートに追加（同一商品は数量加算）。
// ここでは在庫を見ない。在庫は確定時に必ず再チェックするので、
// 追加時に読むと足の速い在庫カウンタに対して二重に縛ることになる。
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in AddCartInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newUnauthorizedError()
	}
	if in.ProductID <= 0 {
		return CartResponse{}, newValidationError("invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, newValidationError("quantity must be >= 1")
	}

	// 商品チェック（公開のみ）
	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, newNotFoundError("product not found")
	}
	if err != nil {
		return CartResponse{}, newInternalError()
	}
	if !p.IsActive {
		return CartResponse{}, newNotFoundError("product not found")
	}

	// Upsert（同一商品は加算）
	if err := u.cartItemRepo.UpsertByUserAndProduct(ctx, userID, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, newInternalError()
	}

	return u.buildCartResponse(ctx, userID)
}

// 数量変更（所有チェック）。qty=0は削除と同じ。
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, cartItemID int64, in UpdateCartItemInput) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newUnauthorizedError()
	}
	if cartItemID <= 0 {
		return CartResponse{}, newValidationError("invalid id")
	}
	if in.Quantity < 0 {
		return CartResponse{}, newValidationError("quantity must be >= 0")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, newNotFoundError("cart item not found")
	}
	if err != nil {
		return CartResponse{}, newInternalError()
	}
	//他人の明細は「存在しない扱い」にする
	if item.UserID != userID {
		return CartResponse{}, newNotFoundError("cart item not found")
	}

	if in.Quantity == 0 {
		if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil && err != repo.ErrNotFound {
			return CartResponse{}, newInternalError()
		}
		return u.buildCartResponse(ctx, userID)
	}

	if err := u.cartItemRepo.UpdateQuantity(ctx, cartItemID, in.Quantity); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, newNotFoundError("cart item not found")
		}
		return CartResponse{}, newInternalError()
	}

	return u.buildCartResponse(ctx, userID)
}

// 明細削除
func (u *CartUsecase) DeleteCartItem(ctx context.Context, userID int64, cartItemID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newUnauthorizedError()
	}
	if cartItemID <= 0 {
		return CartResponse{}, newValidationError("invalid id")
	}

	item, err := u.cartItemRepo.FindByID(ctx, cartItemID)
	if err == repo.ErrNotFound {
		return CartResponse{}, newNotFoundError("cart item not found")
	}
	if err != nil {
		return CartResponse{}, newInternalError()
	}
	if item.UserID != userID {
		return CartResponse{}, newNotFoundError("cart item not found")
	}

	if err := u.cartItemRepo.DeleteByID(ctx, cartItemID); err != nil {
		if err == repo.ErrNotFound {
			return CartResponse{}, newNotFoundError("cart item not found")
		}
		return CartResponse{}, newInternalError()
	}

	return u.buildCartResponse(ctx, userID)
}

// 全削除
func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, newUnauthorizedError()
	}

	if err := u.cartItemRepo.ClearByUserID(ctx, userID); err != nil {
		return CartResponse{}, newInternalError()
	}

	return u.buildCartResponse(ctx, userID)
}

// 現在の商品名・割引後価格を結合して表示用レスポンスを作る。
// この結果は表示専用で、確定時の価格の根拠にはならない。
func (u *CartUsecase) buildCartResponse(ctx context.Context, userID int64) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByUserID(ctx, userID)
	if err != nil {
		return CartResponse{}, newInternalError()
	}

	respItems := make([]CartItemResponse, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}
		if !p.IsActive {
			continue
		}

		price := p.FinalPrice()
		subtotal := price.Mul(decimal.NewFromInt(it.Quantity))

		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     price,
			Quantity:  it.Quantity,
			Subtotal:  subtotal,
		})

		total = total.Add(subtotal)
	}

	return CartResponse{Items: respItems, Total: total, ItemCount: len(respItems)}, nil
}
