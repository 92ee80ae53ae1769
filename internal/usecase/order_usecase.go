package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// 直列化失敗などの一時的な衝突だけ、トランザクション全体を数回やり直す。
// それ以外のエラーは一切再試行しない。
const maxTxAttempts = 3

type OrderUsecase struct {
	tx        repo.TransactionManager
	addresses repo.AddressRepository
	cache     CatalogCache
	log       *slog.Logger
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	addresses repo.AddressRepository,
	cache CatalogCache,
	log *slog.Logger,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, addresses: addresses, cache: cache, log: log}
}

type PlaceOrderInput struct {
	AddressID      int64
	PaymentMethod  string
	IdempotencyKey string
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int64           `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type OrderOutput struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"order_number"`
	UserID        int64             `json:"user_id"`
	AddressID     int64             `json:"address_id"`
	Status        string            `json:"status"`
	PaymentMethod string            `json:"payment_method"`
	TotalAmount   decimal.Decimal   `json:"total_amount"`
	CreatedAt     time.Time         `json:"created_at"`
	Items         []OrderItemOutput `json:"items"`
}

// PlaceOrder はカートを注文に確定する。
// 在庫減算・注文作成・カートクリアは1つのトランザクションで、全部成功か全部無かったことにする。
func (u *OrderUsecase) PlaceOrder(ctx context.Context, userID int64, in PlaceOrderInput) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, newUnauthorizedError()
	}
	if in.AddressID <= 0 {
		return OrderOutput{}, newValidationError("invalid address_id")
	}

	payment := strings.TrimSpace(in.PaymentMethod)
	if payment == "" {
		payment = "COD"
	}
	if len(payment) > 50 {
		return OrderOutput{}, newValidationError("invalid payment_method")
	}

	key := strings.TrimSpace(in.IdempotencyKey)
	if key == "" {
		key = uuid.NewString()
	}
	if len(key) > 255 {
		return OrderOutput{}, newValidationError("invalid idempotency_key")
	}

	//address_idの存在確認＋所有チェック
	addr, err := u.addresses.FindByID(ctx, in.AddressID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return OrderOutput{}, newNotFoundError("address not found")
		}
		return OrderOutput{}, newInternalError()
	}
	if addr.UserID != userID {
		return OrderOutput{}, newForbiddenError("address belongs to another user")
	}

	var out OrderOutput
	var touched []int64

	err = withinTxRetry(ctx, u.tx, u.log, func(r repo.TxRepos) error {
		touched = touched[:0]

		// 同じキーなら同じ結果
		existing, found, err := r.Orders().FindByIdempotencyKey(ctx, userID, key)
		if err != nil {
			return newInternalError()
		}
		if found {
			items, err := r.OrderItems().ListByOrderID(ctx, existing.ID)
			if err != nil {
				return newInternalError()
			}
			out = toOrderOutput(existing, items)
			return nil
		}

		//カート明細取得
		cartItems, err := r.CartItems().ListByUserID(ctx, userID)
		if err != nil {
			return newInternalError()
		}
		if len(cartItems) == 0 {
			return newEmptyCartError()
		}

		//在庫を確定時に再チェックして減らす。カートは予約ではなく提案。
		orderItems := make([]model.OrderItem, 0, len(cartItems))
		total := decimal.Zero

		for _, ci := range cartItems {
			p, err := r.Products().FindByID(ctx, ci.ProductID)
			if err == repo.ErrNotFound {
				return newProductUnavailableError(fmt.Sprintf("product %d", ci.ProductID))
			}
			if err != nil {
				return newInternalError()
			}
			if !p.IsActive {
				return newProductUnavailableError(p.Name)
			}

			//在庫減算（足りないなら false）
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, ci.ProductID, ci.Quantity)
			if err != nil {
				return newInternalError()
			}
			if !ok {
				return newInsufficientStockError(p.Name)
			}

			//確定時点の名前と割引後価格をスナップショット
			now := time.Now()
			unitPrice := p.FinalPrice()
			orderItems = append(orderItems, model.OrderItem{
				ProductID:           ci.ProductID,
				ProductNameSnapshot: p.Name,
				UnitPrice:           unitPrice,
				Quantity:            ci.Quantity,
				CreatedAt:           now,
			})

			total = total.Add(unitPrice.Mul(decimal.NewFromInt(ci.Quantity)))
			touched = append(touched, ci.ProductID)
		}

		// 注文作成
		now := time.Now()
		order := model.Order{
			OrderNumber:    newOrderNumber(now),
			UserID:         userID,
			AddressID:      in.AddressID,
			Status:         model.OrderStatusPlaced,
			PaymentMethod:  payment,
			TotalAmount:    total,
			IdempotencyKey: key,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		orderID, err := r.Orders().Create(ctx, order)
		if err != nil {
			//競合（同時に同じキーが入った等）はもう一回検索して同じ結果を返す
			ex2, found2, err2 := r.Orders().FindByIdempotencyKey(ctx, userID, key)
			if err2 == nil && found2 {
				items2, err3 := r.OrderItems().ListByOrderID(ctx, ex2.ID)
				if err3 != nil {
					return newInternalError()
				}
				out = toOrderOutput(ex2, items2)
				return nil
			}
			return err
		}

		//注文明細一括作成
		if err := r.OrderItems().CreateBulk(ctx, orderID, orderItems); err != nil {
			return newInternalError()
		}

		//カートをクリア（再注文防止）
		if err := r.CartItems().ClearByUserID(ctx, userID); err != nil {
			return newInternalError()
		}

		order.ID = orderID
		out = toOrderOutput(order, orderItems)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	// キャッシュの無効化はコミット後のベストエフォート
	if len(touched) > 0 {
		u.cache.Invalidate(ctx, touched...)
	}
	u.log.Info("order placed", "user_id", userID, "order_id", out.ID, "total", out.TotalAmount)

	return out, nil
}

// CancelOrder はPLACEDの注文だけ取り消す。
// 在庫戻しとステータス更新は同じトランザクションで行う。
func (u *OrderUsecase) CancelOrder(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, newUnauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, newValidationError("invalid id")
	}

	var out OrderOutput
	var touched []int64

	err := withinTxRetry(ctx, u.tx, u.log, func(r repo.TxRepos) error {
		touched = touched[:0]

		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFoundError("order not found")
		}
		if err != nil {
			return newInternalError()
		}
		//他人の注文は「存在しない扱い」にする
		if o.UserID != userID {
			return newNotFoundError("order not found")
		}

		if !o.Status.CanTransitionTo(model.OrderStatusCancelled) {
			return newInvalidStateTransitionError(string(o.Status), string(model.OrderStatusCancelled))
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return newInternalError()
		}

		//確定時に引いた数量をそのまま戻す
		for _, it := range items {
			if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return newInternalError()
			}
			touched = append(touched, it.ProductID)
		}

		if err := r.Orders().UpdateStatus(ctx, orderID, model.OrderStatusCancelled); err != nil {
			return newInternalError()
		}

		o.Status = model.OrderStatusCancelled
		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}

	if len(touched) > 0 {
		u.cache.Invalidate(ctx, touched...)
	}
	u.log.Info("order cancelled", "user_id", userID, "order_id", orderID)

	return out, nil
}

func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64, page int, limit int) ([]OrderOutput, int64, error) {
	if userID <= 0 {
		return []OrderOutput{}, 0, newUnauthorizedError()
	}
	if page < 1 {
		return []OrderOutput{}, 0, newValidationError("invalid page")
	}
	if limit < 1 || limit > 100 {
		return []OrderOutput{}, 0, newValidationError("invalid limit")
	}

	var outs []OrderOutput
	var total int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, n, err := r.Orders().ListByUserID(ctx, userID, page, limit)
		if err != nil {
			return newInternalError()
		}
		total = n

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return newInternalError()
			}
			outs = append(outs, toOrderOutput(o, items))
		}
		return nil
	})

	if err != nil {
		return []OrderOutput{}, 0, err
	}
	return outs, total, nil
}

func (u *OrderUsecase) GetMyOrderDetail(ctx context.Context, userID int64, orderID int64) (OrderOutput, error) {
	if userID <= 0 {
		return OrderOutput{}, newUnauthorizedError()
	}
	if orderID <= 0 {
		return OrderOutput{}, newValidationError("invalid id")
	}

	var out OrderOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFoundError("order not found")
		}
		if err != nil {
			return newInternalError()
		}
		if o.UserID != userID {
			return newNotFoundError("order not found")
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return newInternalError()
		}

		out = toOrderOutput(o, items)
		return nil
	})

	if err != nil {
		return OrderOutput{}, err
	}
	return out, nil
}

// 一時的なDB衝突だけ全体をやり直す。使い切ったらconflictとして返す。
// 在庫を動かすトランザクション（確定・キャンセル・管理者キャンセル）は全部ここを通す。
func withinTxRetry(ctx context.Context, tx repo.TransactionManager, log *slog.Logger, fn func(r repo.TxRepos) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = tx.WithinTx(ctx, fn)
		if !isRetryableTxError(err) {
			return err
		}
		log.Warn("transaction conflict, retrying", "attempt", attempt, "err", err)
	}
	return newConflictError()
}

// PostgresのSQLSTATE 40001（直列化失敗）と40P01（デッドロック）だけ再試行対象。
func isRetryableTxError(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102150405"), suffix)
}

func toOrderOutput(o model.Order, items []model.OrderItem) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			Subtotal:  it.Subtotal(),
		})
	}

	return OrderOutput{
		ID:            o.ID,
		OrderNumber:   o.OrderNumber,
		UserID:        o.UserID,
		AddressID:     o.AddressID,
		Status:        string(o.Status),
		PaymentMethod: o.PaymentMethod,
		TotalAmount:   o.TotalAmount,
		CreatedAt:     o.CreatedAt,
		Items:         outItems,
	}
}
