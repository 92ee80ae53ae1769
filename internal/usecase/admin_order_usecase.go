package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AdminOrderUsecase struct {
	tx    repo.TransactionManager
	cache CatalogCache
	log   *slog.Logger
}

func NewAdminOrderUsecase(tx repo.TransactionManager, cache CatalogCache, log *slog.Logger) *AdminOrderUsecase {
	return &AdminOrderUsecase{tx: tx, cache: cache, log: log}
}

type AdminUpdateOrderStatusInput struct {
	Status string
}

// 注文一覧（管理者）
func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) ([]OrderOutput, int64, error) {
	if f.Page < 1 {
		return []OrderOutput{}, 0, newValidationError("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return []OrderOutput{}, 0, newValidationError("invalid limit")
	}

	var outs []OrderOutput
	var total int64

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, n, err := r.Orders().ListAdmin(ctx, f)
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

// ステータス更新。CANCELLEDなら在庫戻しを同じトランザクションで行う。
// 遷移はPLACED→DELIVERED / PLACED→CANCELLEDだけ許可。
func (u *AdminOrderUsecase) UpdateStatus(ctx context.Context, actorAdminUserID int64, orderID int64, in AdminUpdateOrderStatusInput) error {
	if actorAdminUserID <= 0 {
		return newUnauthorizedError()
	}
	if orderID <= 0 {
		return newValidationError("invalid id")
	}

	newStatus := model.OrderStatus(strings.TrimSpace(in.Status))
	switch newStatus {
	case model.OrderStatusDelivered, model.OrderStatusCancelled:
		// OK
	default:
		return newValidationError("invalid status")
	}

	var touched []int64

	//在庫を戻す可能性があるので、ユーザーのキャンセルと同じ再試行付きで回す
	err := withinTxRetry(ctx, u.tx, u.log, func(r repo.TxRepos) error {
		touched = touched[:0]

		o, err := r.Orders().FindByID(ctx, orderID)
		if err == repo.ErrNotFound {
			return newNotFoundError("order not found")
		}
		if err != nil {
			return newInternalError()
		}

		if !o.Status.CanTransitionTo(newStatus) {
			return newInvalidStateTransitionError(string(o.Status), string(newStatus))
		}

		// キャンセルのときだけ在庫戻し
		if newStatus == model.OrderStatusCancelled {
			items, err := r.OrderItems().ListByOrderID(ctx, orderID)
			if err != nil {
				return newInternalError()
			}

			for _, it := range items {
				if err := r.Inventory().IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
					return newInternalError()
				}
				touched = append(touched, it.ProductID)
			}
		}

		beforeStatus := string(o.Status)
		if err := r.Orders().UpdateStatus(ctx, orderID, newStatus); err != nil {
			if err == repo.ErrNotFound {
				return newNotFoundError("order not found")
			}
			return newInternalError()
		}

		//監査ログ（誰が・何を・どう変えたか）
		beforeJSON := `{"status":"` + beforeStatus + `"}`
		afterJSON := `{"status":"` + string(newStatus) + `"}`
		if err := r.AuditLogs().Create(ctx, model.AuditLog{
			ActorUserID:  actorAdminUserID,
			Action:       model.AuditActionUpdateOrderStatus,
			ResourceType: model.AuditResourceOrder,
			ResourceID:   orderID,
			BeforeJSON:   beforeJSON,
			AfterJSON:    afterJSON,
			CreatedAt:    time.Now(),
		}); err != nil {
			return newInternalError()
		}

		return nil
	})

	if err != nil {
		return err
	}

	if len(touched) > 0 {
		u.cache.Invalidate(ctx, touched...)
	}
	u.log.Info("order status updated", "actor", actorAdminUserID, "order_id", orderID, "status", string(newStatus))

	return nil
}

// 期間パラメータはhandlerでRFC3339をパースしてここに入れる
func ParseDateTimeRFC3339(s string) (*time.Time, bool) {
	if strings.TrimSpace(s) == "" {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}
