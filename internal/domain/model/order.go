package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
)

// 許可される遷移はPLACED→CANCELLEDとPLACED→DELIVEREDのみ。
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s != OrderStatusPlaced {
		return false
	}
	return next == OrderStatusCancelled || next == OrderStatusDelivered
}

// 注文。作成後はstatus以外を変更しない。
type Order struct {
	ID             int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderNumber    string          `gorm:"type:varchar(50);not null;uniqueIndex" json:"order_number"`
	UserID         int64           `gorm:"not null;index" json:"user_id"`
	AddressID      int64           `gorm:"not null" json:"address_id"`
	Status         OrderStatus     `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod  string          `gorm:"type:varchar(50);not null" json:"payment_method"`
	TotalAmount    decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	IdempotencyKey string          `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`
	CreatedAt      time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
