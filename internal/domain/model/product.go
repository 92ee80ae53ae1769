package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Product struct {
	ID                 int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string          `gorm:"type:varchar(255);not null;index" json:"name"`
	Description        string          `gorm:"type:text" json:"description"`
	Price              decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"price"`
	DiscountPercentage decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percentage"`
	CategoryID         *int64          `gorm:"index" json:"category_id"`
	Brand              string          `gorm:"type:varchar(100)" json:"brand"`
	SKU                string          `gorm:"type:varchar(50);uniqueIndex" json:"sku"`
	ImageURL           string          `gorm:"type:varchar(500)" json:"image_url"`
	Stock              int64           `gorm:"not null;default:0" json:"stock"`
	IsActive           bool            `gorm:"not null;default:false" json:"is_active"`
	CreatedAt          time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `gorm:"index" json:"-"`
}

// 割引後の単価。注文確定時の価格はこれを使う。
func (p Product) FinalPrice() decimal.Decimal {
	if p.DiscountPercentage.IsZero() {
		return p.Price.Round(2)
	}
	ratio := decimal.NewFromInt(1).Sub(p.DiscountPercentage.Div(decimal.NewFromInt(100)))
	return p.Price.Mul(ratio).Round(2)
}
