package model

import "time"

// カートの明細。(user_id, product_id) で一意。
// 価格はここには持たない。確定時に商品を読み直して採番する。
type CartItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"not null;uniqueIndex:uniq_user_product" json:"user_id"`
	ProductID int64     `gorm:"not null;uniqueIndex:uniq_user_product;index" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
