package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"app/internal/domain/model"

	"github.com/redis/go-redis/v9"
)

// 商品カタログの読み取りキャッシュ。
// 結果整合でよい表示系だけが使う。在庫チェックには絶対に使わない。
type ProductCache struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

func NewProductCache(rdb *redis.Client, ttl time.Duration, log *slog.Logger) *ProductCache {
	return &ProductCache{rdb: rdb, ttl: ttl, log: log}
}

type cachedList struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
}

func detailKey(productID int64) string {
	return fmt.Sprintf("products:detail:%d", productID)
}

const listVersionKey = "products:list:ver"

// 一覧キーはバージョン付き。無効化はバージョンを進めるだけでよい。
func (c *ProductCache) listKey(ctx context.Context, qkey string) (string, error) {
	ver, err := c.rdb.Get(ctx, listVersionKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("products:list:v%d:%s", ver, qkey), nil
}

func (c *ProductCache) GetProduct(ctx context.Context, productID int64) (model.Product, bool) {
	raw, err := c.rdb.Get(ctx, detailKey(productID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("product cache get failed", "product_id", productID, "err", err)
		}
		return model.Product{}, false
	}

	var p model.Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.Product{}, false
	}
	return p, true
}

func (c *ProductCache) SetProduct(ctx context.Context, p model.Product) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, detailKey(p.ID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("product cache set failed", "product_id", p.ID, "err", err)
	}
}

func (c *ProductCache) GetProductList(ctx context.Context, qkey string) ([]model.Product, int64, bool) {
	key, err := c.listKey(ctx, qkey)
	if err != nil {
		return nil, 0, false
	}

	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.Warn("product list cache get failed", "err", err)
		}
		return nil, 0, false
	}

	var v cachedList
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, 0, false
	}
	return v.Items, v.Total, true
}

func (c *ProductCache) SetProductList(ctx context.Context, qkey string, items []model.Product, total int64) {
	key, err := c.listKey(ctx, qkey)
	if err != nil {
		return
	}

	raw, err := json.Marshal(cachedList{Items: items, Total: total})
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.log.Warn("product list cache set failed", "err", err)
	}
}

// 在庫やステータスが変わった商品の詳細キーを消し、一覧バージョンを進める。
// ベストエフォート。失敗してもDBが正なので業務は継続する。
func (c *ProductCache) Invalidate(ctx context.Context, productIDs ...int64) {
	keys := make([]string, 0, len(productIDs))
	for _, id := range productIDs {
		keys = append(keys, detailKey(id))
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("product cache invalidate failed", "err", err)
		}
	}
	if err := c.rdb.Incr(ctx, listVersionKey).Err(); err != nil {
		c.log.Warn("product list version bump failed", "err", err)
	}
}
