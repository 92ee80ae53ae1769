package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Configはアプリ全体の設定。
// DB接続パラメータはここには持たず、infra/dbが環境変数から直接組み立てる。
// 起動時に足りないものを検出できるよう、必須チェックだけここで行う。
type Config struct {
	Port string // サーバーポート（8080）

	RedisAddr string        // Redisアドレス（商品キャッシュ用）
	CacheTTL  time.Duration // 商品キャッシュのTTL

	JWTSecret string // JWT署名シークレット

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSで使う）
}

// Loadは環境変数
func Load() (Config, error) {
	//DB系は存在チェックのみ（DATABASE_URLがあればそれで足りる）
	if os.Getenv("DATABASE_URL") == "" {
		for _, key := range []string{
			"POSTGRES_USER",
			"POSTGRES_PASSWORD",
			"POSTGRES_DB",
			"POSTGRES_HOST",
			"POSTGRES_PORT",
		} {
			if os.Getenv(key) == "" {
				return Config{}, fmt.Errorf("%s is required", key)
			}
		}
		if _, err := strconv.Atoi(os.Getenv("POSTGRES_PORT")); err != nil {
			return Config{}, fmt.Errorf("POSTGRES_PORT must be number: %w", err)
		}
	}

	cacheTTLSec := 300
	if v := os.Getenv("CACHE_TTL_SECONDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("CACHE_TTL_SECONDS must be number: %w", err)
		}
		cacheTTLSec = n
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	cfg := Config{
		Port: os.Getenv("PORT"),

		RedisAddr: redisAddr,
		CacheTTL:  time.Duration(cacheTTLSec) * time.Second,

		JWTSecret: os.Getenv("JWT_SECRET"),

		GoEnv: os.Getenv("GO_ENV"),
		FEURL: os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.Port == "" {
		return Config{}, fmt.Errorf("PORT is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.GoEnv == "" {
		return Config{}, fmt.Errorf("GO_ENV is required")
	}

	return cfg, nil
}
