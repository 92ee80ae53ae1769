package main

import (
	"fmt"
	"os"
	"time"

	"app/internal/config"
	"app/internal/domain/model"
	"app/internal/handler"
	"app/internal/infra/cache"
	"app/internal/infra/db"
	infraRepo "app/internal/infra/repository"
	"app/internal/logging"
	"app/internal/metrics"
	"app/internal/server"
	"app/internal/usecase"

	"github.com/golang-jwt/jwt/v4"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	//.envは無くてもよい（compose等で環境変数が入る想定）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logging.New(cfg.GoEnv)

	//DB接続
	gormDB, err := db.Connect()
	if err != nil {
		log.Error("db connect failed", "error", err)
		os.Exit(1)
	}

	if err := gormDB.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Address{},
		&model.AuditLog{},
	); err != nil {
		log.Error("migrate failed", "error", err)
		os.Exit(1)
	}

	//Redis（商品キャッシュ）
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	productCache := cache.NewProductCache(rdb, cfg.CacheTTL, log)

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	addressRepo := infraRepo.NewAddressGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := usecase.NewBcryptPasswordHasher(12)
	verifier := usecase.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 15 * time.Minute,
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(userRepo, hasher, verifier, issuer)
	productUC := usecase.NewProductUsecase(productRepo, categoryRepo, productCache)
	cartUC := usecase.NewCartUsecase(cartItemRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txManager, addressRepo, productCache, log)
	addressUC := usecase.NewAddressUsecase(addressRepo)
	adminOrderUC := usecase.NewAdminOrderUsecase(txManager, productCache, log)

	//Handler生成
	h := server.Handlers{
		Auth:       handler.NewAuthHandler(authUC),
		Product:    handler.NewProductHandler(productUC),
		Cart:       handler.NewCartHandler(cartUC),
		Order:      handler.NewOrderHandler(orderUC),
		Address:    handler.NewAddressHandler(addressUC),
		AdminOrder: handler.NewAdminOrderHandler(adminOrderUC),
	}

	m := metrics.NewServerMetrics("api")

	//Server起動
	srv := server.New(cfg, log, m)
	srv.RegisterRoutes(cfg, h)

	if err := srv.Start(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
