package main

import (
	"fmt"
	"os"

	"app/internal/domain/model"
	"app/internal/infra/db"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 開発用の初期データ投入。既にあるものはスキップする。
func main() {
	_ = godotenv.Load()

	gormDB, err := db.Connect()
	if err != nil {
		fmt.Fprintln(os.Stderr, "db connect:", err)
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
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	if err := seedAdmin(gormDB); err != nil {
		fmt.Fprintln(os.Stderr, "seed admin:", err)
		os.Exit(1)
	}

	if err := seedCatalog(gormDB); err != nil {
		fmt.Fprintln(os.Stderr, "seed catalog:", err)
		os.Exit(1)
	}

	fmt.Println("seed done")
}

func seedAdmin(gormDB *gorm.DB) error {
	email := os.Getenv("SEED_ADMIN_EMAIL")
	if email == "" {
		email = "admin@example.com"
	}
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if password == "" {
		password = "admin12345"
	}

	var count int64
	if err := gormDB.Model(&model.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}

	admin := model.User{
		Email:        email,
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	return gormDB.Create(&admin).Error
}

func seedCatalog(gormDB *gorm.DB) error {
	var count int64
	if err := gormDB.Model(&model.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := []model.Category{
		{Name: "Electronics", Description: "Gadgets and devices", IsActive: true},
		{Name: "Fashion", Description: "Clothing and accessories", IsActive: true},
		{Name: "Home & Kitchen", Description: "Household goods", IsActive: true},
		{Name: "Books", Description: "Books and magazines", IsActive: true},
	}
	if err := gormDB.Create(&categories).Error; err != nil {
		return err
	}

	price := func(s string) decimal.Decimal {
		d, _ := decimal.NewFromString(s)
		return d
	}

	products := []model.Product{
		{
			Name:               "Wireless Earbuds",
			Description:        "Bluetooth 5.3, noise cancelling",
			Price:              price("79.99"),
			DiscountPercentage: price("10"),
			CategoryID:         &categories[0].ID,
			Brand:              "SoundCore",
			SKU:                "ELEC-0001",
			Stock:              120,
			IsActive:           true,
		},
		{
			Name:        "Mechanical Keyboard",
			Description: "Hot swappable, 87 keys",
			Price:       price("129.00"),
			CategoryID:  &categories[0].ID,
			Brand:       "Keychron",
			SKU:         "ELEC-0002",
			Stock:       45,
			IsActive:    true,
		},
		{
			Name:               "Cotton T-Shirt",
			Description:        "Plain crew neck",
			Price:              price("19.50"),
			DiscountPercentage: price("5"),
			CategoryID:         &categories[1].ID,
			Brand:              "Uniqlo",
			SKU:                "FASH-0001",
			Stock:              300,
			IsActive:           true,
		},
		{
			Name:        "Cast Iron Skillet",
			Description: "26cm pre-seasoned",
			Price:       price("42.00"),
			CategoryID:  &categories[2].ID,
			Brand:       "Lodge",
			SKU:         "HOME-0001",
			Stock:       60,
			IsActive:    true,
		},
		{
			Name:        "The Go Programming Language",
			Description: "Donovan & Kernighan",
			Price:       price("39.99"),
			CategoryID:  &categories[3].ID,
			Brand:       "Addison-Wesley",
			SKU:         "BOOK-0001",
			Stock:       25,
			IsActive:    true,
		},
	}
	return gormDB.Create(&products).Error
}
