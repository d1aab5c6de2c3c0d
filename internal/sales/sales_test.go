package sales

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"pharmacare/internal/database"
	"pharmacare/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory SQLite database with the same
// TranslateError setting as production, so duplicate-key detection behaves
// the same way. A single pool connection serializes concurrent transactions.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return db
}

func seedPharmacist(t *testing.T, db *gorm.DB) models.User {
	t.Helper()

	user := models.User{
		Username:     "counter1",
		PasswordHash: "x",
		FullName:     "Test Pharmacist",
		Role:         models.RolePharmacist,
		IsActive:     true,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed pharmacist: %v", err)
	}
	return user
}

func seedMedicine(t *testing.T, db *gorm.DB, name string, stock int, price string) models.Medicine {
	t.Helper()

	med := models.Medicine{
		Name:            name,
		GenericName:     name,
		SellingPrice:    decimal.RequireFromString(price),
		BuyingPrice:     decimal.RequireFromString(price).Div(decimal.NewFromInt(2)),
		QuantityInStock: stock,
		MinStockLevel:   5,
		IsActive:        true,
	}
	if err := db.Create(&med).Error; err != nil {
		t.Fatalf("seed medicine %s: %v", name, err)
	}
	return med
}

// saleFor builds a well-formed single-line cart for the given medicine.
func saleFor(pharmacistID uint, med models.Medicine, qty int) SaleInput {
	total := med.SellingPrice.Mul(decimal.NewFromInt(int64(qty)))
	return SaleInput{
		PharmacistID:  pharmacistID,
		PaymentMethod: models.PaymentCash,
		Items: []SaleItemInput{{
			MedicineID: med.ID,
			Quantity:   qty,
			UnitPrice:  med.SellingPrice,
			TotalPrice: total,
		}},
		TotalAmount:    total,
		DiscountAmount: decimal.Zero,
		FinalAmount:    total,
	}
}

func stockOf(t *testing.T, db *gorm.DB, medicineID uint) int {
	t.Helper()

	var med models.Medicine
	if err := db.First(&med, medicineID).Error; err != nil {
		t.Fatalf("fetch medicine %d: %v", medicineID, err)
	}
	return med.QuantityInStock
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func todayPrefix() string {
	return fmt.Sprintf("INV-%s-", time.Now().Format("20060102"))
}
