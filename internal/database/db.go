package database

import (
	"log"
	"time"

	"pharmacare/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Connect opens the MySQL connection and syncs the schema.
// TranslateError is on so duplicate-key violations surface as
// gorm.ErrDuplicatedKey (the sale coordinator retries on it).
func Connect(dsn string) {
	if dsn == "" {
		log.Fatal("DB_DSN is not set. Please configure your database.")
	}

	var err error

	// Wait for the DB to be ready (docker-compose startup ordering)
	for i := 0; i < 5; i++ {
		DB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Warn),
			TranslateError: true,
		})
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database. Retrying in 2 seconds... (%d/5)", i+1)
		time.Sleep(2 * time.Second)
	}

	if err != nil {
		log.Fatal("Failed to connect to database after 5 attempts:", err)
	}

	if err := Migrate(DB); err != nil {
		log.Fatal("Failed to migrate database schema:", err)
	}

	log.Println("Connected to MySQL, schema synced")
}

// Migrate syncs the schema. Split out from Connect so tests can run it
// against their own database handle.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.Medicine{},
		&models.Invoice{},
		&models.InvoiceItem{},
		&models.StockMovement{},
	)
}
