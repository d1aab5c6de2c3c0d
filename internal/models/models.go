package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User - Admins manage the pharmacy, pharmacists run the counter
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Username     string    `gorm:"uniqueIndex;size:50" json:"username"`
	PasswordHash string    `json:"-"` // Never return this in JSON
	FullName     string    `gorm:"size:100" json:"full_name"`
	Role         string    `gorm:"size:20" json:"role"` // 'admin', 'pharmacist'
	IsActive     bool      `gorm:"default:true" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// Company - Manufacturer / supplier a medicine belongs to
type Company struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Name          string    `gorm:"size:100" json:"name"`
	ContactPerson string    `gorm:"size:100" json:"contact_person"`
	Mobile        string    `gorm:"size:20" json:"mobile"`
	Email         string    `gorm:"size:100" json:"email"`
	Address       string    `json:"address"`
	IsActive      bool      `gorm:"default:true" json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Medicine - The inventory. Quantity is only ever mutated through the
// stock ledger so every change leaves a movement row behind.
type Medicine struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	CompanyID       uint            `gorm:"index" json:"company_id"`
	Company         Company         `json:"company"`
	Name            string          `gorm:"size:100;index" json:"name"`
	GenericName     string          `gorm:"size:100" json:"generic_name"`
	BatchNumber     string          `gorm:"size:50" json:"batch_number"`
	BuyingPrice     decimal.Decimal `gorm:"type:decimal(10,2)" json:"buying_price"`
	SellingPrice    decimal.Decimal `gorm:"type:decimal(10,2)" json:"selling_price"`
	QuantityInStock int             `json:"quantity_in_stock"`
	MinStockLevel   int             `gorm:"default:10" json:"min_stock_level"`
	ExpiryDate      *time.Time      `json:"expiry_date"`
	ShelfLocation   string          `gorm:"size:50" json:"shelf_location"`
	ImageURL        string          `json:"image_url"`
	IsActive        bool            `gorm:"default:true" json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsLowStock reports whether on-hand quantity has hit the reorder threshold.
func (m Medicine) IsLowStock() bool {
	return m.QuantityInStock <= m.MinStockLevel
}

// IsExpired reports whether the medicine is past its expiry date.
// Medicines without an expiry date never expire.
func (m Medicine) IsExpired(now time.Time) bool {
	return m.ExpiryDate != nil && m.ExpiryDate.Before(now)
}

// Invoice - The sale header. Created once per checkout, immutable after.
type Invoice struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string          `gorm:"uniqueIndex;size:50" json:"invoice_number"`
	CustomerName    string          `gorm:"size:100" json:"customer_name"`
	CustomerMobile  string          `gorm:"size:20" json:"customer_mobile"`
	CustomerAddress string          `json:"customer_address"`
	PharmacistID    uint            `gorm:"index" json:"pharmacist_id"`
	Pharmacist      User            `gorm:"foreignKey:PharmacistID" json:"pharmacist"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_amount"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(12,2)" json:"discount_amount"`
	FinalAmount     decimal.Decimal `gorm:"type:decimal(12,2)" json:"final_amount"`
	PaymentMethod   PaymentMethod   `gorm:"size:10" json:"payment_method"`
	InvoiceDate     time.Time       `json:"invoice_date"`
	Items           []InvoiceItem   `gorm:"foreignKey:InvoiceID" json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// InvoiceItem - One medicine line inside an invoice
type InvoiceItem struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	InvoiceID  uint            `gorm:"index" json:"invoice_id"`
	MedicineID uint            `gorm:"index" json:"medicine_id"`
	Medicine   Medicine        `json:"medicine"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(10,2)" json:"unit_price"`  // Snapshot of selling price at sale time
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2)" json:"total_price"` // Quantity * UnitPrice
}

// StockMovement - Append-only audit row. One per stock-affecting event,
// never updated or deleted.
type StockMovement struct {
	ID            uint          `gorm:"primaryKey" json:"id"`
	MedicineID    uint          `gorm:"index" json:"medicine_id"`
	Medicine      Medicine      `json:"medicine"`
	MovementType  MovementType  `gorm:"size:15" json:"movement_type"`
	Quantity      int           `json:"quantity"`
	ReferenceType ReferenceType `gorm:"size:15" json:"reference_type"`
	ReferenceID   *uint         `json:"reference_id"` // e.g. invoice id when ReferenceType is 'sale'
	Notes         string        `json:"notes"`
	CreatedBy     uint          `json:"created_by"`
	CreatedAt     time.Time     `json:"created_at"`
}
