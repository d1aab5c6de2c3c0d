package database

import (
	"time"

	"pharmacare/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesSummary holds the headline numbers for a date range.
type SalesSummary struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	InvoiceCount  int64           `json:"invoice_count"`
}

// TopSellingRow is one medicine in the best-sellers list.
type TopSellingRow struct {
	MedicineName string          `json:"medicine_name"`
	UnitsSold    int             `json:"units_sold"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// PharmacistSalesRow is one pharmacist's rollup for the admin report.
type PharmacistSalesRow struct {
	PharmacistID   uint            `json:"pharmacist_id"`
	PharmacistName string          `json:"pharmacist_name"`
	InvoiceCount   int64           `json:"invoice_count"`
	Revenue        decimal.Decimal `json:"revenue"`
}

// GetSalesSummary aggregates invoices in [start, end]. pharmacistID 0 means
// all pharmacists (admin view).
func GetSalesSummary(db *gorm.DB, start, end time.Time, pharmacistID uint) (*SalesSummary, error) {
	var summary SalesSummary

	q := db.Model(&models.Invoice{}).Where("invoice_date BETWEEN ? AND ?", start, end)
	if pharmacistID != 0 {
		q = q.Where("pharmacist_id = ?", pharmacistID)
	}

	// COALESCE ensures we get 0 instead of NULL when no invoices exist
	row := q.Select(
		"COALESCE(SUM(final_amount), 0) AS total_revenue, " +
			"COALESCE(SUM(discount_amount), 0) AS total_discount, " +
			"COUNT(*) AS invoice_count")
	if err := row.Scan(&summary).Error; err != nil {
		return nil, err
	}

	return &summary, nil
}

// GetTopSellingMedicines returns the best sellers by units sold in [start, end].
func GetTopSellingMedicines(db *gorm.DB, start, end time.Time, limit int) ([]TopSellingRow, error) {
	var rows []TopSellingRow

	err := db.Table("invoice_items").
		Select("medicines.name AS medicine_name, SUM(invoice_items.quantity) AS units_sold, SUM(invoice_items.total_price) AS revenue").
		Joins("JOIN medicines ON invoice_items.medicine_id = medicines.id").
		Joins("JOIN invoices ON invoice_items.invoice_id = invoices.id").
		Where("invoices.invoice_date BETWEEN ? AND ?", start, end).
		Group("medicines.name").
		Order("units_sold DESC").
		Limit(limit).
		Scan(&rows).Error

	return rows, err
}

// GetPharmacistSales rolls invoices up per pharmacist for the admin report.
func GetPharmacistSales(db *gorm.DB, start, end time.Time) ([]PharmacistSalesRow, error) {
	var rows []PharmacistSalesRow

	err := db.Table("invoices").
		Select("invoices.pharmacist_id AS pharmacist_id, users.full_name AS pharmacist_name, COUNT(*) AS invoice_count, COALESCE(SUM(invoices.final_amount), 0) AS revenue").
		Joins("JOIN users ON invoices.pharmacist_id = users.id").
		Where("invoices.invoice_date BETWEEN ? AND ?", start, end).
		Group("invoices.pharmacist_id, users.full_name").
		Order("revenue DESC").
		Scan(&rows).Error

	return rows, err
}
