package sales

import (
	"errors"

	"pharmacare/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientStock means a decrement would drive stock negative and
	// oversell is not allowed.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrMedicineUnavailable means a referenced medicine does not exist or is
	// inactive.
	ErrMedicineUnavailable = errors.New("medicine not found or inactive")
)

// Ledger owns medicine stock mutation and the append-only movement log.
// It holds no transaction boundary of its own: both methods run inside the
// caller's transaction so a failed sale leaves no trace.
type Ledger struct {
	allowOversell bool
}

func NewLedger(allowOversell bool) Ledger {
	return Ledger{allowOversell: allowOversell}
}

// ApplyDelta mutates quantity_in_stock by delta (negative for a sale,
// positive for returns/restock) as a relative update executed server-side.
// Reading stock into memory and writing it back would lose concurrent
// updates.
//
// Unless oversell is allowed, negative deltas are guarded so stock can never
// go below zero: the WHERE clause requires enough stock and a zero affected
// row count is reported as ErrInsufficientStock.
func (l Ledger) ApplyDelta(tx *gorm.DB, medicineID uint, delta int) error {
	q := tx.Model(&models.Medicine{}).
		Where("id = ? AND is_active = ?", medicineID, true)

	if delta < 0 && !l.allowOversell {
		q = q.Where("quantity_in_stock >= ?", -delta)
	}

	res := q.UpdateColumn("quantity_in_stock", gorm.Expr("quantity_in_stock + ?", delta))
	if res.Error != nil {
		return res.Error
	}

	if res.RowsAffected == 0 {
		// Either the medicine is gone/inactive or the guard rejected it.
		var count int64
		if err := tx.Model(&models.Medicine{}).
			Where("id = ? AND is_active = ?", medicineID, true).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrMedicineUnavailable
		}
		return ErrInsufficientStock
	}

	return nil
}

// RecordMovement appends one audit row. Movement rows are never updated or
// deleted.
func (l Ledger) RecordMovement(tx *gorm.DB, movement *models.StockMovement) error {
	return tx.Create(movement).Error
}
