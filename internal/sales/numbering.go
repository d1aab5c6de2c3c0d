package sales

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"pharmacare/internal/config"
	"pharmacare/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// maxDailySeq is the largest suffix that still fits the zero-padded width
// the lexicographic scan depends on.
const maxDailySeq = 999

// nextInvoiceNumber derives the next date-scoped invoice number, e.g.
// INV-20260831-004. The numeric suffix is fixed-width and zero-padded, so
// ORDER BY invoice_number DESC over today's prefix yields the numeric max.
//
// The scan alone is not safe under concurrent writers; the unique index on
// invoice_number plus the coordinator's regenerate-and-retry loop is what
// makes the scheme correct.
func nextInvoiceNumber(tx *gorm.DB, date time.Time) (string, error) {
	prefix := fmt.Sprintf("INV-%s-", date.Format("20060102"))

	var last string
	err := tx.Model(&models.Invoice{}).
		Select("invoice_number").
		Where("invoice_number LIKE ?", prefix+"%").
		Order("invoice_number DESC").
		Limit(1).
		Scan(&last).Error
	if err != nil {
		// Degraded-uniqueness fallback: never block the sale on a lookup
		// error. The token is still unique on its own.
		config.LogError(config.GetLogger(), "sales", "nextInvoiceNumber", prefix, err)
		return fallbackInvoiceNumber(), nil
	}

	seq := 1
	if last != "" {
		n, convErr := strconv.Atoi(strings.TrimPrefix(last, prefix))
		if convErr != nil {
			config.LogError(config.GetLogger(), "sales", "nextInvoiceNumber", last, convErr)
			return fallbackInvoiceNumber(), nil
		}
		seq = n + 1
	}

	// Past 999 the suffix would outgrow its fixed width and stop sorting
	// numerically, so the DESC scan could never see the true max again.
	// Switch to fallback tokens for the rest of the day instead of looping
	// on a stale number.
	if seq > maxDailySeq {
		config.GetLogger().WithField("prefix", prefix).
			Warn("daily invoice sequence exhausted, using fallback numbers")
		return fallbackInvoiceNumber(), nil
	}

	return fmt.Sprintf("%s%03d", prefix, seq), nil
}

// fallbackInvoiceNumber combines the nanosecond clock with a random suffix so
// the result is unique even when two sales fall on the same nanosecond.
func fallbackInvoiceNumber() string {
	return fmt.Sprintf("INV-%d-%s", time.Now().UnixNano(), uuid.NewString()[:8])
}
