package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacare/internal/config"
	"pharmacare/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	ErrEmptyItems      = errors.New("sale must contain at least one item")
	ErrNegativeAmount  = errors.New("monetary amounts must not be negative")
	ErrAmountMismatch  = errors.New("invoice amounts do not add up")
	ErrNumberExhausted = errors.New("could not allocate a unique invoice number")
)

// defaultNumberRetries bounds the regenerate-and-reinsert loop on invoice
// number collisions.
const defaultNumberRetries = 3

// SaleItemInput is one line of the cart as submitted by the POS screen.
type SaleItemInput struct {
	MedicineID uint            `json:"medicine_id" binding:"required" validate:"required"`
	Quantity   int             `json:"quantity" binding:"required,gt=0" validate:"required,gt=0"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// SaleInput is a full sale request. PharmacistID is always set explicitly by
// the caller from the authenticated user, never read from ambient state.
type SaleInput struct {
	CustomerName    string               `json:"customer_name"`
	CustomerMobile  string               `json:"customer_mobile"`
	CustomerAddress string               `json:"customer_address"`
	PharmacistID    uint                 `json:"-" validate:"required"`
	Items           []SaleItemInput      `json:"items" binding:"required,min=1,dive" validate:"required,min=1,dive"`
	TotalAmount     decimal.Decimal      `json:"total_amount"`
	DiscountAmount  decimal.Decimal      `json:"discount_amount"`
	FinalAmount     decimal.Decimal      `json:"final_amount"`
	PaymentMethod   models.PaymentMethod `json:"payment_method" binding:"required,oneof=cash card upi other" validate:"required,oneof=cash card upi other"`
	InvoiceDate     *time.Time           `json:"invoice_date"`
}

// Config tunes the coordinator.
type Config struct {
	AllowOversell bool
	NumberRetries int
}

// Service is the sale transaction coordinator: it turns a validated cart
// into an invoice header, line items, stock decrements and movement rows as
// one all-or-nothing unit of work.
type Service struct {
	db       *gorm.DB
	ledger   Ledger
	log      *logrus.Logger
	validate *validator.Validate
	retries  int

	// nextNumber is swappable in tests to force collisions.
	nextNumber func(tx *gorm.DB, date time.Time) (string, error)
}

func NewService(db *gorm.DB, cfg Config) *Service {
	retries := cfg.NumberRetries
	if retries <= 0 {
		retries = defaultNumberRetries
	}
	return &Service{
		db:         db,
		ledger:     NewLedger(cfg.AllowOversell),
		log:        config.GetLogger(),
		validate:   validator.New(),
		retries:    retries,
		nextNumber: nextInvoiceNumber,
	}
}

// Ledger exposes the stock ledger for callers that mutate stock outside a
// sale (manual adjustments, purchase restock).
func (s *Service) Ledger() Ledger {
	return s.ledger
}

// CreateInvoice runs the whole sale protocol. On success the returned
// invoice is fully persisted with its items and pharmacist preloaded; on any
// failure nothing is written.
//
// A duplicate invoice_number insert (two concurrent sales reading the same
// last number) is retried with a freshly generated number, bounded by
// retries. Resubmitting the same payload intentionally produces a second
// invoice: sales are not idempotent.
func (s *Service) CreateInvoice(ctx context.Context, input SaleInput) (*models.Invoice, error) {
	if err := s.validateInput(ctx, input); err != nil {
		return nil, err
	}

	date := time.Now()
	if input.InvoiceDate != nil {
		date = *input.InvoiceDate
	}

	var lastErr error
	for attempt := 1; attempt <= s.retries; attempt++ {
		invoice, err := s.createOnce(ctx, input, date)
		if err == nil {
			return invoice, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			lastErr = err
			s.log.WithFields(logrus.Fields{
				"module":  "sales",
				"attempt": attempt,
			}).Warn("invoice number collision, regenerating")
			continue
		}
		return nil, err
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrNumberExhausted, s.retries, lastErr)
}

// createOnce is a single attempt: one transaction covering numbering, header
// and item inserts, stock decrements and movement rows.
func (s *Service) createOnce(ctx context.Context, input SaleInput, date time.Time) (*models.Invoice, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	number, err := s.nextNumber(tx, date)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	items := make([]models.InvoiceItem, 0, len(input.Items))
	for _, it := range input.Items {
		items = append(items, models.InvoiceItem{
			MedicineID: it.MedicineID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
			TotalPrice: it.TotalPrice,
		})
	}

	invoice := models.Invoice{
		InvoiceNumber:   number,
		CustomerName:    input.CustomerName,
		CustomerMobile:  input.CustomerMobile,
		CustomerAddress: input.CustomerAddress,
		PharmacistID:    input.PharmacistID,
		TotalAmount:     input.TotalAmount,
		DiscountAmount:  input.DiscountAmount,
		FinalAmount:     input.FinalAmount,
		PaymentMethod:   input.PaymentMethod,
		InvoiceDate:     date,
		Items:           items, // header and items insert together
	}

	if err := tx.Create(&invoice).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	// Stock side-effects, in cart order: one decrement and one movement row
	// per line item, all against the same invoice.
	for _, it := range input.Items {
		if err := s.ledger.ApplyDelta(tx, it.MedicineID, -it.Quantity); err != nil {
			tx.Rollback()
			return nil, err
		}

		movement := models.StockMovement{
			MedicineID:    it.MedicineID,
			MovementType:  models.MovementOut,
			Quantity:      it.Quantity,
			ReferenceType: models.ReferenceSale,
			ReferenceID:   &invoice.ID,
			Notes:         "Sale " + number,
			CreatedBy:     input.PharmacistID,
		}
		if err := s.ledger.RecordMovement(tx, &movement); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	// Reload with items and pharmacist so the caller gets the persisted view.
	if err := tx.Preload("Items").Preload("Pharmacist").First(&invoice, invoice.ID).Error; err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &invoice, nil
}

// validateInput defends the invariants even though the HTTP layer validates
// upstream: non-empty cart, non-negative money, amounts that add up, and
// medicines that exist and are active. All checks run before the
// transaction opens so a rejected sale has no side effects.
func (s *Service) validateInput(ctx context.Context, input SaleInput) error {
	if len(input.Items) == 0 {
		return ErrEmptyItems
	}
	if err := s.validate.Struct(input); err != nil {
		return err
	}

	if input.TotalAmount.IsNegative() || input.DiscountAmount.IsNegative() || input.FinalAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if !input.TotalAmount.Sub(input.DiscountAmount).Equal(input.FinalAmount) {
		return ErrAmountMismatch
	}

	sum := decimal.Zero
	for _, it := range input.Items {
		if it.UnitPrice.IsNegative() {
			return ErrNegativeAmount
		}
		if !it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.TotalPrice) {
			return ErrAmountMismatch
		}
		sum = sum.Add(it.TotalPrice)
	}
	if !sum.Equal(input.TotalAmount) {
		return ErrAmountMismatch
	}

	ids := make([]uint, 0, len(input.Items))
	seen := make(map[uint]bool, len(input.Items))
	for _, it := range input.Items {
		if !seen[it.MedicineID] {
			seen[it.MedicineID] = true
			ids = append(ids, it.MedicineID)
		}
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Medicine{}).
		Where("id IN ? AND is_active = ?", ids, true).
		Count(&count).Error; err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return ErrMedicineUnavailable
	}

	return nil
}
