package sales

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"pharmacare/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func TestCreateInvoiceSuccess(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	input := saleFor(ph.ID, med, 3)
	input.CustomerName = "Walk-in"

	invoice, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if want := todayPrefix() + "001"; invoice.InvoiceNumber != want {
		t.Errorf("invoice number = %q, want %q", invoice.InvoiceNumber, want)
	}
	if len(invoice.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(invoice.Items))
	}
	if !invoice.Items[0].TotalPrice.Equal(decimal.RequireFromString("7.50")) {
		t.Errorf("item total = %s, want 7.50", invoice.Items[0].TotalPrice)
	}
	if invoice.Pharmacist.FullName != "Test Pharmacist" {
		t.Errorf("pharmacist name = %q, not preloaded", invoice.Pharmacist.FullName)
	}

	if got := stockOf(t, db, med.ID); got != 97 {
		t.Errorf("stock = %d, want 97", got)
	}

	var movements []models.StockMovement
	if err := db.Where("reference_type = ? AND reference_id = ?", models.ReferenceSale, invoice.ID).Find(&movements).Error; err != nil {
		t.Fatalf("fetch movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movement rows = %d, want 1", len(movements))
	}
	if movements[0].MovementType != models.MovementOut || movements[0].Quantity != 3 {
		t.Errorf("movement = %s/%d, want out/3", movements[0].MovementType, movements[0].Quantity)
	}
	if movements[0].CreatedBy != ph.ID {
		t.Errorf("movement created_by = %d, want %d", movements[0].CreatedBy, ph.ID)
	}
}

func TestCreateInvoiceMultipleItemsTotalsMatch(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 50, "2.50")
	medB := seedMedicine(t, db, "Ibuprofen", 50, "3.00")

	svc := NewService(db, Config{})

	items := []SaleItemInput{
		{MedicineID: medA.ID, Quantity: 2, UnitPrice: medA.SellingPrice, TotalPrice: decimal.RequireFromString("5.00")},
		{MedicineID: medB.ID, Quantity: 4, UnitPrice: medB.SellingPrice, TotalPrice: decimal.RequireFromString("12.00")},
	}
	input := SaleInput{
		PharmacistID:   ph.ID,
		PaymentMethod:  models.PaymentCard,
		Items:          items,
		TotalAmount:    decimal.RequireFromString("17.00"),
		DiscountAmount: decimal.RequireFromString("2.00"),
		FinalAmount:    decimal.RequireFromString("15.00"),
	}

	invoice, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	if len(invoice.Items) != len(items) {
		t.Fatalf("items = %d, want %d", len(invoice.Items), len(items))
	}

	sum := decimal.Zero
	for _, it := range invoice.Items {
		sum = sum.Add(it.TotalPrice)
	}
	if !sum.Equal(invoice.TotalAmount) {
		t.Errorf("sum of item totals %s != invoice total %s", sum, invoice.TotalAmount)
	}

	if got := stockOf(t, db, medA.ID); got != 48 {
		t.Errorf("stock A = %d, want 48", got)
	}
	if got := stockOf(t, db, medB.ID); got != 46 {
		t.Errorf("stock B = %d, want 46", got)
	}
}

func TestCreateInvoiceNumbersIncreaseWithinDay(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	var numbers []string
	for i := 0; i < 3; i++ {
		invoice, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 1))
		if err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
		numbers = append(numbers, invoice.InvoiceNumber)
	}

	for i := 1; i < len(numbers); i++ {
		if numbers[i] <= numbers[i-1] {
			t.Errorf("numbers not strictly increasing: %q then %q", numbers[i-1], numbers[i])
		}
	}
}

func TestCreateInvoiceEmptyItemsRejected(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)

	svc := NewService(db, Config{})

	input := SaleInput{
		PharmacistID:   ph.ID,
		PaymentMethod:  models.PaymentCash,
		TotalAmount:    decimal.Zero,
		DiscountAmount: decimal.Zero,
		FinalAmount:    decimal.Zero,
	}

	if _, err := svc.CreateInvoice(context.Background(), input); !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("err = %v, want ErrEmptyItems", err)
	}
	if got := countRows(t, db, &models.Invoice{}); got != 0 {
		t.Errorf("invoice rows = %d, want 0 (rejected before any write)", got)
	}
}

func TestCreateInvoiceAmountMismatchRejected(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	// final != total - discount
	input := saleFor(ph.ID, med, 2)
	input.FinalAmount = input.FinalAmount.Add(decimal.NewFromInt(1))
	if _, err := svc.CreateInvoice(context.Background(), input); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("header mismatch: err = %v, want ErrAmountMismatch", err)
	}

	// item total != quantity * unit price
	input = saleFor(ph.ID, med, 2)
	input.Items[0].TotalPrice = decimal.RequireFromString("99.00")
	if _, err := svc.CreateInvoice(context.Background(), input); !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("item mismatch: err = %v, want ErrAmountMismatch", err)
	}

	if got := stockOf(t, db, med.ID); got != 100 {
		t.Errorf("stock = %d, want 100", got)
	}
}

func TestCreateInvoiceNegativeAmountRejected(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	input := saleFor(ph.ID, med, 2)
	input.DiscountAmount = decimal.NewFromInt(-1)
	if _, err := svc.CreateInvoice(context.Background(), input); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("err = %v, want ErrNegativeAmount", err)
	}
}

func TestCreateInvoiceUnknownOrInactiveMedicineRejected(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	missing := saleFor(ph.ID, med, 1)
	missing.Items[0].MedicineID = 9999
	if _, err := svc.CreateInvoice(context.Background(), missing); !errors.Is(err, ErrMedicineUnavailable) {
		t.Fatalf("missing medicine: err = %v, want ErrMedicineUnavailable", err)
	}

	if err := db.Model(&models.Medicine{}).Where("id = ?", med.ID).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 1)); !errors.Is(err, ErrMedicineUnavailable) {
		t.Fatalf("inactive medicine: err = %v, want ErrMedicineUnavailable", err)
	}

	if got := countRows(t, db, &models.Invoice{}); got != 0 {
		t.Errorf("invoice rows = %d, want 0", got)
	}
}

// A failure on the second line item must leave nothing behind from the
// attempt: no header, no items, no movement rows, and the first item's
// decrement undone.
func TestCreateInvoiceRollsBackOnMidTransactionFailure(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	medA := seedMedicine(t, db, "Paracetamol", 50, "2.50")
	medB := seedMedicine(t, db, "Ibuprofen", 2, "3.00")

	svc := NewService(db, Config{})

	input := SaleInput{
		PharmacistID:  ph.ID,
		PaymentMethod: models.PaymentCash,
		Items: []SaleItemInput{
			{MedicineID: medA.ID, Quantity: 5, UnitPrice: medA.SellingPrice, TotalPrice: decimal.RequireFromString("12.50")},
			{MedicineID: medB.ID, Quantity: 5, UnitPrice: medB.SellingPrice, TotalPrice: decimal.RequireFromString("15.00")},
		},
		TotalAmount:    decimal.RequireFromString("27.50"),
		DiscountAmount: decimal.Zero,
		FinalAmount:    decimal.RequireFromString("27.50"),
	}

	if _, err := svc.CreateInvoice(context.Background(), input); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	if got := stockOf(t, db, medA.ID); got != 50 {
		t.Errorf("stock A = %d, want 50 (first decrement must roll back)", got)
	}
	if got := stockOf(t, db, medB.ID); got != 2 {
		t.Errorf("stock B = %d, want 2", got)
	}
	if got := countRows(t, db, &models.Invoice{}); got != 0 {
		t.Errorf("invoice rows = %d, want 0", got)
	}
	if got := countRows(t, db, &models.InvoiceItem{}); got != 0 {
		t.Errorf("item rows = %d, want 0", got)
	}
	if got := countRows(t, db, &models.StockMovement{}); got != 0 {
		t.Errorf("movement rows = %d, want 0", got)
	}
}

func TestCreateInvoiceOversellAllowedWhenConfigured(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 2, "2.50")

	svc := NewService(db, Config{AllowOversell: true})

	if _, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 5)); err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if got := stockOf(t, db, med.ID); got != -3 {
		t.Errorf("stock = %d, want -3 (backorder mode)", got)
	}
}

// Resubmitting the same payload is a second sale, not a retry of the first:
// two invoices, two numbers, double decrement.
func TestCreateInvoiceNotIdempotent(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})
	input := saleFor(ph.ID, med, 3)

	first, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}
	second, err := svc.CreateInvoice(context.Background(), input)
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}

	if first.InvoiceNumber == second.InvoiceNumber {
		t.Errorf("both sales got number %q", first.InvoiceNumber)
	}
	if got := countRows(t, db, &models.Invoice{}); got != 2 {
		t.Errorf("invoice rows = %d, want 2", got)
	}
	if got := stockOf(t, db, med.ID); got != 94 {
		t.Errorf("stock = %d, want 94", got)
	}
}

func TestCreateInvoiceRetriesOnNumberCollision(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	// Another writer already owns this number.
	taken := models.Invoice{
		InvoiceNumber: "INV-COLLIDE-001",
		PharmacistID:  ph.ID,
		PaymentMethod: models.PaymentCash,
		InvoiceDate:   time.Now(),
	}
	if err := db.Create(&taken).Error; err != nil {
		t.Fatalf("seed colliding invoice: %v", err)
	}

	svc := NewService(db, Config{})
	calls := 0
	svc.nextNumber = func(tx *gorm.DB, date time.Time) (string, error) {
		calls++
		if calls == 1 {
			return "INV-COLLIDE-001", nil
		}
		return nextInvoiceNumber(tx, date)
	}

	invoice, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 2))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if calls != 2 {
		t.Errorf("number generator called %d times, want 2", calls)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, todayPrefix()) {
		t.Errorf("retried number = %q, want today's prefix", invoice.InvoiceNumber)
	}
	if got := stockOf(t, db, med.ID); got != 98 {
		t.Errorf("stock = %d, want 98 (exactly one decrement despite retry)", got)
	}
}

func TestCreateInvoiceGivesUpAfterBoundedRetries(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	taken := models.Invoice{
		InvoiceNumber: "INV-COLLIDE-001",
		PharmacistID:  ph.ID,
		PaymentMethod: models.PaymentCash,
		InvoiceDate:   time.Now(),
	}
	if err := db.Create(&taken).Error; err != nil {
		t.Fatalf("seed colliding invoice: %v", err)
	}

	svc := NewService(db, Config{NumberRetries: 2})
	calls := 0
	svc.nextNumber = func(tx *gorm.DB, date time.Time) (string, error) {
		calls++
		return "INV-COLLIDE-001", nil
	}

	if _, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 2)); !errors.Is(err, ErrNumberExhausted) {
		t.Fatalf("err = %v, want ErrNumberExhausted", err)
	}
	if calls != 2 {
		t.Errorf("number generator called %d times, want 2", calls)
	}
	if got := stockOf(t, db, med.ID); got != 100 {
		t.Errorf("stock = %d, want 100 (failed sale leaves no trace)", got)
	}
	if got := countRows(t, db, &models.Invoice{}); got != 1 {
		t.Errorf("invoice rows = %d, want only the seeded one", got)
	}
}

// Two sales of 5 against a stock of 10 must leave 0, not 5: the decrement is
// a server-side relative update, so neither writer can overwrite the other.
func TestConcurrentSalesNoLostUpdate(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 10, "2.50")

	svc := NewService(db, Config{})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 5))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("sale %d: %v", i, err)
		}
	}
	if got := stockOf(t, db, med.ID); got != 0 {
		t.Errorf("stock = %d, want 0 (lost update)", got)
	}
}

func TestConcurrentSalesUniqueNumbers(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	const n = 8
	var wg sync.WaitGroup
	numbers := make([]string, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			invoice, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 1))
			if err != nil {
				errs[i] = err
				return
			}
			numbers[i] = invoice.InvoiceNumber
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("sale %d: %v", i, errs[i])
		}
		if seen[numbers[i]] {
			t.Fatalf("duplicate invoice number %q", numbers[i])
		}
		seen[numbers[i]] = true
	}
	if got := stockOf(t, db, med.ID); got != 100-n {
		t.Errorf("stock = %d, want %d", got, 100-n)
	}
}

func TestCreateInvoiceSurvivesDailySequenceRollover(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	// With 999 and 1000 already taken, regenerating from the scan would
	// produce 1000 on every attempt. Sales must keep going on fallback
	// numbers rather than burn all retries on the same collision.
	for _, suffix := range []string{"999", "1000"} {
		inv := models.Invoice{
			InvoiceNumber: todayPrefix() + suffix,
			PharmacistID:  ph.ID,
			PaymentMethod: models.PaymentCash,
			InvoiceDate:   time.Now(),
		}
		if err := db.Create(&inv).Error; err != nil {
			t.Fatalf("seed invoice: %v", err)
		}
	}

	svc := NewService(db, Config{})

	invoice, err := svc.CreateInvoice(context.Background(), saleFor(ph.ID, med, 2))
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if !strings.HasPrefix(invoice.InvoiceNumber, "INV-") {
		t.Errorf("invoice number %q should keep the INV- prefix", invoice.InvoiceNumber)
	}
	if strings.HasPrefix(invoice.InvoiceNumber, todayPrefix()) {
		t.Errorf("invoice number %q should have left the exhausted date-scoped form", invoice.InvoiceNumber)
	}
	if got := stockOf(t, db, med.ID); got != 98 {
		t.Errorf("stock = %d, want 98", got)
	}
}

func TestCreateInvoiceCancelledContext(t *testing.T) {
	db := newTestDB(t)
	ph := seedPharmacist(t, db)
	med := seedMedicine(t, db, "Paracetamol", 100, "2.50")

	svc := NewService(db, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateInvoice(ctx, saleFor(ph.ID, med, 1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if got := countRows(t, db, &models.Invoice{}); got != 0 {
		t.Errorf("invoices = %d, want 0", got)
	}
	if got := stockOf(t, db, med.ID); got != 100 {
		t.Errorf("stock = %d, want 100", got)
	}
}
