package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"pharmacare/internal/config"
	"pharmacare/internal/database"
	"pharmacare/internal/models"
	"pharmacare/internal/sales"

	"github.com/gin-gonic/gin"
)

// SaleService is wired up in main once the DB connection exists.
var SaleService *sales.Service

// InvoiceResponse is the confirmation payload for a persisted sale.
type InvoiceResponse struct {
	Success        bool           `json:"success"`
	InvoiceID      uint           `json:"invoice_id"`
	InvoiceNumber  string         `json:"invoice_number"`
	PharmacistName string         `json:"pharmacist_name"`
	Invoice        models.Invoice `json:"invoice"`
}

// --- POST: Process a sale from the POS screen ---
// The pharmacist identity comes from the JWT, never from the request body.
func CreateSale(c *gin.Context) {
	var input sales.SaleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body"})
		return
	}

	input.PharmacistID = c.MustGet("userID").(uint)

	invoice, err := SaleService.CreateInvoice(c.Request.Context(), input)
	if err != nil {
		switch {
		case errors.Is(err, sales.ErrEmptyItems),
			errors.Is(err, sales.ErrNegativeAmount),
			errors.Is(err, sales.ErrAmountMismatch),
			errors.Is(err, sales.ErrMedicineUnavailable):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": err.Error()})
		case errors.Is(err, sales.ErrInsufficientStock):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Insufficient stock for one or more items"})
		default:
			// Root cause goes to the server log; the POS screen only learns
			// that nothing happened and the sale can be retried as a whole.
			config.LogError(config.GetLogger(), "handlers", "CreateSale", input.PharmacistID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Sale failed, nothing was recorded"})
		}
		return
	}

	c.JSON(http.StatusCreated, InvoiceResponse{
		Success:        true,
		InvoiceID:      invoice.ID,
		InvoiceNumber:  invoice.InvoiceNumber,
		PharmacistName: invoice.Pharmacist.FullName,
		Invoice:        *invoice,
	})
}

// --- GET: The calling pharmacist's own sales history ---
func GetMySales(c *gin.Context) {
	userID := c.MustGet("userID").(uint)

	q := database.DB.Preload("Items").Where("pharmacist_id = ?", userID)

	if startStr := c.Query("start_date"); startStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return
		}
		q = q.Where("invoice_date >= ?", start)
	}
	if endStr := c.Query("end_date"); endStr != "" {
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return
		}
		q = q.Where("invoice_date < ?", end.AddDate(0, 0, 1))
	}

	var invoices []models.Invoice
	if err := q.Order("created_at DESC").Limit(200).Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch sales"})
		return
	}

	c.JSON(http.StatusOK, invoices)
}

// --- GET: One invoice with items ---
// Pharmacists can only see their own invoices; admins see all.
func GetInvoice(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoice ID"})
		return
	}

	var invoice models.Invoice
	if err := database.DB.Preload("Items.Medicine").Preload("Pharmacist").First(&invoice, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invoice not found"})
		return
	}

	role := c.MustGet("role").(string)
	userID := c.MustGet("userID").(uint)
	if role != models.RoleAdmin && invoice.PharmacistID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "You do not have permission to access this resource"})
		return
	}

	c.JSON(http.StatusOK, invoice)
}
