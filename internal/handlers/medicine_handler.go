package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"pharmacare/internal/database"
	"pharmacare/internal/models"
	"pharmacare/internal/sales"

	"github.com/gin-gonic/gin"
)

// --- GET: List active medicines, with optional name/generic search ---
func GetMedicines(c *gin.Context) {
	var medicines []models.Medicine

	q := database.DB.Preload("Company").Where("is_active = ?", true)
	if search := c.Query("q"); search != "" {
		like := "%" + search + "%"
		q = q.Where("name LIKE ? OR generic_name LIKE ?", like, like)
	}

	if err := q.Order("name").Find(&medicines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch medicines"})
		return
	}

	c.JSON(http.StatusOK, medicines)
}

// --- GET: Single medicine ---
func GetMedicine(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid medicine ID"})
		return
	}

	var medicine models.Medicine
	if err := database.DB.Preload("Company").Where("is_active = ?", true).First(&medicine, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Medicine not found"})
		return
	}

	c.JSON(http.StatusOK, medicine)
}

// --- GET: Medicines at or below their reorder threshold ---
func GetLowStockMedicines(c *gin.Context) {
	var medicines []models.Medicine

	err := database.DB.Preload("Company").
		Where("is_active = ? AND quantity_in_stock <= min_stock_level", true).
		Order("quantity_in_stock").
		Find(&medicines).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch low stock medicines"})
		return
	}

	c.JSON(http.StatusOK, medicines)
}

// --- GET: Medicines past their expiry date ---
func GetExpiredMedicines(c *gin.Context) {
	var medicines []models.Medicine

	err := database.DB.Preload("Company").
		Where("is_active = ? AND expiry_date IS NOT NULL AND expiry_date < ?", true, time.Now()).
		Order("expiry_date").
		Find(&medicines).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch expired medicines"})
		return
	}

	c.JSON(http.StatusOK, medicines)
}

// --- POST: Add a new medicine ---
func AddMedicine(c *gin.Context) {
	var newMedicine models.Medicine

	if err := c.ShouldBindJSON(&newMedicine); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if newMedicine.BuyingPrice.IsNegative() || newMedicine.SellingPrice.IsNegative() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Prices must not be negative"})
		return
	}
	if newMedicine.QuantityInStock < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Stock must not be negative"})
		return
	}

	newMedicine.IsActive = true
	if err := database.DB.Create(&newMedicine).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create medicine"})
		return
	}

	c.JSON(http.StatusCreated, newMedicine)
}

// --- PUT: Update medicine details ---
// Stock is deliberately NOT updatable here: quantity changes go through the
// adjustment endpoint so every change leaves a movement row.
func UpdateMedicine(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid medicine ID"})
		return
	}

	var medicine models.Medicine
	if err := database.DB.First(&medicine, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Medicine not found"})
		return
	}

	// We use a map so we only update what was sent (partial update)
	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	delete(updateData, "quantity_in_stock")
	delete(updateData, "id")

	if err := database.DB.Model(&medicine).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update medicine"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Medicine updated successfully", "medicine": medicine})
}

// --- DELETE: Soft-delete (deactivate) a medicine ---
// The row stays behind so past invoices keep resolving; read paths filter
// on is_active.
func DeleteMedicine(c *gin.Context) {
	id := c.Param("id")

	res := database.DB.Model(&models.Medicine{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate medicine"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Medicine not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Medicine deactivated successfully"})
}

// StockAdjustmentRequest is a manual stock correction, restock or return.
type StockAdjustmentRequest struct {
	Quantity      int                  `json:"quantity" binding:"required"`
	ReferenceType models.ReferenceType `json:"reference_type" binding:"required,oneof=purchase adjustment return"`
	Notes         string               `json:"notes"`
}

// --- POST: Adjust stock outside a sale ---
// Goes through the same ledger as sales so the movement log stays complete.
func AdjustStock(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid medicine ID"})
		return
	}

	var req StockAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	userID := c.MustGet("userID").(uint)

	// Purchases and returns are always inflows; only free-form adjustments
	// may move stock in either direction.
	var movementType models.MovementType
	switch req.ReferenceType {
	case models.ReferencePurchase, models.ReferenceReturn:
		if req.Quantity <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Quantity must be positive for purchase or return"})
			return
		}
		movementType = models.MovementIn
	default:
		movementType = models.MovementAdjustment
	}

	ledger := SaleService.Ledger()
	tx := database.DB.Begin()

	if err := ledger.ApplyDelta(tx, uint(id), req.Quantity); err != nil {
		tx.Rollback()
		switch {
		case errors.Is(err, sales.ErrMedicineUnavailable):
			c.JSON(http.StatusNotFound, gin.H{"error": "Medicine not found"})
		case errors.Is(err, sales.ErrInsufficientStock):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Adjustment would drive stock negative"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to adjust stock"})
		}
		return
	}

	// Adjustments keep their sign in the log so the direction of the
	// correction stays auditable.
	movement := models.StockMovement{
		MedicineID:    uint(id),
		MovementType:  movementType,
		Quantity:      req.Quantity,
		ReferenceType: req.ReferenceType,
		Notes:         req.Notes,
		CreatedBy:     userID,
	}
	if err := ledger.RecordMovement(tx, &movement); err != nil {
		tx.Rollback()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record movement"})
		return
	}

	if err := tx.Commit().Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to adjust stock"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Stock adjusted successfully"})
}

// --- GET: Movement history for one medicine ---
func GetStockMovements(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid medicine ID"})
		return
	}

	var movements []models.StockMovement
	if err := database.DB.Where("medicine_id = ?", id).Order("created_at DESC").Limit(100).Find(&movements).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch stock movements"})
		return
	}

	c.JSON(http.StatusOK, movements)
}

// --- UPLOAD: Medicine photo ---
func UploadImage(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}

	// e.g. "1693468800_paracetamol.jpg"
	filename := fmt.Sprintf("%d_%s", time.Now().Unix(), file.Filename)
	filepath := "./uploads/" + filename

	if err := c.SaveUploadedFile(file, filepath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save file"})
		return
	}

	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "File uploaded successfully",
		"url":     baseURL + "/uploads/" + filename,
	})
}
