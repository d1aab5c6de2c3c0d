package handlers

import (
	"net/http"

	"pharmacare/internal/database"
	"pharmacare/internal/models"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type PharmacistRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
	FullName string `json:"full_name" binding:"required"`
}

// --- POST: Admin creates a pharmacist account ---
func AddPharmacist(c *gin.Context) {
	var input PharmacistRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	pharmacist := models.User{
		Username:     input.Username,
		PasswordHash: string(hashedPassword),
		FullName:     input.FullName,
		Role:         models.RolePharmacist,
		IsActive:     true,
	}

	if err := database.DB.Create(&pharmacist).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
		return
	}

	c.JSON(http.StatusCreated, pharmacist)
}

// --- GET: List pharmacist accounts ---
func GetPharmacists(c *gin.Context) {
	var pharmacists []models.User

	err := database.DB.Where("role = ?", models.RolePharmacist).Order("full_name").Find(&pharmacists).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pharmacists"})
		return
	}

	c.JSON(http.StatusOK, pharmacists)
}

// --- DELETE: Deactivate a pharmacist (blocks login, keeps invoice history) ---
func DeactivatePharmacist(c *gin.Context) {
	id := c.Param("id")

	res := database.DB.Model(&models.User{}).
		Where("id = ? AND role = ?", id, models.RolePharmacist).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate pharmacist"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Pharmacist not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Pharmacist deactivated successfully"})
}
