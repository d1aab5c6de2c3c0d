package handlers

import (
	"net/http"
	"strconv"

	"pharmacare/internal/database"
	"pharmacare/internal/models"

	"github.com/gin-gonic/gin"
)

// --- GET: List active companies ---
func GetCompanies(c *gin.Context) {
	var companies []models.Company

	if err := database.DB.Where("is_active = ?", true).Order("name").Find(&companies).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch companies"})
		return
	}

	c.JSON(http.StatusOK, companies)
}

// --- POST: Add a company ---
func AddCompany(c *gin.Context) {
	var newCompany models.Company

	if err := c.ShouldBindJSON(&newCompany); err != nil || newCompany.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	newCompany.IsActive = true
	if err := database.DB.Create(&newCompany).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create company"})
		return
	}

	c.JSON(http.StatusCreated, newCompany)
}

// --- PUT: Update a company ---
func UpdateCompany(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid company ID"})
		return
	}

	var company models.Company
	if err := database.DB.First(&company, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}

	var updateData map[string]interface{}
	if err := c.ShouldBindJSON(&updateData); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	delete(updateData, "id")

	if err := database.DB.Model(&company).Updates(updateData).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update company"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Company updated successfully", "company": company})
}

// --- DELETE: Soft-delete (deactivate) a company ---
func DeleteCompany(c *gin.Context) {
	id := c.Param("id")

	res := database.DB.Model(&models.Company{}).Where("id = ?", id).Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate company"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Company not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Company deactivated successfully"})
}
