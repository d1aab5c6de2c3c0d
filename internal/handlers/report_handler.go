package handlers

import (
	"net/http"
	"time"

	"pharmacare/internal/database"
	"pharmacare/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// ReportData is the admin dashboard payload
type ReportData struct {
	Summary        database.SalesSummary         `json:"summary"`
	TopSelling     []database.TopSellingRow      `json:"top_selling"`
	ByPharmacist   []database.PharmacistSalesRow `json:"by_pharmacist"`
	RecentInvoices []models.Invoice              `json:"recent_invoices"`
}

// parseReportRange reads start_date/end_date query params (YYYY-MM-DD),
// defaulting to the last 30 days.
func parseReportRange(c *gin.Context) (time.Time, time.Time, bool) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if s := c.Query("start_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
			return start, end, false
		}
		start = parsed
	}
	if s := c.Query("end_date"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_date must be YYYY-MM-DD"})
			return start, end, false
		}
		end = parsed.AddDate(0, 0, 1)
	}

	return start, end, true
}

// --- GET: /api/reports (admin, cross-pharmacist) ---
func GetSalesReport(c *gin.Context) {
	start, end, ok := parseReportRange(c)
	if !ok {
		return
	}

	var data ReportData

	summary, err := database.GetSalesSummary(database.DB, start, end, 0)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to calculate revenue"})
		return
	}
	data.Summary = *summary

	data.TopSelling, err = database.GetTopSellingMedicines(database.DB, start, end, 5)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch top selling medicines"})
		return
	}

	data.ByPharmacist, err = database.GetPharmacistSales(database.DB, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch pharmacist sales"})
		return
	}

	err = database.DB.Preload("Pharmacist").Order("created_at DESC").Limit(10).Find(&data.RecentInvoices).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch recent invoices"})
		return
	}

	c.JSON(http.StatusOK, data)
}

// ValuationItem is a single medicine row in the valuation report
type ValuationItem struct {
	Name        string          `json:"name"`
	Quantity    int             `json:"quantity"`
	BuyingPrice decimal.Decimal `json:"buying_price"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

// CompanyGroup is one company's section of the valuation report
type CompanyGroup struct {
	CompanyName string          `json:"company_name"`
	Items       []ValuationItem `json:"items"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ValuationResponse is the final stock valuation payload
type ValuationResponse struct {
	Companies  []CompanyGroup  `json:"companies"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// --- GET: /api/reports/valuation ---
// GetStockValuation prices all on-hand inventory at buying price, grouped
// by company.
func GetStockValuation(c *gin.Context) {
	var medicines []models.Medicine

	if err := database.DB.Preload("Company").Where("is_active = ?", true).Find(&medicines).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch inventory"})
		return
	}

	grandTotal := decimal.Zero
	groupedMap := make(map[string]*CompanyGroup)

	for _, m := range medicines {
		companyName := m.Company.Name
		if companyName == "" {
			companyName = "Unassigned"
		}

		if _, exists := groupedMap[companyName]; !exists {
			groupedMap[companyName] = &CompanyGroup{
				CompanyName: companyName,
				Items:       []ValuationItem{},
				Subtotal:    decimal.Zero,
			}
		}

		itemTotal := m.BuyingPrice.Mul(decimal.NewFromInt(int64(m.QuantityInStock)))

		groupedMap[companyName].Items = append(groupedMap[companyName].Items, ValuationItem{
			Name:        m.Name,
			Quantity:    m.QuantityInStock,
			BuyingPrice: m.BuyingPrice,
			TotalCost:   itemTotal,
		})

		groupedMap[companyName].Subtotal = groupedMap[companyName].Subtotal.Add(itemTotal)
		grandTotal = grandTotal.Add(itemTotal)
	}

	var response ValuationResponse
	response.GrandTotal = grandTotal
	for _, group := range groupedMap {
		response.Companies = append(response.Companies, *group)
	}

	c.JSON(http.StatusOK, response)
}
