package main

import (
	"log"
	"time"

	"pharmacare/internal/config"
	"pharmacare/internal/database"
	"pharmacare/internal/handlers"
	"pharmacare/internal/middleware"
	"pharmacare/internal/models"
	"pharmacare/internal/sales"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found")
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	database.Connect(cfg.DatabaseDSN)

	handlers.SaleService = sales.NewService(database.DB, sales.Config{
		AllowOversell: cfg.AllowOversell,
	})

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"status": "online"}) })
	r.POST("/login", handlers.Login)
	r.Static("/uploads", "./uploads")

	// Only opens if we explicitly allow it in .env - used to bootstrap the
	// first admin account, then switched off.
	if cfg.AllowRegistration {
		r.POST("/register", handlers.Register)
		log.Println("WARNING: Registration route is OPEN. Disable this in production!")
	}

	// --- PROTECTED ROUTES ---
	api := r.Group("/api")
	api.Use(middleware.AuthMiddleware())
	{
		// PHARMACIST & ADMIN
		api.GET("/medicines", handlers.GetMedicines)
		api.GET("/medicines/:id", handlers.GetMedicine)
		api.POST("/sales", handlers.CreateSale)
		api.GET("/sales", handlers.GetMySales)
		api.GET("/sales/:id", handlers.GetInvoice)

		// ADMIN ONLY
		admin := api.Group("/")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.POST("/ask", handlers.AskAI)
			admin.POST("/upload", handlers.UploadImage)

			admin.POST("/companies", handlers.AddCompany)
			admin.GET("/companies", handlers.GetCompanies)
			admin.PUT("/companies/:id", handlers.UpdateCompany)
			admin.DELETE("/companies/:id", handlers.DeleteCompany)

			admin.POST("/medicines", handlers.AddMedicine)
			admin.PUT("/medicines/:id", handlers.UpdateMedicine)
			admin.DELETE("/medicines/:id", handlers.DeleteMedicine)
			admin.GET("/medicines/low-stock", handlers.GetLowStockMedicines)
			admin.GET("/medicines/expired", handlers.GetExpiredMedicines)
			admin.POST("/medicines/:id/adjust", handlers.AdjustStock)
			admin.GET("/medicines/:id/movements", handlers.GetStockMovements)

			admin.POST("/pharmacists", handlers.AddPharmacist)
			admin.GET("/pharmacists", handlers.GetPharmacists)
			admin.DELETE("/pharmacists/:id", handlers.DeactivatePharmacist)

			admin.GET("/reports", handlers.GetSalesReport)
			admin.GET("/reports/valuation", handlers.GetStockValuation)
		}
	}

	log.Println("Server starting on " + cfg.BaseURL)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
