// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"vetpos/internal/domain/auth"
	"vetpos/internal/domain/billing"
	"vetpos/internal/domain/catalogs/owner"
	"vetpos/internal/domain/catalogs/product"
	"vetpos/internal/domain/clinical"
	"vetpos/internal/domain/documents/sale"
	"vetpos/internal/domain/registers/stock"
	"vetpos/internal/infrastructure/http/v1/handlers"
	"vetpos/internal/infrastructure/http/v1/middleware"
	"vetpos/internal/infrastructure/storage/postgres"
	"vetpos/internal/infrastructure/storage/postgres/auth_repo"
	"vetpos/internal/infrastructure/storage/postgres/billing_repo"
	"vetpos/internal/infrastructure/storage/postgres/catalog_repo"
	"vetpos/internal/infrastructure/storage/postgres/clinical_repo"
	"vetpos/internal/infrastructure/storage/postgres/document_repo"
	"vetpos/internal/infrastructure/storage/postgres/register_repo"
	"vetpos/pkg/logger"
	"vetpos/pkg/numerator"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection (for health checks)
	Pool *postgres.Pool

	// TxManager coordinates units of work across repositories
	TxManager *postgres.TxManager

	// Logger for request logging
	Logger *logger.Logger

	// JWTService validates tokens and issues them at login
	JWTService *auth.JWTService

	// Numerator for document number generation
	Numerator numerator.Generator

	// Audit records cancellation trails; nil disables the trail
	Audit billing.Auditor
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Shared repositories and services
	baseHandler := handlers.NewBaseHandler()

	userRepo := auth_repo.NewUserRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	ownerRepo := catalog_repo.NewOwnerRepo(cfg.TxManager)
	stockRepo := register_repo.NewStockRepo(cfg.TxManager)
	invoiceRepo := billing_repo.NewInvoiceRepo(cfg.TxManager)
	paymentRepo := billing_repo.NewPaymentRepo(cfg.TxManager)
	saleRepo := document_repo.NewSaleRepo(cfg.TxManager)
	clinicalRepo := clinical_repo.NewEventRepo(cfg.TxManager)

	authService := auth.NewService(userRepo, cfg.JWTService)
	productService := product.NewService(productRepo)
	ownerService := owner.NewService(ownerRepo)
	stockService := stock.NewService(stockRepo, productRepo, cfg.TxManager)
	billingService := billing.NewService(invoiceRepo, paymentRepo, ownerRepo,
		cfg.TxManager, cfg.Numerator, cfg.Audit)
	saleService := sale.NewService(saleRepo, productService, ownerRepo,
		stockService, billingService, cfg.TxManager, cfg.Numerator, cfg.Audit)
	clinicalService := clinical.NewService(clinicalRepo, productService,
		stockService, billingService, cfg.TxManager)

	// API v1
	v1 := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(baseHandler, authService)
		v1.POST("/auth/login", authHandler.Login)

		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTService))

		protected.GET("/auth/me", authHandler.Me)
		protected.POST("/auth/users", middleware.RequireRole(auth.RoleAdmin), authHandler.Register)

		registerCatalogRoutes(protected, baseHandler, productService, ownerService)
		registerInventoryRoutes(protected, baseHandler, stockService, productService)
		registerSaleRoutes(protected, baseHandler, saleService)
		registerBillingRoutes(protected, baseHandler, billingService, invoiceRepo)
		registerClinicalRoutes(protected, baseHandler, clinicalService)
	}

	return router
}

func registerCatalogRoutes(
	rg *gin.RouterGroup,
	base *handlers.BaseHandler,
	products *product.Service,
	owners *owner.Service,
) {
	catalogs := rg.Group("/catalog")

	productHandler := handlers.NewProductHandler(base, products)
	pg := catalogs.Group("/products")
	pg.GET("", productHandler.List)
	pg.POST("", productHandler.Create)
	pg.GET("/:id", productHandler.Get)
	pg.PUT("/:id", productHandler.Update)
	pg.POST("/:id/deactivate", productHandler.Deactivate)

	ownerHandler := handlers.NewOwnerHandler(base, owners)
	og := catalogs.Group("/owners")
	og.GET("", ownerHandler.List)
	og.POST("", ownerHandler.Create)
	og.GET("/:id", ownerHandler.Get)
	og.PUT("/:id", ownerHandler.Update)
	og.POST("/:id/credit", middleware.RequireRole(auth.RoleAdmin, auth.RoleVet), ownerHandler.AddCredit)
}

func registerInventoryRoutes(
	rg *gin.RouterGroup,
	base *handlers.BaseHandler,
	stockService *stock.Service,
	products *product.Service,
) {
	stockHandler := handlers.NewStockHandler(base, stockService, products)

	inventory := rg.Group("/inventory")
	inventory.GET("", stockHandler.ListLevels)
	inventory.POST("/initialize", stockHandler.Initialize)
	inventory.POST("/consume", middleware.RequireRole(auth.RoleAdmin, auth.RoleVet), stockHandler.Consume)
	inventory.POST("/adjust", middleware.RequireRole(auth.RoleAdmin, auth.RoleVet), stockHandler.Adjust)
	inventory.GET("/levels", stockHandler.ListLevels)
	inventory.GET("/levels/:productId", stockHandler.GetLevel)
	inventory.GET("/low-stock", stockHandler.LowStock)
	inventory.GET("/movements", stockHandler.Movements)
}

func registerSaleRoutes(
	rg *gin.RouterGroup,
	base *handlers.BaseHandler,
	saleService *sale.Service,
) {
	saleHandler := handlers.NewSaleHandler(base, saleService)

	sales := rg.Group("/sales")
	sales.GET("", saleHandler.List)
	sales.POST("", saleHandler.Create)
	sales.GET("/summary", saleHandler.Summary)
	sales.GET("/:id", saleHandler.Get)
	sales.PATCH("/:id/cancel", middleware.RequireRole(auth.RoleAdmin, auth.RoleVet), saleHandler.Cancel)
}

func registerBillingRoutes(
	rg *gin.RouterGroup,
	base *handlers.BaseHandler,
	billingService *billing.Service,
	invoices billing.InvoiceRepository,
) {
	billingHandler := handlers.NewBillingHandler(base, billingService, invoices)

	invoiceGroup := rg.Group("/invoices")
	invoiceGroup.GET("", billingHandler.ListInvoices)
	invoiceGroup.GET("/:id", billingHandler.GetInvoice)
	invoiceGroup.GET("/:id/payments", billingHandler.ListPayments)
	invoiceGroup.PATCH("/:id/cancel", middleware.RequireRole(auth.RoleAdmin, auth.RoleVet), billingHandler.CancelInvoice)

	rg.POST("/payments", billingHandler.CreatePayment)
	rg.PATCH("/payments/:id/cancel", middleware.RequireRole(auth.RoleAdmin, auth.RoleVet), billingHandler.CancelPayment)
}

func registerClinicalRoutes(
	rg *gin.RouterGroup,
	base *handlers.BaseHandler,
	clinicalService *clinical.Service,
) {
	clinicalHandler := handlers.NewClinicalHandler(base, clinicalService)

	clinicalGroup := rg.Group("/clinical")
	clinicalGroup.POST("/consume", clinicalHandler.Consume)
	clinicalGroup.GET("/events", clinicalHandler.List)
	clinicalGroup.GET("/events/:id", clinicalHandler.Get)
}
