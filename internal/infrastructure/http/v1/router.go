// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"clinika/internal/domain/audit"
	"clinika/internal/domain/catalogs/drug"
	"clinika/internal/domain/documents/purchase"
	"clinika/internal/domain/inventory/engine"
	"clinika/internal/domain/inventory/ledger"
	"clinika/internal/domain/inventory/projection"
	"clinika/internal/domain/records/prescription"
	"clinika/internal/infrastructure/http/v1/handlers"
	"clinika/internal/infrastructure/http/v1/middleware"
	"clinika/internal/infrastructure/storage/postgres"
	"clinika/internal/infrastructure/storage/postgres/catalog_repo"
	"clinika/internal/infrastructure/storage/postgres/document_repo"
	"clinika/internal/infrastructure/storage/postgres/inventory_repo"
	"clinika/internal/infrastructure/storage/postgres/record_repo"
	"clinika/pkg/logger"
	"clinika/pkg/lotcode"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
	Logger    *logger.Logger
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

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	// Repositories
	drugRepo := catalog_repo.NewDrugRepo(cfg.TxManager)
	batchRepo := inventory_repo.NewBatchRepo(cfg.TxManager)
	movementRepo := inventory_repo.NewMovementRepo(cfg.TxManager)
	projectionRepo := inventory_repo.NewProjectionRepo(cfg.TxManager)
	purchaseRepo := document_repo.NewPurchaseRepo(cfg.TxManager)
	prescriptionRepo := record_repo.NewPrescriptionRepo(cfg.TxManager)

	// Audit is best-effort; fall back to a no-op recorder when zstd setup fails.
	var auditRec audit.Recorder
	if store, err := postgres.NewAuditStore(cfg.TxManager); err == nil {
		auditRec = store
	} else {
		auditRec = audit.Nop{}
	}

	// Services
	lots := lotcode.New()
	ledgerService := ledger.NewService(movementRepo)
	stockEngine := engine.New(batchRepo, ledgerService, lots, cfg.TxManager)
	projectionService := projection.NewService(projectionRepo)
	drugService := drug.NewService(drugRepo, cfg.TxManager, auditRec)
	purchaseService := purchase.NewService(purchaseRepo, stockEngine, lots, cfg.TxManager, auditRec)
	prescriptionService := prescription.NewService(prescriptionRepo, stockEngine, projectionService, cfg.TxManager, auditRec)

	// Handlers
	base := handlers.NewBaseHandler()
	drugHandler := handlers.NewDrugHandler(base, drugService)
	stockHandler := handlers.NewStockHandler(base, stockEngine, projectionService, ledgerService, batchRepo)
	purchaseHandler := handlers.NewPurchaseHandler(base, purchaseService)
	prescriptionHandler := handlers.NewPrescriptionHandler(base, prescriptionService)

	api := router.Group("/api/v1")
	{
		drugHandler.RegisterRoutes(api.Group("/catalog/drugs"))
		stockHandler.RegisterRoutes(api.Group("/stock"))
		purchaseHandler.RegisterRoutes(api.Group("/documents/purchase-orders"))
		prescriptionHandler.RegisterRoutes(api.Group("/records/prescription-lines"))
	}

	return router
}
