package router

import (
	"github.com/erp/lotledger/internal/infrastructure/logger"
	"github.com/erp/lotledger/internal/infrastructure/telemetry"
	"github.com/erp/lotledger/internal/interfaces/http/handler"
	"github.com/erp/lotledger/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers groups the HTTP handlers mounted by NewEngine
type Handlers struct {
	Operations *handler.OperationsHandler
	Lots       *handler.LotHandler
	Catalog    *handler.CatalogHandler
	Import     *handler.ImportHandler
	System     *handler.SystemHandler
}

// EngineConfig configures the middleware chain
type EngineConfig struct {
	Logger      *zap.Logger
	Meters      *telemetry.MeterProvider
	Tracing     middleware.TracingConfig
	MaxBodySize int64
	APIVersion  string
}

// NewEngine builds the gin engine with the middleware chain and every
// ledger route. Health lives outside the versioned API group.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	engine.Use(
		logger.GinRecovery(log),
		middleware.Tracing(cfg.Tracing),
		logger.GinLogger(log),
		middleware.SpanAttributes(),
		middleware.HTTPMetrics(cfg.Meters, log),
		middleware.BodyLimit(cfg.MaxBodySize),
	)

	if h.System != nil {
		engine.GET("/health", h.System.Health)
	}

	opts := []RouterOption{}
	if cfg.APIVersion != "" {
		opts = append(opts, WithAPIVersion(cfg.APIVersion))
	}
	r := NewRouter(engine, opts...)
	for _, g := range Groups(h) {
		r.Register(g)
	}
	r.Setup()
	return engine
}

// Groups returns the versioned route groups for the handlers that are set
func Groups(h Handlers) []*DomainGroup {
	groups := make([]*DomainGroup, 0, 4)

	if h.Operations != nil {
		ops := NewDomainGroup("operations", "")
		ops.POST("/receipts", h.Operations.Receive).
			POST("/opening-balances", h.Operations.RecordOpeningBalance).
			POST("/adjustments", h.Operations.Adjust).
			POST("/manufacturing-orders", h.Operations.ProcessManufacturingOrder).
			POST("/shipments", h.Operations.Ship)
		groups = append(groups, ops)
	}

	if h.Catalog != nil || h.Lots != nil {
		skus := NewDomainGroup("skus", "/skus")
		if h.Catalog != nil {
			skus.GET("", h.Catalog.ListSkus).
				POST("", h.Catalog.RegisterSku).
				GET("/:sku", h.Catalog.GetSku).
				DELETE("/:sku", h.Catalog.DeleteSku).
				POST("/:sku/variances", h.Catalog.AddVariance)
		}
		if h.Lots != nil {
			skus.GET("/:sku/totals", h.Lots.Totals).
				POST("/:sku/reconcile", h.Lots.Reconcile)
			lots := skus.Group("lots", "/:sku/lots")
			lots.GET("", h.Lots.ListLots).
				GET("/:lot", h.Lots.GetLot).
				GET("/:lot/events", h.Lots.ListEvents).
				GET("/:lot/verify", h.Lots.Verify)
		}
		groups = append(groups, skus)
	}

	if h.Catalog != nil {
		notes := NewDomainGroup("notes", "/notes")
		notes.POST("", h.Catalog.AppendNote).
			GET("/:subject", h.Catalog.ListNotes)
		groups = append(groups, notes)
	}

	if h.Import != nil {
		imports := NewDomainGroup("imports", "/imports")
		imports.POST("", h.Import.Import).
			GET("/:batch_id/runs", h.Import.ListRuns)
		groups = append(groups, imports)
	}

	return groups
}
