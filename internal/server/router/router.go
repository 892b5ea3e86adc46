package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/server/handlers"
	"github.com/mamadbah2/jaggery/internal/service/access"
)

// Handlers groups the HTTP adapters mounted by New.
type Handlers struct {
	MasterData *handlers.MasterDataHandler
	Ledger     *handlers.LedgerHandler
	Reports    *handlers.ReportHandler
	// Metrics is served on /metrics when set.
	Metrics http.Handler
}

var (
	read      = requirePerm(access.PermRead)
	write     = requirePerm(access.PermWrite)
	remove    = requirePerm(access.PermDelete)
	financial = requirePerm(access.PermRead, access.PermFinancial)
	pay       = requirePerm(access.PermWrite, access.PermFinancial)
)

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics))
	}

	api := r.Group("/api/v1", requireRole(logger))

	mountEntity(api.Group("/farmers"), h.MasterData.Farmers())
	mountEntity(api.Group("/customers"), h.MasterData.Customers())
	mountEntity(api.Group("/products"), h.MasterData.Products())
	mountEntity(api.Group("/warehouses"), h.MasterData.Warehouses())

	lots := api.Group("/lots")
	lots.GET("", read, h.Ledger.ListLots)
	lots.POST("", write, h.Ledger.CreateLot)
	lots.GET("/:id", read, h.Ledger.GetLot)
	lots.DELETE("/:id", remove, h.Ledger.DeleteLot)
	lots.GET("/:id/balance", financial, h.Ledger.LotBalance)
	lots.GET("/:id/payments", financial, h.Ledger.PurchasePayments)
	lots.POST("/:id/payments", pay, h.Ledger.RecordPurchasePayment)
	api.GET("/lot-items/available", read, h.Ledger.AvailableLotItems)

	orders := api.Group("/orders")
	orders.GET("", read, h.Ledger.ListSalesOrders)
	orders.POST("", write, h.Ledger.CreateSalesOrder)
	orders.GET("/:id", read, h.Ledger.GetSalesOrder)
	orders.POST("/:id/pick-lines", write, h.Ledger.AddPickLine)
	orders.GET("/:id/value", financial, h.Ledger.OrderValue)
	orders.GET("/:id/balance", financial, h.Ledger.OrderBalance)
	orders.GET("/:id/payments", financial, h.Ledger.SalesPayments)
	orders.POST("/:id/payments", pay, h.Ledger.RecordSalesPayment)

	api.GET("/packing/queue", read, h.Ledger.PackingQueue)
	api.POST("/pick-lines/:id/pack", write, h.Ledger.ConfirmPacking)

	api.GET("/settings", read, h.Ledger.GetSettings)
	api.PATCH("/settings", write, h.Ledger.UpdateSettings)

	reports := api.Group("/reports")
	reports.GET("/farmer-dues", financial, h.Reports.FarmerDues)
	reports.GET("/customer-dues", financial, h.Reports.CustomerDues)
	reports.GET("/product-stock", read, h.Reports.ProductStock)
	reports.GET("/lot-inventory", read, h.Reports.LotInventory)
	reports.GET("/lots", financial, h.Reports.LotRollups)
	reports.GET("/orders", financial, h.Reports.OrderRollups)
	reports.GET("/dashboard", financial, h.Reports.Dashboard)
	reports.GET("/snapshots/latest", financial, h.Reports.LatestSnapshot)
	api.POST("/admin/snapshots", requirePerm(access.PermWrite, access.PermDelete, access.PermFinancial), h.Reports.TriggerSnapshot)

	logger.Info("router initialized")
	return r
}

func mountEntity(g *gin.RouterGroup, routes handlers.EntityRoutes) {
	g.GET("", read, routes.List)
	g.POST("", write, routes.Create)
	g.GET("/:id", read, routes.Get)
	g.PUT("/:id", write, routes.Update)
	g.DELETE("/:id", remove, routes.Delete)
}
