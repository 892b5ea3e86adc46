package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/service/ledger"
)

// LedgerHandler serves lots, sales orders, packing, payments and settings.
type LedgerHandler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

// NewLedgerHandler constructs the ledger HTTP adapter.
func NewLedgerHandler(svc *ledger.Service, logger *zap.Logger) *LedgerHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerHandler{svc: svc, logger: logger}
}

type createLotRequest struct {
	LotNumber    string                `json:"lot_number"`
	FarmerID     string                `json:"farmer_id"`
	PurchaseDate Date                  `json:"purchase_date"`
	Items        []ledger.LotItemInput `json:"items"`
}

type createOrderRequest struct {
	CustomerID string `json:"customer_id"`
	OrderDate  Date   `json:"order_date"`
	Notes      string `json:"notes"`
}

type addPickLineRequest struct {
	LotItemID      string          `json:"lot_item_id"`
	CustomerMark   string          `json:"customer_mark"`
	PlannedBags    int             `json:"planned_bags"`
	PlannedLooseKg decimal.Decimal `json:"planned_loose_kg"`
	SaleRatePerKg  decimal.Decimal `json:"sale_rate_per_kg"`
	PackagingType  string          `json:"packaging_type"`
}

type confirmPackingRequest struct {
	ActualBags    int             `json:"actual_bags"`
	ActualLooseKg decimal.Decimal `json:"actual_loose_kg"`
}

type paymentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentDate Date            `json:"payment_date"`
	Method      string          `json:"method"`
	Reference   string          `json:"reference"`
}

func (r paymentRequest) input(parentID string) ledger.RecordPaymentInput {
	return ledger.RecordPaymentInput{
		ParentID:    parentID,
		Amount:      r.Amount,
		PaymentDate: r.PaymentDate.Time,
		Method:      r.Method,
		Reference:   r.Reference,
	}
}

// CreateLot records a purchase lot with its items.
func (h *LedgerHandler) CreateLot(c *gin.Context) {
	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Debug("invalid lot payload", zap.Error(err))
		badRequest(c, "invalid request body")
		return
	}
	lot, err := h.svc.CreateLot(c.Request.Context(), ledger.CreateLotInput{
		LotNumber:    req.LotNumber,
		FarmerID:     req.FarmerID,
		PurchaseDate: req.PurchaseDate.Time,
		Items:        req.Items,
	})
	if err != nil {
		writeError(c, h.logger, "create lot", err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

func (h *LedgerHandler) ListLots(c *gin.Context) {
	lots, err := h.svc.ListLots(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "list lots", err)
		return
	}
	c.JSON(http.StatusOK, lots)
}

func (h *LedgerHandler) GetLot(c *gin.Context) {
	lot, err := h.svc.GetLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "get lot", err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

func (h *LedgerHandler) DeleteLot(c *gin.Context) {
	if err := h.svc.DeleteLot(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, "delete lot", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// LotBalance reports what is still owed to the farmer for one lot.
func (h *LedgerHandler) LotBalance(c *gin.Context) {
	balance, err := h.svc.GetLotBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "lot balance", err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

// AvailableLotItems lists lot items that still hold stock.
func (h *LedgerHandler) AvailableLotItems(c *gin.Context) {
	items, err := h.svc.AvailableLotItems(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "available lot items", err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *LedgerHandler) RecordPurchasePayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	payment, err := h.svc.RecordPurchasePayment(c.Request.Context(), req.input(c.Param("id")))
	if err != nil {
		writeError(c, h.logger, "record purchase payment", err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *LedgerHandler) PurchasePayments(c *gin.Context) {
	payments, err := h.svc.PurchasePayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "list purchase payments", err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

func (h *LedgerHandler) CreateSalesOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	order, err := h.svc.CreateSalesOrder(c.Request.Context(), ledger.CreateSalesOrderInput{
		CustomerID: req.CustomerID,
		OrderDate:  req.OrderDate.Time,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(c, h.logger, "create sales order", err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *LedgerHandler) ListSalesOrders(c *gin.Context) {
	orders, err := h.svc.ListSalesOrders(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "list sales orders", err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

func (h *LedgerHandler) GetSalesOrder(c *gin.Context) {
	order, err := h.svc.GetSalesOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "get sales order", err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// AddPickLine reserves lot item stock for the order in the path.
func (h *LedgerHandler) AddPickLine(c *gin.Context) {
	var req addPickLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	line, err := h.svc.AddPickLine(c.Request.Context(), ledger.AddPickLineInput{
		OrderID:        c.Param("id"),
		LotItemID:      req.LotItemID,
		CustomerMark:   req.CustomerMark,
		PlannedBags:    req.PlannedBags,
		PlannedLooseKg: req.PlannedLooseKg,
		SaleRatePerKg:  req.SaleRatePerKg,
		PackagingType:  req.PackagingType,
	})
	if err != nil {
		writeError(c, h.logger, "add pick line", err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

func (h *LedgerHandler) OrderValue(c *gin.Context) {
	value, err := h.svc.GetOrderValue(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "order value", err)
		return
	}
	c.JSON(http.StatusOK, value)
}

// OrderBalance reports what the customer still owes. The basis query
// parameter picks the valuation, realized when absent.
func (h *LedgerHandler) OrderBalance(c *gin.Context) {
	basis, err := parseBasis(c.Query("basis"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	balance, err := h.svc.GetOrderBalance(c.Request.Context(), c.Param("id"), basis)
	if err != nil {
		writeError(c, h.logger, "order balance", err)
		return
	}
	c.JSON(http.StatusOK, balance)
}

func (h *LedgerHandler) RecordSalesPayment(c *gin.Context) {
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	payment, err := h.svc.RecordSalesPayment(c.Request.Context(), req.input(c.Param("id")))
	if err != nil {
		writeError(c, h.logger, "record sales payment", err)
		return
	}
	c.JSON(http.StatusCreated, payment)
}

func (h *LedgerHandler) SalesPayments(c *gin.Context) {
	payments, err := h.svc.SalesPayments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, "list sales payments", err)
		return
	}
	c.JSON(http.StatusOK, payments)
}

// PackingQueue lists every pick line waiting to be packed.
func (h *LedgerHandler) PackingQueue(c *gin.Context) {
	lines, err := h.svc.PackingQueue(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "packing queue", err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

// ConfirmPacking records the weighed quantities of the pick line in the path.
func (h *LedgerHandler) ConfirmPacking(c *gin.Context) {
	var req confirmPackingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	result, err := h.svc.ConfirmPacking(c.Request.Context(), ledger.ConfirmPackingInput{
		PickLineID:    c.Param("id"),
		ActualBags:    req.ActualBags,
		ActualLooseKg: req.ActualLooseKg,
	})
	if err != nil {
		writeError(c, h.logger, "confirm packing", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *LedgerHandler) GetSettings(c *gin.Context) {
	settings, err := h.svc.Settings(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "get settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (h *LedgerHandler) UpdateSettings(c *gin.Context) {
	var patch models.SettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	settings, err := h.svc.UpdateSettings(c.Request.Context(), patch)
	if err != nil {
		writeError(c, h.logger, "update settings", err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
