package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/service/reporting"
)

// SnapshotRunner takes a reconciliation snapshot and delivers it.
type SnapshotRunner interface {
	RunOnce(ctx context.Context) (models.ReconciliationSnapshot, error)
}

// SnapshotArchive reads back archived snapshots.
type SnapshotArchive interface {
	LatestSnapshot(ctx context.Context) (models.ReconciliationSnapshot, error)
}

// ReportHandler serves the reconciliation reports.
type ReportHandler struct {
	svc     *reporting.Service
	runner  SnapshotRunner
	archive SnapshotArchive
	logger  *zap.Logger
}

// NewReportHandler constructs the report HTTP adapter. runner may be nil, in
// which case a triggered snapshot is built but not delivered anywhere.
// archive may be nil when the store keeps no snapshots.
func NewReportHandler(svc *reporting.Service, runner SnapshotRunner, archive SnapshotArchive, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{svc: svc, runner: runner, archive: archive, logger: logger}
}

func duesFilter(c *gin.Context) (reporting.DuesFilter, error) {
	filter := reporting.DuesFilter{
		FarmerID:   c.Query("farmer_id"),
		CustomerID: c.Query("customer_id"),
	}
	var err error
	if raw := c.Query("from"); raw != "" {
		if filter.From, err = parseDate(raw); err != nil {
			return filter, err
		}
	}
	if raw := c.Query("to"); raw != "" {
		if filter.To, err = parseDate(raw); err != nil {
			return filter, err
		}
	}
	filter.Basis, err = parseBasis(c.Query("basis"))
	return filter, err
}

// FarmerDues lists accounts payable grouped by farmer.
func (h *ReportHandler) FarmerDues(c *gin.Context) {
	filter, err := duesFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dues, err := h.svc.FarmerDues(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, "farmer dues", err)
		return
	}
	c.JSON(http.StatusOK, dues)
}

// CustomerDues lists accounts receivable grouped by customer.
func (h *ReportHandler) CustomerDues(c *gin.Context) {
	filter, err := duesFilter(c)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	dues, err := h.svc.CustomerDues(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.logger, "customer dues", err)
		return
	}
	c.JSON(http.StatusOK, dues)
}

func (h *ReportHandler) ProductStock(c *gin.Context) {
	rows, err := h.svc.ProductStock(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "product stock", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) LotInventory(c *gin.Context) {
	rows, err := h.svc.LotInventory(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "lot inventory", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) LotRollups(c *gin.Context) {
	rows, err := h.svc.LotRollups(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "lot rollups", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) OrderRollups(c *gin.Context) {
	basis, err := parseBasis(c.Query("basis"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	rows, err := h.svc.OrderRollups(c.Request.Context(), basis)
	if err != nil {
		writeError(c, h.logger, "order rollups", err)
		return
	}
	c.JSON(http.StatusOK, rows)
}

func (h *ReportHandler) Dashboard(c *gin.Context) {
	d, err := h.svc.Dashboard(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "dashboard", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// TriggerSnapshot runs the reconciliation export immediately. Delivery
// failures are reported with the snapshot that was built.
func (h *ReportHandler) TriggerSnapshot(c *gin.Context) {
	if h.runner == nil {
		snap, err := h.svc.Snapshot(c.Request.Context())
		if err != nil {
			writeError(c, h.logger, "snapshot", err)
			return
		}
		c.JSON(http.StatusOK, snap)
		return
	}

	snap, err := h.runner.RunOnce(c.Request.Context())
	if err != nil {
		if snap.ID == "" {
			writeError(c, h.logger, "snapshot", err)
			return
		}
		h.logger.Warn("snapshot delivery incomplete", zap.Error(err))
		c.JSON(http.StatusAccepted, gin.H{"snapshot": snap, "error": "snapshot built but not every destination accepted it"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// LatestSnapshot returns the most recently archived reconciliation snapshot.
func (h *ReportHandler) LatestSnapshot(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot archive configured"})
		return
	}
	snap, err := h.archive.LatestSnapshot(c.Request.Context())
	if err != nil {
		writeError(c, h.logger, "latest snapshot", err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
