package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/jaggery/internal/domain/models"
	"github.com/mamadbah2/jaggery/internal/service/ledger"
)

// MasterDataHandler serves farmers, customers, products and warehouses.
type MasterDataHandler struct {
	svc    *ledger.Service
	logger *zap.Logger
}

// NewMasterDataHandler constructs the master data HTTP adapter.
func NewMasterDataHandler(svc *ledger.Service, logger *zap.Logger) *MasterDataHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MasterDataHandler{svc: svc, logger: logger}
}

// EntityRoutes is the CRUD surface of one master data kind.
type EntityRoutes struct {
	List   gin.HandlerFunc
	Get    gin.HandlerFunc
	Create gin.HandlerFunc
	Update gin.HandlerFunc
	Delete gin.HandlerFunc
}

func crud[T any](
	logger *zap.Logger,
	kind string,
	list func(context.Context) ([]T, error),
	get func(context.Context, string) (T, error),
	save func(context.Context, T) (T, error),
	del func(context.Context, string) error,
	setID func(*T, string),
) EntityRoutes {
	return EntityRoutes{
		List: func(c *gin.Context) {
			items, err := list(c.Request.Context())
			if err != nil {
				writeError(c, logger, "list "+kind, err)
				return
			}
			c.JSON(http.StatusOK, items)
		},
		Get: func(c *gin.Context) {
			item, err := get(c.Request.Context(), c.Param("id"))
			if err != nil {
				writeError(c, logger, "get "+kind, err)
				return
			}
			c.JSON(http.StatusOK, item)
		},
		Create: func(c *gin.Context) {
			var in T
			if err := c.ShouldBindJSON(&in); err != nil {
				badRequest(c, "invalid request body")
				return
			}
			setID(&in, "")
			saved, err := save(c.Request.Context(), in)
			if err != nil {
				writeError(c, logger, "create "+kind, err)
				return
			}
			c.JSON(http.StatusCreated, saved)
		},
		Update: func(c *gin.Context) {
			var in T
			if err := c.ShouldBindJSON(&in); err != nil {
				badRequest(c, "invalid request body")
				return
			}
			setID(&in, c.Param("id"))
			saved, err := save(c.Request.Context(), in)
			if err != nil {
				writeError(c, logger, "update "+kind, err)
				return
			}
			c.JSON(http.StatusOK, saved)
		},
		Delete: func(c *gin.Context) {
			if err := del(c.Request.Context(), c.Param("id")); err != nil {
				writeError(c, logger, "delete "+kind, err)
				return
			}
			c.Status(http.StatusNoContent)
		},
	}
}

// Farmers returns the farmer routes.
func (h *MasterDataHandler) Farmers() EntityRoutes {
	return crud(h.logger, "farmer", h.svc.ListFarmers, h.svc.GetFarmer, h.svc.SaveFarmer, h.svc.DeleteFarmer,
		func(f *models.Farmer, id string) { f.ID = id })
}

// Customers returns the customer routes.
func (h *MasterDataHandler) Customers() EntityRoutes {
	return crud(h.logger, "customer", h.svc.ListCustomers, h.svc.GetCustomer, h.svc.SaveCustomer, h.svc.DeleteCustomer,
		func(cu *models.Customer, id string) { cu.ID = id })
}

// Products returns the product routes.
func (h *MasterDataHandler) Products() EntityRoutes {
	return crud(h.logger, "product", h.svc.ListProducts, h.svc.GetProduct, h.svc.SaveProduct, h.svc.DeleteProduct,
		func(p *models.Product, id string) { p.ID = id })
}

// Warehouses returns the warehouse routes.
func (h *MasterDataHandler) Warehouses() EntityRoutes {
	return crud(h.logger, "warehouse", h.svc.ListWarehouses, h.svc.GetWarehouse, h.svc.SaveWarehouse, h.svc.DeleteWarehouse,
		func(w *models.Warehouse, id string) { w.ID = id })
}
