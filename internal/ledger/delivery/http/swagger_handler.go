package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterSwaggerDocs registers Swagger documentation routes
// @Summary Swagger documentation
// @Description Swagger API documentation for Ledger Service
// @Tags Swagger
// @Success 200 {string} string "Swagger UI"
// @Router /swagger/ [get]
func RegisterSwaggerDocs(router *mux.Router, swaggerHandler http.Handler) {
	router.PathPrefix("/swagger/").Handler(swaggerHandler)
}

// ListStock godoc
// @Summary List stock records
// @Description Items of a partition with total and available stock. date is YYYY-MM-DD, "today" or "legacy".
// @Tags Stock
// @Produce json
// @Param date path string true "Partition date"
// @Param category query string false "Category filter"
// @Success 200 {object} object{success=bool,data=array}
// @Failure 400 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/stock [get]
func (h *LedgerHandler) ListStockDoc() {}

// ListAvailable godoc
// @Summary List available stock
// @Description What can still be sold, served from the read model
// @Tags Stock
// @Produce json
// @Param date path string true "Partition date"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/partitions/{date}/available [get]
func (h *LedgerHandler) ListAvailableDoc() {}

// CreateItem godoc
// @Summary Create item
// @Description Add an item to a partition. available_stock defaults to total_stock.
// @Tags Stock
// @Accept json
// @Produce json
// @Param date path string true "Partition date"
// @Param request body object{id=string,name=string,unit_type=string,price_per_unit=string,total_stock=string,available_stock=string,category=string} true "Item"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/items [post]
func (h *LedgerHandler) CreateItemDoc() {}

// GetItem godoc
// @Summary Get item
// @Tags Stock
// @Produce json
// @Param date path string true "Partition date"
// @Param item_id path string true "Item ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/items/{item_id} [get]
func (h *LedgerHandler) GetItemDoc() {}

// DeleteItem godoc
// @Summary Delete item
// @Description Removes the item and its read-model entry. Orders keep their lines.
// @Tags Stock
// @Produce json
// @Param date path string true "Partition date"
// @Param item_id path string true "Item ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/items/{item_id} [delete]
func (h *LedgerHandler) DeleteItemDoc() {}

// SetPrice godoc
// @Summary Set item price
// @Description Existing bills are not repriced until recalculation runs
// @Tags Stock
// @Accept json
// @Produce json
// @Param date path string true "Partition date"
// @Param item_id path string true "Item ID"
// @Param request body object{price_per_unit=string} true "Price"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/items/{item_id}/price [patch]
func (h *LedgerHandler) SetPriceDoc() {}

// CorrectStock godoc
// @Summary Correct stock
// @Description Set total stock and optionally move available stock by a signed delta
// @Tags Stock
// @Accept json
// @Produce json
// @Param date path string true "Partition date"
// @Param item_id path string true "Item ID"
// @Param request body object{total_stock=string,available_delta=string} true "Correction"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/items/{item_id}/stock [patch]
func (h *LedgerHandler) CorrectStockDoc() {}

// ListMovements godoc
// @Summary List stock movements
// @Tags Stock
// @Produce json
// @Param date path string true "Partition date"
// @Param item_id path string true "Item ID"
// @Success 200 {object} object{success=bool,data=array}
// @Router /api/partitions/{date}/items/{item_id}/movements [get]
func (h *LedgerHandler) ListMovementsDoc() {}

// ImportCatalog godoc
// @Summary Import catalog
// @Description Copy items from another partition. Items already present are skipped.
// @Tags Stock
// @Accept json
// @Produce json
// @Param date path string true "Target partition date"
// @Param request body object{from=string,stock=object} true "Source partition and optional stock overrides"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/import [post]
func (h *LedgerHandler) ImportCatalogDoc() {}

// PlaceOrder godoc
// @Summary Place order
// @Description Prices lines at current item prices and takes stock. Oversold stock clamps at zero.
// @Tags Orders
// @Accept json
// @Produce json
// @Param date path string true "Partition date"
// @Param request body object{customer_ref=string,line_items=array} true "Order"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/orders [post]
func (h *LedgerHandler) PlaceOrderDoc() {}

// ListOrders godoc
// @Summary List orders
// @Tags Orders
// @Produce json
// @Param date path string true "Partition date"
// @Param after query string false "Last order id of the previous page"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} object{success=bool,data=object{orders=array,next=string}}
// @Router /api/partitions/{date}/orders [get]
func (h *LedgerHandler) ListOrdersDoc() {}

// GetOrder godoc
// @Summary Get order
// @Tags Orders
// @Produce json
// @Param date path string true "Partition date"
// @Param order_id path string true "Order ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/orders/{order_id} [get]
func (h *LedgerHandler) GetOrderDoc() {}

// EditOrder godoc
// @Summary Replace order lines
// @Description Reconciles stock by the per-item quantity difference. Items missing from the partition are reported in inventory_failures.
// @Tags Orders
// @Accept json
// @Produce json
// @Param date path string true "Partition date"
// @Param order_id path string true "Order ID"
// @Param request body object{line_items=array} true "New lines"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/orders/{order_id}/items [put]
func (h *LedgerHandler) EditOrderDoc() {}

// UpdateStatus godoc
// @Summary Update order status
// @Tags Orders
// @Accept json
// @Produce json
// @Param date path string true "Partition date"
// @Param order_id path string true "Order ID"
// @Param request body object{status=string} true "Status"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/orders/{order_id}/status [patch]
func (h *LedgerHandler) UpdateStatusDoc() {}

// ListAdjustments godoc
// @Summary List bill adjustments
// @Tags Orders
// @Produce json
// @Param date path string true "Partition date"
// @Param order_id path string true "Order ID"
// @Success 200 {object} object{success=bool,data=array}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/partitions/{date}/orders/{order_id}/adjustments [get]
func (h *LedgerHandler) ListAdjustmentsDoc() {}

// Recalculate godoc
// @Summary Recalculate bills
// @Description Reprice every order of the partition at current item prices. Safe to re-run.
// @Tags Maintenance
// @Produce json
// @Param date path string true "Partition date"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 500 {object} object{success=bool,error=string,data=object}
// @Router /api/partitions/{date}/recalculate [post]
func (h *LedgerHandler) RecalculateDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *LedgerHandler) HealthCheckDoc() {}
