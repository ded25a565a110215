package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/metrics"
	"github.com/tair/produce-ledger/internal/ledger/partition"
	"github.com/tair/produce-ledger/internal/ledger/usecase/command"
	"github.com/tair/produce-ledger/internal/ledger/usecase/query"
	"github.com/tair/produce-ledger/pkg/logger"
)

// Commands groups the write-side handlers.
type Commands struct {
	PlaceOrder    *command.PlaceOrderHandler
	EditOrder     *command.EditOrderHandler
	Recalculate   *command.RecalculateBillsHandler
	CreateItem    *command.CreateItemHandler
	ImportCatalog *command.ImportCatalogHandler
	CorrectStock  *command.CorrectStockHandler
	SetPrice      *command.SetPriceHandler
	DeleteItem    *command.DeleteItemHandler
	UpdateStatus  *command.UpdateStatusHandler
}

// Queries groups the read-side handlers.
type Queries struct {
	GetItem         *query.GetItemHandler
	ListStock       *query.ListStockHandler
	ListAvailable   *query.ListAvailableHandler
	GetOrder        *query.GetOrderHandler
	ListOrders      *query.ListOrdersHandler
	ListAdjustments *query.ListAdjustmentsHandler
	ListMovements   *query.ListMovementsHandler
}

// NewCommands builds every command handler over the same dependencies.
func NewCommands(deps command.Dependencies) Commands {
	return Commands{
		PlaceOrder:    command.NewPlaceOrderHandler(deps),
		EditOrder:     command.NewEditOrderHandler(deps),
		Recalculate:   command.NewRecalculateBillsHandler(deps),
		CreateItem:    command.NewCreateItemHandler(deps),
		ImportCatalog: command.NewImportCatalogHandler(deps),
		CorrectStock:  command.NewCorrectStockHandler(deps),
		SetPrice:      command.NewSetPriceHandler(deps),
		DeleteItem:    command.NewDeleteItemHandler(deps),
		UpdateStatus:  command.NewUpdateStatusHandler(deps),
	}
}

// NewQueries builds every query handler.
func NewQueries(ledger domain.Ledger, cache domain.StockCache) Queries {
	return Queries{
		GetItem:         query.NewGetItemHandler(ledger),
		ListStock:       query.NewListStockHandler(ledger),
		ListAvailable:   query.NewListAvailableHandler(ledger, cache),
		GetOrder:        query.NewGetOrderHandler(ledger),
		ListOrders:      query.NewListOrdersHandler(ledger),
		ListAdjustments: query.NewListAdjustmentsHandler(ledger),
		ListMovements:   query.NewListMovementsHandler(ledger),
	}
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// LedgerHandler handles HTTP requests for the ledger using CQRS pattern
type LedgerHandler struct {
	commands Commands
	queries  Queries
	resolver *partition.Resolver
	metrics  *metrics.Metrics
	db       Pinger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(commands Commands, queries Queries, resolver *partition.Resolver, m *metrics.Metrics, db Pinger) *LedgerHandler {
	return &LedgerHandler{
		commands: commands,
		queries:  queries,
		resolver: resolver,
		metrics:  m,
		db:       db,
	}
}

type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware wraps handlers with Prometheus metrics
func (h *LedgerHandler) metricsMiddleware(endpoint string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		h.metrics.HTTPRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(rw.statusCode)).Inc()
		h.metrics.HTTPRequestLatency.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// RegisterRoutes registers all ledger routes
func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	const base = "/api/partitions/{date}"
	route := func(method, path string, fn http.HandlerFunc) {
		router.HandleFunc(base+path, h.metricsMiddleware(base+path, fn)).Methods(method)
	}

	// Stock
	route("GET", "/stock", h.ListStock)
	route("GET", "/available", h.ListAvailable)
	route("POST", "/items", h.CreateItem)
	route("GET", "/items/{item_id}", h.GetItem)
	route("DELETE", "/items/{item_id}", h.DeleteItem)
	route("PATCH", "/items/{item_id}/price", h.SetPrice)
	route("PATCH", "/items/{item_id}/stock", h.CorrectStock)
	route("GET", "/items/{item_id}/movements", h.ListMovements)
	route("POST", "/import", h.ImportCatalog)

	// Orders
	route("POST", "/orders", h.PlaceOrder)
	route("GET", "/orders", h.ListOrders)
	route("GET", "/orders/{order_id}", h.GetOrder)
	route("PUT", "/orders/{order_id}/items", h.EditOrder)
	route("PATCH", "/orders/{order_id}/status", h.UpdateStatus)
	route("GET", "/orders/{order_id}/adjustments", h.ListAdjustments)

	// Maintenance
	route("POST", "/recalculate", h.Recalculate)
}

// RegisterHealthCheck registers health check endpoint
func (h *LedgerHandler) RegisterHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := h.db.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{
				Success: false,
				Error:   "Database unavailable",
			})
			return
		}

		respondJSON(w, http.StatusOK, Response{
			Success: true,
			Message: "Ledger service is healthy",
			Data:    map[string]string{"today": h.resolver.Today().String()},
		})
	}).Methods("GET")
}

// partition resolves the {date} path segment.
func (h *LedgerHandler) partition(w http.ResponseWriter, r *http.Request) (domain.PartitionKey, bool) {
	p, err := h.resolver.Parse(mux.Vars(r)["date"])
	if err != nil {
		respondError(w, r, err)
		return "", false
	}
	return p, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{
			Success: false,
			Error:   "Invalid request body",
		})
		return false
	}
	return true
}

// ListStock handles GET /api/partitions/{date}/stock
func (h *LedgerHandler) ListStock(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	items, err := h.queries.ListStock.Handle(r.Context(), query.ListStockQuery{
		Partition: p,
		Category:  r.URL.Query().Get("category"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: items})
}

// ListAvailable handles GET /api/partitions/{date}/available
func (h *LedgerHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	entries, err := h.queries.ListAvailable.Handle(r.Context(), query.ListAvailableQuery{Partition: p})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: entries})
}

// CreateItem handles POST /api/partitions/{date}/items
func (h *LedgerHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		ID             string           `json:"id"`
		Name           string           `json:"name"`
		UnitType       domain.UnitType  `json:"unit_type"`
		PricePerUnit   decimal.Decimal  `json:"price_per_unit"`
		TotalStock     decimal.Decimal  `json:"total_stock"`
		AvailableStock *decimal.Decimal `json:"available_stock"`
		Category       string           `json:"category"`
	}
	if !decode(w, r, &req) {
		return
	}

	item, err := h.commands.CreateItem.Handle(r.Context(), command.CreateItemCommand{
		Partition:      p,
		ItemID:         req.ID,
		Name:           req.Name,
		UnitType:       req.UnitType,
		PricePerUnit:   req.PricePerUnit,
		TotalStock:     req.TotalStock,
		AvailableStock: req.AvailableStock,
		Category:       req.Category,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Item created successfully",
		Data:    item,
	})
}

// GetItem handles GET /api/partitions/{date}/items/{item_id}
func (h *LedgerHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	item, err := h.queries.GetItem.Handle(r.Context(), query.GetItemQuery{
		Partition: p,
		ItemID:    mux.Vars(r)["item_id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: item})
}

// DeleteItem handles DELETE /api/partitions/{date}/items/{item_id}
func (h *LedgerHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	err := h.commands.DeleteItem.Handle(r.Context(), command.DeleteItemCommand{
		Partition: p,
		ItemID:    mux.Vars(r)["item_id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Item deleted successfully",
	})
}

// SetPrice handles PATCH /api/partitions/{date}/items/{item_id}/price
func (h *LedgerHandler) SetPrice(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		PricePerUnit decimal.Decimal `json:"price_per_unit"`
	}
	if !decode(w, r, &req) {
		return
	}

	item, err := h.commands.SetPrice.Handle(r.Context(), command.SetPriceCommand{
		Partition:    p,
		ItemID:       mux.Vars(r)["item_id"],
		PricePerUnit: req.PricePerUnit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Price updated successfully",
		Data:    item,
	})
}

// CorrectStock handles PATCH /api/partitions/{date}/items/{item_id}/stock
func (h *LedgerHandler) CorrectStock(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		TotalStock     decimal.Decimal  `json:"total_stock"`
		AvailableDelta *decimal.Decimal `json:"available_delta"`
	}
	if !decode(w, r, &req) {
		return
	}

	item, err := h.commands.CorrectStock.Handle(r.Context(), command.CorrectStockCommand{
		Partition:      p,
		ItemID:         mux.Vars(r)["item_id"],
		TotalStock:     req.TotalStock,
		AvailableDelta: req.AvailableDelta,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stock corrected successfully",
		Data:    item,
	})
}

// ListMovements handles GET /api/partitions/{date}/items/{item_id}/movements
func (h *LedgerHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	movements, err := h.queries.ListMovements.Handle(r.Context(), query.ListMovementsQuery{
		Partition: p,
		ItemID:    mux.Vars(r)["item_id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: movements})
}

// ImportCatalog handles POST /api/partitions/{date}/import
func (h *LedgerHandler) ImportCatalog(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		From  string                     `json:"from"`
		Stock map[string]decimal.Decimal `json:"stock"`
	}
	if !decode(w, r, &req) {
		return
	}
	from, err := h.resolver.Parse(req.From)
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.commands.ImportCatalog.Handle(r.Context(), command.ImportCatalogCommand{
		From:  from,
		To:    p,
		Stock: req.Stock,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Catalog imported successfully",
		Data:    report,
	})
}

type lineRequest struct {
	ItemID    string           `json:"item_id"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// PlaceOrder handles POST /api/partitions/{date}/orders
func (h *LedgerHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		CustomerRef string        `json:"customer_ref"`
		LineItems   []lineRequest `json:"line_items"`
	}
	if !decode(w, r, &req) {
		return
	}

	lines := make([]command.OrderLine, len(req.LineItems))
	for i, l := range req.LineItems {
		lines[i] = command.OrderLine{ItemID: l.ItemID, Quantity: l.Quantity}
	}
	order, err := h.commands.PlaceOrder.Handle(r.Context(), command.PlaceOrderCommand{
		Partition:   p,
		CustomerRef: req.CustomerRef,
		Lines:       lines,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Order placed successfully",
		Data:    order,
	})
}

// ListOrders handles GET /api/partitions/{date}/orders
func (h *LedgerHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	page, err := h.queries.ListOrders.Handle(r.Context(), query.ListOrdersQuery{
		Partition: p,
		After:     r.URL.Query().Get("after"),
		Limit:     limit,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: page})
}

// GetOrder handles GET /api/partitions/{date}/orders/{order_id}
func (h *LedgerHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	order, err := h.queries.GetOrder.Handle(r.Context(), query.GetOrderQuery{
		Partition: p,
		OrderID:   mux.Vars(r)["order_id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: order})
}

// EditOrder handles PUT /api/partitions/{date}/orders/{order_id}/items
func (h *LedgerHandler) EditOrder(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		LineItems []lineRequest `json:"line_items"`
	}
	if !decode(w, r, &req) {
		return
	}

	lines := make([]command.EditLine, len(req.LineItems))
	for i, l := range req.LineItems {
		lines[i] = command.EditLine{ItemID: l.ItemID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	result, err := h.commands.EditOrder.Handle(r.Context(), command.EditOrderCommand{
		Partition: p,
		OrderID:   mux.Vars(r)["order_id"],
		Lines:     lines,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	msg := "Order updated successfully"
	if len(result.InventoryFailures) > 0 {
		msg = "Order updated; some stock could not be adjusted"
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    result,
	})
}

// UpdateStatus handles PATCH /api/partitions/{date}/orders/{order_id}/status
func (h *LedgerHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	var req struct {
		Status domain.Status `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}

	err := h.commands.UpdateStatus.Handle(r.Context(), command.UpdateStatusCommand{
		Partition: p,
		OrderID:   mux.Vars(r)["order_id"],
		Status:    req.Status,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Status updated successfully",
	})
}

// ListAdjustments handles GET /api/partitions/{date}/orders/{order_id}/adjustments
func (h *LedgerHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	adjustments, err := h.queries.ListAdjustments.Handle(r.Context(), query.ListAdjustmentsQuery{
		Partition: p,
		OrderID:   mux.Vars(r)["order_id"],
	})
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: adjustments})
}

// Recalculate handles POST /api/partitions/{date}/recalculate
func (h *LedgerHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	p, ok := h.partition(w, r)
	if !ok {
		return
	}
	report, err := h.commands.Recalculate.Handle(r.Context(), command.RecalculateBillsCommand{Partition: p})
	if err != nil {
		if report != nil {
			// partial run: report what was done so the caller can re-run
			logger.Error(r.Context()).Err(err).Int("updated", report.Totals.Updated).Msg("Recalculation stopped early")
			respondJSON(w, http.StatusInternalServerError, Response{
				Success: false,
				Error:   "Recalculation stopped early; run it again to resume",
				Data:    report,
			})
			return
		}
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Bills recalculated successfully",
		Data:    report,
	})
}

// statusFor maps ledger errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrAlreadyExists), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsValidation(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error(r.Context()).Err(err).Str("path", r.URL.Path).Msg("Ledger request failed")
		msg = "Internal server error"
	}
	respondJSON(w, status, Response{
		Success: false,
		Error:   msg,
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
