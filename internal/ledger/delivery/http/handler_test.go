package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tair/produce-ledger/internal/ledger/domain"
	"github.com/tair/produce-ledger/internal/ledger/ledgertest"
	"github.com/tair/produce-ledger/internal/ledger/metrics"
	"github.com/tair/produce-ledger/internal/ledger/partition"
	"github.com/tair/produce-ledger/internal/ledger/usecase/command"
)

type testServer struct {
	router  *mux.Router
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := ledgertest.NewStore(t)
	m := metrics.New(prometheus.NewRegistry())

	resolver := partition.MustNewResolver(partition.DefaultLegacyDates, time.UTC).
		WithClock(func() time.Time { return time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC) })

	deps := command.Dependencies{
		Ledger:  store,
		Metrics: m,
		Config:  command.Config{ConflictRetries: command.DefaultConflictRetries},
	}
	h := NewLedgerHandler(NewCommands(deps), NewQueries(store, nil), resolver, m, store)

	router := mux.NewRouter()
	RegisterMiddlewares(router, &MiddlewareConfig{EnableRecovery: true})
	h.RegisterRoutes(router)
	h.RegisterHealthCheck(router)
	return &testServer{router: router, metrics: m}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, resp
}

// data re-decodes the envelope payload into dst.
func data(t *testing.T, resp Response, dst interface{}) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, dst))
}

func (s *testServer) seed(t *testing.T) {
	t.Helper()
	for _, item := range []map[string]interface{}{
		{"id": "tomato", "name": "Tomato", "unit_type": "WEIGHT", "price_per_unit": "40", "total_stock": "10", "category": "vegetables"},
		{"id": "onion", "name": "Onion", "unit_type": "WEIGHT", "price_per_unit": "30", "total_stock": "20", "category": "vegetables"},
	} {
		rec, resp := s.do(t, http.MethodPost, "/api/partitions/2025-03-14/items", item)
		require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	}
}

func TestOrderLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec, resp := s.do(t, http.MethodPost, "/api/partitions/today/orders", map[string]interface{}{
		"customer_ref": "cust-1",
		"line_items": []map[string]string{
			{"item_id": "tomato", "quantity": "3"},
			{"item_id": "onion", "quantity": "2"},
		},
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var order domain.Order
	data(t, resp, &order)
	assert.Equal(t, domain.PartitionKey("2025-03-14"), order.PartitionKey)
	assert.True(t, decimal.NewFromInt(180).Equal(order.Total))

	rec, resp = s.do(t, http.MethodPut, "/api/partitions/2025-03-14/orders/"+order.ID+"/items", map[string]interface{}{
		"line_items": []map[string]string{
			{"item_id": "tomato", "quantity": "5"},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var result command.ReconcileResult
	data(t, resp, &result)
	assert.True(t, decimal.NewFromInt(200).Equal(result.Order.Total))
	assert.Empty(t, result.InventoryFailures)

	_, resp = s.do(t, http.MethodGet, "/api/partitions/2025-03-14/available", nil)
	var entries []domain.MirrorEntry
	data(t, resp, &entries)
	require.Len(t, entries, 2)
	for _, e := range entries {
		switch e.ItemID {
		case "tomato":
			assert.True(t, decimal.NewFromInt(5).Equal(e.AvailableStock))
		case "onion":
			assert.True(t, decimal.NewFromInt(20).Equal(e.AvailableStock))
		}
	}

	rec, resp = s.do(t, http.MethodPatch, "/api/partitions/2025-03-14/orders/"+order.ID+"/status", map[string]string{"status": "packed"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	_, resp = s.do(t, http.MethodGet, "/api/partitions/2025-03-14/orders/"+order.ID, nil)
	var stored domain.Order
	data(t, resp, &stored)
	assert.Equal(t, domain.StatusPacked, stored.Status)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		s.metrics.HTTPRequests.WithLabelValues("POST", "/api/partitions/{date}/orders", "201")))
}

func TestRecalculateOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec, resp := s.do(t, http.MethodPost, "/api/partitions/2025-03-14/orders", map[string]interface{}{
		"line_items": []map[string]string{{"item_id": "tomato", "quantity": "2"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var order domain.Order
	data(t, resp, &order)

	rec, resp = s.do(t, http.MethodPatch, "/api/partitions/2025-03-14/items/tomato/price", map[string]string{"price_per_unit": "45"})
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)

	rec, resp = s.do(t, http.MethodPost, "/api/partitions/2025-03-14/recalculate", nil)
	require.Equal(t, http.StatusOK, rec.Code, resp.Error)
	var report command.RecalcReport
	data(t, resp, &report)
	assert.Equal(t, 1, report.Totals.Updated)
	assert.True(t, decimal.NewFromInt(90).Equal(report.Totals.NewTotal))

	_, resp = s.do(t, http.MethodGet, "/api/partitions/2025-03-14/orders/"+order.ID+"/adjustments", nil)
	var adjustments []domain.BillAdjustment
	data(t, resp, &adjustments)
	require.Len(t, adjustments, 1)
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"bad date", http.MethodGet, "/api/partitions/14-03-2025/stock", nil, http.StatusBadRequest},
		{"unknown item", http.MethodGet, "/api/partitions/2025-03-14/items/mango", nil, http.StatusNotFound},
		{"unknown order", http.MethodGet, "/api/partitions/2025-03-14/orders/nope", nil, http.StatusNotFound},
		{"duplicate item", http.MethodPost, "/api/partitions/2025-03-14/items",
			map[string]string{"id": "tomato", "price_per_unit": "1", "total_stock": "1"}, http.StatusConflict},
		{"empty order", http.MethodPost, "/api/partitions/2025-03-14/orders",
			map[string]interface{}{"line_items": []interface{}{}}, http.StatusBadRequest},
		{"order of unknown item", http.MethodPost, "/api/partitions/2025-03-14/orders",
			map[string]interface{}{"line_items": []map[string]string{{"item_id": "mango", "quantity": "1"}}}, http.StatusNotFound},
		{"bad status", http.MethodPatch, "/api/partitions/2025-03-14/orders/x/status",
			map[string]string{"status": "lost"}, http.StatusBadRequest},
		{"recalc empty partition", http.MethodPost, "/api/partitions/2025-04-01/recalculate", nil, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := s.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.False(t, resp.Success)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/partitions/2025-03-14/orders", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestImportOverHTTP(t *testing.T) {
	s := newTestServer(t)
	s.seed(t)

	rec, resp := s.do(t, http.MethodPost, "/api/partitions/2025-03-15/import", map[string]interface{}{
		"from":  "2025-03-14",
		"stock": map[string]string{"tomato": "12"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, resp.Error)
	var report command.ImportReport
	data(t, resp, &report)
	assert.ElementsMatch(t, []string{"tomato", "onion"}, report.Imported)

	_, resp = s.do(t, http.MethodGet, "/api/partitions/2025-03-15/items/tomato", nil)
	var item domain.Item
	data(t, resp, &item)
	assert.True(t, decimal.NewFromInt(12).Equal(item.TotalStock))
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	rec, resp := s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Success)
}

type downDB struct{}

func (downDB) Ping(context.Context) error { return errors.New("connection refused") }

func TestHealthCheckReportsDatabaseDown(t *testing.T) {
	h := NewLedgerHandler(Commands{}, Queries{}, partition.MustNewResolver(nil, nil), metrics.New(prometheus.NewRegistry()), downDB{})
	router := mux.NewRouter()
	h.RegisterHealthCheck(router)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusConflict, statusFor(domain.ErrConflict))
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ErrInvalidQuantity))
	assert.Equal(t, http.StatusNotFound, statusFor(domain.ErrPartitionNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(domain.ErrTotalMismatch))
}
