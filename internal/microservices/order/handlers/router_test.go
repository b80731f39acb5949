package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/common/idempotency"
	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/order/repository"
	"restaurant-pos/internal/microservices/order/repository/memory"
	"restaurant-pos/internal/microservices/order/service"
)

const testSecret = "kitchen-door"

type testServer struct {
	srv   *httptest.Server
	store *memory.Store
}

func newTestServer(t *testing.T, opts RouterOptions) *testServer {
	t.Helper()
	store := memory.New()
	repo := store.Repository()
	ctx := context.Background()

	require.NoError(t, repo.StockRepo.Upsert(ctx, domain.IngredientStock{
		ID: "tomato", Name: "Tomate", Unit: "kg", QuantityOnHand: decimal.RequireFromString("10"),
	}))
	require.NoError(t, repo.CatalogRepo.UpsertMenuItem(ctx, domain.MenuItem{
		ID: "salad", Name: "Salada", UnitPrice: decimal.RequireFromString("19.99"), Available: true,
		Ingredients: []domain.IngredientRequirement{{IngredientID: "tomato", QuantityPerUnit: decimal.RequireFromString("1")}},
	}))
	require.NoError(t, repo.TableRepo.Upsert(ctx, domain.Table{ID: "t5", Number: 5, Capacity: 4}))

	svc := service.NewOrderService(repo, nil, logger.Discard(), service.Options{StoreTimeout: time.Second})
	h := New(service.New(svc), logger.Discard())
	srv := httptest.NewServer(NewRouter(h, opts))
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, store: store}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers map[string]string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, ts.srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func token(t *testing.T, sub string, exp time.Duration) string {
	t.Helper()
	claims := staffClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   sub,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(exp)),
	}}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

const saladOrder = `{"kind":"local","table_id":"t5","items":[{"menu_item_id":"salad","quantity":2}]}`

func TestCreateAndFetchOrder(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	resp, body := ts.do(t, http.MethodPost, "/orders", saladOrder, map[string]string{"X-Staff-ID": "waiter-1"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "39.98", body["total"])
	assert.Equal(t, "waiter-1", body["staff_id"])
	id := body["id"].(string)

	resp, body = ts.do(t, http.MethodGet, "/orders/"+id, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", body["status"])

	resp, body = ts.do(t, http.MethodGet, "/tables/t5", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "occupied", body["status"])
}

func TestErrorKindsMapToStatusCodes(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	resp, body := ts.do(t, http.MethodPost, "/orders",
		`{"kind":"local","table_id":"t5","items":[{"menu_item_id":"salad","quantity":11}]}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "insufficient_stock", body["type"])
	ctx := body["context"].(map[string]any)
	assert.Equal(t, "tomato", ctx["ingredient_id"])
	assert.Equal(t, "11", ctx["required"])
	assert.Equal(t, "10", ctx["available"])

	resp, body = ts.do(t, http.MethodGet, "/orders/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "order_not_found", body["type"])

	resp, _ = ts.do(t, http.MethodPost, "/orders", `{"kind":"local"`, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = ts.do(t, http.MethodPost, "/orders", `{"kind":"local","table_id":"t5","items":[{"menu_item_id":"x","quantity":1}]}`, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "menu_item_not_found", body["type"])

	resp, _ = ts.do(t, http.MethodPost, "/tables/t5/clean", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestStatusLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	_, body := ts.do(t, http.MethodPost, "/orders", saladOrder, nil)
	id := body["id"].(string)

	resp, body := ts.do(t, http.MethodPatch, "/orders/"+id+"/status", `{"status":"delivered"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "invalid_status_transition", body["type"])

	for _, st := range []string{"preparing", "ready", "delivered"} {
		resp, _ = ts.do(t, http.MethodPatch, "/orders/"+id+"/status", `{"status":"`+st+`"}`, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, st)
	}

	resp, body = ts.do(t, http.MethodPost, "/tables/t5/finalize", "", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "payment_required", body["type"])

	resp, body = ts.do(t, http.MethodPost, "/orders/"+id+"/payments", `{"method":"cash","amount_paid":"50"}`, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "10.02", body["change"])

	resp, body = ts.do(t, http.MethodPost, "/tables/t5/finalize", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "39.98", body["total"])

	_, body = ts.do(t, http.MethodGet, "/tables?status=free", "", nil)
	assert.Len(t, body["tables"], 1)
}

func TestCancelOverHTTPRestoresStock(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})
	_, body := ts.do(t, http.MethodPost, "/orders", saladOrder, nil)
	id := body["id"].(string)

	resp, body := ts.do(t, http.MethodPost, "/orders/"+id+"/cancel", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cancelled", body["status"])

	_, body = ts.do(t, http.MethodGet, "/stock", "", nil)
	ings := body["ingredients"].([]any)
	require.Len(t, ings, 1)
	assert.Equal(t, "10", ings[0].(map[string]any)["quantity_on_hand"])
}

func TestAdjustStockOverHTTP(t *testing.T) {
	ts := newTestServer(t, RouterOptions{})

	resp, body := ts.do(t, http.MethodPatch, "/stock/tomato", `{"delta":"-2.5"}`, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "7.5", body["quantity_on_hand"])

	resp, _ = ts.do(t, http.MethodPatch, "/stock/tomato", `{"delta":"-20"}`, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAuthenticationUsesTokenSubject(t *testing.T) {
	ts := newTestServer(t, RouterOptions{JWTSecret: testSecret})

	resp, _ := ts.do(t, http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodGet, "/orders", "", map[string]string{"Authorization": "Bearer " + token(t, "w-7", -time.Minute)})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := ts.do(t, http.MethodPost, "/orders", saladOrder, map[string]string{
		"Authorization": "Bearer " + token(t, "w-7", time.Hour),
		"X-Staff-ID":    "spoofed",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "w-7", body["staff_id"])

	resp, _ = ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIdempotencyKeyReplaysFirstOrder(t *testing.T) {
	ts := newTestServer(t, RouterOptions{Idempotency: idempotency.NewMemoryStore(time.Hour)})
	hdr := map[string]string{IdempotencyHeader: "retry-1"}

	resp, first := ts.do(t, http.MethodPost, "/orders", saladOrder, hdr)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, second := ts.do(t, http.MethodPost, "/orders", saladOrder, hdr)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("Idempotent-Replayed"))
	assert.Equal(t, first["id"], second["id"])

	_, body := ts.do(t, http.MethodGet, "/stock", "", nil)
	ing := body["ingredients"].([]any)[0].(map[string]any)
	assert.Equal(t, "8", ing["quantity_on_hand"], "stock reserved once")

	resp, _ = ts.do(t, http.MethodPost, "/orders", saladOrder, map[string]string{IdempotencyHeader: "retry-2"})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestIdempotencyKeyIsReleasedAfterFailure(t *testing.T) {
	store := idempotency.NewMemoryStore(time.Hour)
	ts := newTestServer(t, RouterOptions{Idempotency: store})
	hdr := map[string]string{IdempotencyHeader: "k"}

	resp, _ := ts.do(t, http.MethodPost, "/orders", `{"kind":"local","table_id":"t5","items":[{"menu_item_id":"salad","quantity":50}]}`, hdr)
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/orders", saladOrder, hdr)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestMalformedOrderIdsAreNotFoundWithoutReachingPostgres(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := memory.New().Repository()
	repo.OrderRepo = repository.NewOrderRepository(db)
	svc := service.NewOrderService(repo, nil, logger.Discard(), service.Options{StoreTimeout: time.Second})
	srv := httptest.NewServer(NewRouter(New(service.New(svc), logger.Discard()), RouterOptions{}))
	t.Cleanup(srv.Close)
	ts := &testServer{srv: srv}

	for _, call := range []struct{ method, path, body string }{
		{http.MethodGet, "/orders/abc", ""},
		{http.MethodPatch, "/orders/abc/status", `{"status":"preparing"}`},
		{http.MethodPost, "/orders/abc/cancel", ""},
		{http.MethodPost, "/orders/abc/payments", `{"method":"cash","amount_paid":"10"}`},
	} {
		resp, body := ts.do(t, call.method, call.path, call.body, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, call.path)
		assert.Equal(t, "order_not_found", body["type"], call.path)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}
