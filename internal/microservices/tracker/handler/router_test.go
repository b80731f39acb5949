package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/common/logger"
	"restaurant-pos/internal/microservices/tracker/repository"
	"restaurant-pos/internal/microservices/tracker/service"
)

const orderID = "0b6f3f7e-4f0b-4a53-9d0e-1c2f7f3f2a11"

func newServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := service.NewTrackerService(repository.NewTrackerRepo(db), service.Options{CookTime: time.Minute})
	srv := httptest.NewServer(Router(New(svc, logger.Discard())))
	t.Cleanup(srv.Close)
	return srv, mock
}

func get(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp.StatusCode, body
}

func orderRow(status string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "order_number", "kind", "table_id", "status", "updated_at"}).
		AddRow(orderID, 9, "local", "t5", status, time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC))
}

func TestStatusEndpoint(t *testing.T) {
	srv, mock := newServer(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id=$1`)).WithArgs(orderID).WillReturnRows(orderRow("preparing"))

	code, body := get(t, srv.URL+"/orders/"+orderID+"/status")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "preparing", body["status"])
	assert.Equal(t, "2026-03-01T20:01:00Z", body["estimated_completion"])

	code, body = get(t, srv.URL+"/orders/nope/status")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "order_not_found", body["type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimelineEndpoint(t *testing.T) {
	srv, mock := newServer(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM orders WHERE id=$1`)).WithArgs(orderID).WillReturnRows(orderRow("ready"))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM order_status_log`)).WithArgs(orderID, 2, 1).
		WillReturnRows(sqlmock.NewRows([]string{"status", "changed_by", "changed_at", "notes"}).
			AddRow("preparing", "oven-1", time.Now(), "").
			AddRow("ready", "oven-1", time.Now(), ""))

	code, body := get(t, srv.URL+"/orders/"+orderID+"/timeline?limit=2&offset=1")
	require.Equal(t, http.StatusOK, code)
	events := body["events"].([]any)
	require.Len(t, events, 2)
	assert.Equal(t, "ready", events[1].(map[string]any)["status"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWorkersEndpointHidesDatabaseErrors(t *testing.T) {
	srv, mock := newServer(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM workers`)).WillReturnError(assert.AnError)

	code, body := get(t, srv.URL+"/workers/status")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal error", body["detail"])
}
