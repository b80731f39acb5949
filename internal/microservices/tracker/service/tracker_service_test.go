package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
)

const orderID = "0b6f3f7e-4f0b-4a53-9d0e-1c2f7f3f2a11"

type fakeRepo struct {
	views    map[string]models.OrderView
	timeline []domain.StatusChange
	workers  []domain.Worker
	block    bool

	gotLimit, gotOffset int
}

func (f *fakeRepo) GetOrderView(ctx context.Context, id string) (models.OrderView, bool, error) {
	if f.block {
		<-ctx.Done()
		return models.OrderView{}, false, ctx.Err()
	}
	v, ok := f.views[id]
	return v, ok, nil
}

func (f *fakeRepo) GetOrderTimeline(_ context.Context, _ string, limit, offset int) ([]domain.StatusChange, error) {
	f.gotLimit, f.gotOffset = limit, offset
	return f.timeline, nil
}

func (f *fakeRepo) ListWorkers(context.Context) ([]domain.Worker, error) { return f.workers, nil }

var at = time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)

func newRepo(status domain.OrderStatus) *fakeRepo {
	return &fakeRepo{views: map[string]models.OrderView{
		orderID: {OrderID: orderID, OrderNumber: 3, Kind: domain.KindLocal, Status: status, UpdatedAt: at},
	}}
}

func TestOrderViewEstimatesCompletionWhileCooking(t *testing.T) {
	svc := NewTrackerService(newRepo(domain.StatusPreparing), Options{CookTime: 8 * time.Minute})
	v, err := svc.GetOrderView(context.Background(), orderID)
	require.NoError(t, err)
	require.NotNil(t, v.EstimatedCompletion)
	assert.Equal(t, at.Add(8*time.Minute), *v.EstimatedCompletion)

	svc = NewTrackerService(newRepo(domain.StatusReady), Options{CookTime: 8 * time.Minute})
	v, err = svc.GetOrderView(context.Background(), orderID)
	require.NoError(t, err)
	assert.Nil(t, v.EstimatedCompletion)
}

func TestOrderViewNotFound(t *testing.T) {
	svc := NewTrackerService(newRepo(domain.StatusPending), Options{})
	_, err := svc.GetOrderView(context.Background(), "not-a-uuid")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrderView(context.Background(), "7d1d6a3e-0000-4000-8000-000000000000")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = svc.GetOrderTimeline(context.Background(), "7d1d6a3e-0000-4000-8000-000000000000", 0, 0)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestOrderViewTimesOut(t *testing.T) {
	repo := newRepo(domain.StatusPending)
	repo.block = true
	svc := NewTrackerService(repo, Options{StoreTimeout: 10 * time.Millisecond})
	_, err := svc.GetOrderView(context.Background(), orderID)
	require.ErrorIs(t, err, domain.ErrStorageTimeout)
}

func TestTimelineDefaultsPaging(t *testing.T) {
	repo := newRepo(domain.StatusReady)
	repo.timeline = []domain.StatusChange{{OrderID: orderID, Status: domain.StatusPending}}
	svc := NewTrackerService(repo, Options{})

	got, err := svc.GetOrderTimeline(context.Background(), orderID, 0, -3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, defaultTimelineLimit, repo.gotLimit)
	assert.Zero(t, repo.gotOffset)
}

func TestStaleWorkersAreReportedOffline(t *testing.T) {
	now := at.Add(time.Hour)
	repo := &fakeRepo{workers: []domain.Worker{
		{Name: "oven-1", Status: "online", LastSeen: now.Add(-10 * time.Second), OrdersProcessed: 4},
		{Name: "oven-2", Status: "online", LastSeen: now.Add(-2 * time.Minute)},
		{Name: "oven-3", Status: "offline", LastSeen: now},
	}}
	svc := NewTrackerService(repo, Options{HeartbeatInterval: 30 * time.Second, Now: func() time.Time { return now }})

	got, err := svc.ListWorkers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "online", got[0].Status)
	assert.Equal(t, 4, got[0].OrdersProcessed)
	assert.Equal(t, "offline", got[1].Status)
	assert.Equal(t, "offline", got[2].Status)
}
