package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"restaurant-pos/internal/domain"
	"restaurant-pos/internal/microservices/tracker/models"
	"restaurant-pos/internal/microservices/tracker/repository"
)

const defaultTimelineLimit = 50

type TrackerServiceInterface interface {
	GetOrderView(ctx context.Context, id string) (models.OrderView, error)
	GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusChange, error)
	ListWorkers(ctx context.Context) ([]models.WorkerStatus, error)
}

type Options struct {
	StoreTimeout time.Duration
	CookTime     time.Duration
	// A worker that has not sent a heartbeat for two intervals is reported offline.
	HeartbeatInterval time.Duration
	Now               func() time.Time
}

type TrackerService struct {
	repo repository.TrackerRepoInterface
	opts Options
}

func NewTrackerService(repo repository.TrackerRepoInterface, opts Options) *TrackerService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &TrackerService{repo: repo, opts: opts}
}

func (s *TrackerService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opts.StoreTimeout)
}

func storeErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.StorageTimeout(op, err)
	}
	return err
}

func (s *TrackerService) GetOrderView(ctx context.Context, id string) (models.OrderView, error) {
	// Order ids are uuids; anything else cannot exist.
	if _, err := uuid.Parse(id); err != nil {
		return models.OrderView{}, domain.OrderNotFound(id)
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	v, ok, err := s.repo.GetOrderView(ctx, id)
	if err != nil {
		return models.OrderView{}, storeErr("tracker.order", err)
	}
	if !ok {
		return models.OrderView{}, domain.OrderNotFound(id)
	}
	if s.opts.CookTime > 0 && (v.Status == domain.StatusPending || v.Status == domain.StatusPreparing) {
		eta := v.UpdatedAt.Add(s.opts.CookTime)
		v.EstimatedCompletion = &eta
	}
	return v, nil
}

func (s *TrackerService) GetOrderTimeline(ctx context.Context, id string, limit, offset int) ([]domain.StatusChange, error) {
	if _, err := s.GetOrderView(ctx, id); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTimelineLimit
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	out, err := s.repo.GetOrderTimeline(ctx, id, limit, offset)
	if err != nil {
		return nil, storeErr("tracker.timeline", err)
	}
	return out, nil
}

func (s *TrackerService) ListWorkers(ctx context.Context) ([]models.WorkerStatus, error) {
	ctx, cancel := s.storeCtx(ctx)
	defer cancel()

	workers, err := s.repo.ListWorkers(ctx)
	if err != nil {
		return nil, storeErr("tracker.workers", err)
	}
	now := s.opts.Now()
	out := make([]models.WorkerStatus, 0, len(workers))
	for _, w := range workers {
		status := w.Status
		if status == "online" && s.opts.HeartbeatInterval > 0 && now.Sub(w.LastSeen) > 2*s.opts.HeartbeatInterval {
			status = "offline"
		}
		out = append(out, models.WorkerStatus{
			WorkerName:      w.Name,
			Type:            w.Type,
			Status:          status,
			OrdersProcessed: w.OrdersProcessed,
			LastSeen:        w.LastSeen,
		})
	}
	return out, nil
}
