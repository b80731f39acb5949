package httpx

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"restaurant-pos/internal/common/logger"
)

type Server struct {
	*http.Server
	grace time.Duration
	log   *logger.Logger
}

func New(port int, h http.Handler, grace time.Duration, log *logger.Logger) *Server {
	if grace <= 0 {
		grace = 5 * time.Second
	}
	return &Server{
		Server: &http.Server{
			Addr:              net.JoinHostPort("", strconv.Itoa(port)),
			Handler:           h,
			ReadHeaderTimeout: 5 * time.Second,
		},
		grace: grace,
		log:   log,
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests for the grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.ListenAndServe() }()
	s.log.Info("http_server_started", map[string]any{"addr": s.Addr})

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), s.grace)
		defer cancel()
		if err := s.Shutdown(sctx); err != nil {
			s.log.Error("http_server_shutdown_failed", err, nil)
			return err
		}
		s.log.Info("http_server_stopped", nil)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
