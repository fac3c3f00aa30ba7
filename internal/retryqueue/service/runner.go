package service

import (
	"context"
	"time"

	"github.com/devhb1/FrappeLms-sub002/internal/observability/metrics"
	"go.uber.org/zap"
)

// RunForever drives worker passes on a fixed interval until ctx ends.
func (s *Service) RunForever(ctx context.Context) {
	interval := time.Duration(s.cfg.Worker.IntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(interval)
	qm := metrics.Queue()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			qm.ObserveRunLoopLag(runLag)
		}
		if _, err := s.RunBatch(ctx); err != nil {
			s.log.Warn("retry batch failed", zap.Error(err))
		}
		nextRun = nextRun.Add(interval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
