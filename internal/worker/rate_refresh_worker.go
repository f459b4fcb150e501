package worker

import (
	"context"
	"sync"
	"time"

	"github.com/ayo6706/moneybank/internal/observability"
	"go.uber.org/zap"
)

const workerName = "rate_refresh"

// Refresher reloads the exchange-rate table from its persistent store.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// RateRefreshWorker keeps the in-memory rate table in step with the database,
// so rates registered through another instance become visible here.
type RateRefreshWorker struct {
	svc      Refresher
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewRateRefreshWorker constructs a worker with a default one minute interval.
func NewRateRefreshWorker(svc Refresher) *RateRefreshWorker {
	return &RateRefreshWorker{
		svc:      svc,
		interval: time.Minute,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// WithInterval updates the run interval.
func (w *RateRefreshWorker) WithInterval(interval time.Duration) *RateRefreshWorker {
	if interval > 0 {
		w.interval = interval
	}
	return w
}

// Start blocks and refreshes at the configured interval.
func (w *RateRefreshWorker) Start(ctx context.Context) {
	defer close(w.done)
	zap.L().Info("rate refresh worker starting", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("rate refresh worker context canceled")
			return
		case <-w.stopCh:
			zap.L().Info("rate refresh worker stop signal received")
			return
		case <-ticker.C:
			w.RunOnce(ctx)
		}
	}
}

// Stop stops the running worker loop and waits for it to exit.
func (w *RateRefreshWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.done
}

// Run starts the worker in a goroutine and returns a stop function.
func (w *RateRefreshWorker) Run(ctx context.Context) func() {
	go w.Start(ctx)
	return w.Stop
}

// RunOnce performs a single refresh.
func (w *RateRefreshWorker) RunOnce(ctx context.Context) {
	if err := w.svc.Refresh(ctx); err != nil {
		observability.IncrementWorkerRun(workerName, "failed")
		zap.L().Error("rate refresh failed", zap.Error(err))
		return
	}
	observability.IncrementWorkerRun(workerName, "success")
}
