// internal/app/system/workers/reconcile.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/climatehub/internal/app/system/participation"
	"go.uber.org/zap"
)

// Pass runs one reconciliation pass.
type Pass interface {
	Run(ctx context.Context) (participation.Report, error)
}

// Reconcile is a background worker that periodically rebuilds users'
// joined lists and counters from the initiative rosters.
type Reconcile struct {
	pass     Pass
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewReconcile creates a new reconcile worker.
//
// Parameters:
//   - pass: usually a *participation.Reconciler
//   - logger: zap logger for logging
//   - interval: time between passes (e.g., 10 minutes)
//   - timeout: upper bound on a single pass
func NewReconcile(pass Pass, logger *zap.Logger, interval, timeout time.Duration) *Reconcile {
	return &Reconcile{
		pass:     pass,
		log:      logger,
		interval: interval,
		timeout:  timeout,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background loop. The first pass runs after one interval.
func (w *Reconcile) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("reconcile worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for an in-flight pass to end.
// It is safe to call more than once.
func (w *Reconcile) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("reconcile worker stopped")
	})
}

func (w *Reconcile) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.once()
		}
	}
}

func (w *Reconcile) once() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	// Stop cancels a pass in progress.
	go func() {
		select {
		case <-w.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	rep, err := w.pass.Run(ctx)
	if err != nil {
		w.log.Error("reconcile pass failed", zap.Error(err))
		return
	}
	if rep.Repaired > 0 || rep.Failed > 0 {
		w.log.Info("reconcile pass finished",
			zap.Int("checked", rep.Checked),
			zap.Int("repaired", rep.Repaired),
			zap.Int("conflicts", rep.Conflicts),
			zap.Int("failed", rep.Failed))
	}
}
