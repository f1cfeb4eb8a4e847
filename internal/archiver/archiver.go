package archiver

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/driftsip/orderdesk/internal/config"
	ordersvc "github.com/driftsip/orderdesk/internal/service/order"
)

// Archiver runs the periodic order sweeps: archiving stale active orders
// once per interval, and purging orders whose scheduled-deletion retention
// has elapsed. Sweep failures are logged and never propagated; nothing
// waits on a sweep.
type Archiver struct {
	svc    *ordersvc.Service
	cfg    config.Archiver
	logger *zap.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an Archiver.
func New(svc *ordersvc.Service, cfg config.Config, logger *zap.Logger) *Archiver {
	return &Archiver{
		svc:    svc,
		cfg:    cfg.Archiver,
		logger: logger,
	}
}

// Module wires the archiver into the Fx lifecycle.
var Module = fx.Options(
	fx.Provide(New),
	fx.Invoke(func(lc fx.Lifecycle, a *Archiver) {
		lc.Append(fx.Hook{
			OnStart: a.start,
			OnStop:  a.stop,
		})
	}),
)

func (a *Archiver) start(context.Context) error {
	if !a.cfg.Enabled {
		a.logger.Info("archiver disabled")
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.wg.Add(2)
	go func() {
		defer a.wg.Done()
		a.loop(runCtx, a.cfg.SweepInterval, a.ArchiveOnce)
	}()
	go func() {
		defer a.wg.Done()
		a.loop(runCtx, a.cfg.PurgeInterval, a.PurgeOnce)
	}()

	a.logger.Info("archiver started",
		zap.Duration("archive_interval", a.cfg.SweepInterval),
		zap.Duration("purge_interval", a.cfg.PurgeInterval),
	)
	return nil
}

func (a *Archiver) stop(ctx context.Context) error {
	if a.cancel == nil {
		return nil
	}
	a.cancel()
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		a.logger.Info("archiver stopped")
		return nil
	}
}

func (a *Archiver) loop(ctx context.Context, interval time.Duration, sweep func(context.Context)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}

// ArchiveOnce runs a single archive sweep.
func (a *Archiver) ArchiveOnce(ctx context.Context) {
	n, err := a.svc.ArchiveStale(ctx, time.Now())
	if err != nil {
		a.logger.Error("archive sweep failed", zap.Error(err))
		return
	}
	a.logger.Info("archive sweep finished", zap.Int64("orders_archived", n))
}

// PurgeOnce runs a single purge sweep for scheduled deletions.
func (a *Archiver) PurgeOnce(ctx context.Context) {
	n, err := a.svc.PurgeScheduled(ctx, time.Now())
	if err != nil {
		a.logger.Error("purge sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		a.logger.Info("purge sweep finished", zap.Int64("orders_purged", n))
	}
}
