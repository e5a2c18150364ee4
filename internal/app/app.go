// Package app wires the engine together: the durable store, the remote
// client and the services on top, plus the external triggers (connectivity
// watcher, periodic timer) that drive the sync orchestrator.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/fieldops/fieldsync/internal/common"
	"github.com/fieldops/fieldsync/internal/config"
	"github.com/fieldops/fieldsync/internal/logging"
	"github.com/fieldops/fieldsync/internal/remote"
	"github.com/fieldops/fieldsync/internal/services"
	"github.com/fieldops/fieldsync/internal/store"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
	ModeUnknown Mode = "unknown"
)

type App struct {
	config *config.Config
	store  *store.Store
	remote remote.Client
	log    logging.Logger

	Cache   *services.CacheService
	Pending *services.PendingService
	Sync    *services.Orchestrator
	Cleanup *services.CleanupService

	mode Mode
}

func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	st, err := store.Open(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	rc := remote.NewHTTPClient(c.ServerEndpointAddr)

	return &App{
		config:  c,
		store:   st,
		remote:  rc,
		log:     log,
		Cache:   services.NewCacheService(st, rc, log),
		Pending: services.NewPendingService(st, log),
		Sync:    services.NewOrchestrator(st, rc, log),
		Cleanup: services.NewCleanupService(st, log),
		mode:    ModeUnknown,
	}, nil
}

func (a *App) Store() *store.Store {
	return a.store
}

func (a *App) Close() error {
	_ = a.remote.Close()
	return a.store.Close()
}

func (a *App) setMode(ctx context.Context, mode Mode) {
	if a.mode != mode {
		a.mode = mode
		a.log.Info(ctx, "connectivity changed", "mode", mode)
	}
}

// triggerSync runs one orchestrator pass, coalescing overlapping triggers.
func (a *App) triggerSync(ctx context.Context) {
	if _, err := a.Sync.Run(ctx); err != nil {
		if errors.Is(err, common.ErrSyncInProgress) {
			a.log.Debug(ctx, "sync trigger coalesced: pass already running")
			return
		}
		a.log.Error(ctx, "sync pass failed", "error", err)
	}
}

// Run performs an opportunistic retention sweep and then drives the engine
// from two tickers: a connectivity probe whose offline-to-online transition
// triggers a sync, and a periodic sync timer. Blocks until ctx is canceled.
func (a *App) Run(ctx context.Context) error {
	if _, err := a.Cleanup.CleanupSynced(ctx, a.config.RetentionDays); err != nil {
		a.log.Warn(ctx, "startup cleanup failed", "error", err)
	}

	probe := time.NewTicker(a.config.OnlineCheckInterval)
	defer probe.Stop()
	syncTick := time.NewTicker(a.config.SyncInterval)
	defer syncTick.Stop()

	for {
		select {
		case <-probe.C:
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			err := a.remote.Ping(pingCtx)
			cancel()

			if err != nil {
				a.setMode(ctx, ModeOffline)
				continue
			}
			wasOffline := a.mode != ModeOnline
			a.setMode(ctx, ModeOnline)
			if wasOffline {
				a.triggerSync(ctx)
			}

		case <-syncTick.C:
			if a.mode == ModeOnline {
				a.triggerSync(ctx)
			}

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
