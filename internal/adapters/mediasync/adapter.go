// Package mediasync provides an adapter that runs the library sync pipeline
// when a batch of downloads finishes.
package mediasync

import (
	"context"
	"log/slog"

	"github.com/vmunix/spotarr/internal/events"
	"github.com/vmunix/spotarr/internal/librarysync"
)

// Syncer runs the post-download sync.
type Syncer interface {
	RunPostDownloadSync(ctx context.Context) librarysync.Report
}

// Adapter listens for QueueDrained and SyncRequested events and runs the sync
// pipeline for each. Runs happen on the adapter goroutine, never on the worker.
type Adapter struct {
	bus    *events.Bus
	syncer Syncer
	logger *slog.Logger
}

// New creates a new mediasync adapter.
func New(bus *events.Bus, syncer Syncer, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		bus:    bus,
		syncer: syncer,
		logger: logger.With("component", "mediasync-adapter"),
	}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return "mediasync"
}

// Start runs until the context is canceled or the bus is closed.
func (a *Adapter) Start(ctx context.Context) error {
	drainedCh := a.bus.Subscribe(events.EventQueueDrained, 16)
	requestedCh := a.bus.Subscribe(events.EventSyncRequested, 16)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-drainedCh:
			if !ok {
				return nil
			}
			if d, ok := evt.(*events.QueueDrained); ok {
				a.logger.Info("queue drained, starting sync", "processed", d.Processed)
			}
			a.run(ctx, evt.EventType())

		case evt, ok := <-requestedCh:
			if !ok {
				return nil
			}
			if r, ok := evt.(*events.SyncRequested); ok {
				a.logger.Info("sync requested", "reason", r.Reason)
			}
			a.run(ctx, evt.EventType())
		}
	}
}

func (a *Adapter) run(ctx context.Context, trigger string) {
	report := a.syncer.RunPostDownloadSync(ctx)
	if len(report.Errors) > 0 {
		a.logger.Warn("sync finished with errors", "trigger", trigger, "errors", report.Errors)
	}

	evt := &events.SyncCompleted{
		BaseEvent:       events.NewBaseEvent(events.EventSyncCompleted, events.EntitySync, ""),
		Trigger:         trigger,
		Refreshed:       report.Refreshed,
		Playlist:        report.Playlist,
		Entries:         report.Entries,
		ImportScheduled: report.ImportScheduled,
		Errors:          report.Errors,
	}
	if err := a.bus.Publish(ctx, evt); err != nil {
		a.logger.Error("failed to publish SyncCompleted", "error", err)
	}
}
