package v1

import (
	"context"
	"errors"

	"github.com/vmunix/spotarr/internal/download"
	"github.com/vmunix/spotarr/internal/events"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// DownloadGateway defines the enqueue side of the download queue.
type DownloadGateway interface {
	Enqueue(ctx context.Context, req download.Request) (download.Item, error)
	Cancel(ctx context.Context, url string) (download.Item, error)
	History() []download.Item
	Pending() int
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Downloads DownloadGateway

	// Optional dependencies (nil if not configured)
	Bus      *events.Bus      // Optional: sync trigger and live status stream
	EventLog *events.EventLog // Optional: for event audit log
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Downloads == nil {
		return errors.New("download gateway is required")
	}
	return nil
}
