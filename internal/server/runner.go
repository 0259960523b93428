// Package server wires the download queue, the library sync pipeline and the
// HTTP API into one process lifecycle.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/spotarr/internal/adapters/mediasync"
	v1 "github.com/vmunix/spotarr/internal/api/v1"
	"github.com/vmunix/spotarr/internal/download"
	"github.com/vmunix/spotarr/internal/events"
	"github.com/vmunix/spotarr/internal/librarysync"
	"github.com/vmunix/spotarr/internal/mediaserver"
	"github.com/vmunix/spotarr/internal/playlist"
	"github.com/vmunix/spotarr/internal/spotdl"
)

// PlexConfig enables the Plex integration.
type PlexConfig struct {
	mediaserver.PlexConfig
	Scan           bool // Refresh the library section after a batch
	ImportPlaylist bool // Upload the generated playlist after the import delay
}

// JellyfinConfig enables the Jellyfin integration.
type JellyfinConfig struct {
	URL    string
	APIKey string
	Scan   bool
}

// Config for the server runner.
type Config struct {
	Addr            string
	Version         string
	Tool            download.ToolConfig
	ToolTimeout     time.Duration // 0 = no deadline
	Templates       map[download.Type]string
	NormalizePerms  bool
	M3UDir          string
	Sync            librarysync.Config
	Plex            *PlexConfig     // nil if not configured
	Jellyfin        *JellyfinConfig // nil if not configured
	ShutdownTimeout time.Duration
}

// Runner manages the long-lived components.
type Runner struct {
	db         *sql.DB
	config     Config
	logger     *slog.Logger
	toolRunner download.ToolRunner
	middleware func(http.Handler) http.Handler
}

// Option configures a Runner.
type Option func(*Runner)

// WithToolRunner replaces the subprocess runner used by the worker.
func WithToolRunner(tr download.ToolRunner) Option {
	return func(r *Runner) { r.toolRunner = tr }
}

// WithMiddleware wraps the HTTP handler.
func WithMiddleware(mw func(http.Handler) http.Handler) Option {
	return func(r *Runner) { r.middleware = mw }
}

// NewRunner creates a new runner. db backs the event log and may be nil to
// disable persistence.
func NewRunner(db *sql.DB, cfg Config, logger *slog.Logger, opts ...Option) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	r := &Runner{
		db:     db,
		config: cfg,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.toolRunner == nil {
		r.toolRunner = spotdl.NewRunner(cfg.ToolTimeout, logger)
	}
	return r
}

// Run listens on the configured address and serves until ctx is canceled.
func (r *Runner) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", r.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", r.config.Addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve starts all components on ln.
// It blocks until the context is canceled or an error occurs.
func (r *Runner) Serve(ctx context.Context, ln net.Listener) error {
	// Create event bus with persistence
	var eventLog *events.EventLog
	if r.db != nil {
		eventLog = events.NewEventLog(r.db)
	}
	bus := events.NewBus(eventLog, r.logger.With("component", "bus"))
	defer bus.Close()

	// Download queue
	queue := download.NewQueue()
	recorder := download.NewRecorder(download.NewHistory(), events.NewNotifier(bus, r.logger))
	gateway := download.NewGateway(queue, recorder, r.logger.With("component", "gateway"))
	worker := download.NewWorker(queue, recorder,
		download.NewResolver(r.config.Templates, r.config.NormalizePerms),
		r.toolRunner,
		playlist.NewPublisher(r.logger),
		download.WorkerConfig{Tool: r.config.Tool, M3UDir: r.config.M3UDir},
		r.logger.With("component", "worker"))

	// Library sync
	scheduler := librarysync.NewScheduler(r.logger)
	defer scheduler.Stop()
	pipeline := librarysync.New(r.config.Sync, r.targets(), scheduler, r.logger)
	adapter := mediasync.New(bus, pipeline, r.logger)

	// HTTP API
	api, err := v1.New(v1.ServerDeps{
		Downloads: gateway,
		Bus:       bus,
		EventLog:  eventLog,
	}, v1.Config{Version: r.config.Version}, r.logger.With("component", "api"))
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)
	var handler http.Handler = mux
	if r.middleware != nil {
		handler = r.middleware(mux)
	}
	srv := &http.Server{Handler: handler, ReadHeaderTimeout: 10 * time.Second}

	// Use errgroup to manage component lifecycle
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(ctx)
	})

	g.Go(func() error {
		r.logger.Info("starting adapter", "name", adapter.Name())
		return adapter.Start(ctx)
	})

	g.Go(func() error {
		r.logger.Info("http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		r.logger.Info("shutting down")
		queue.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), r.config.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// targets builds the media server targets from configuration. Both servers
// are refreshed before playlist generation; only Jellyfin is refreshed again
// afterwards since Plex receives the playlist through the delayed import.
func (r *Runner) targets() librarysync.Targets {
	var t librarysync.Targets

	if p := r.config.Plex; p != nil && (p.Scan || p.ImportPlaylist) {
		client := mediaserver.NewPlexClient(p.PlexConfig, r.logger)
		if p.Scan {
			t.Refresh = append(t.Refresh, client)
		}
		if p.ImportPlaylist {
			t.Importer = client
		}
	}

	if j := r.config.Jellyfin; j != nil && j.Scan {
		client := mediaserver.NewJellyfinClient(j.URL, j.APIKey, r.logger)
		t.Refresh = append(t.Refresh, client)
		t.PostRefresh = append(t.PostRefresh, client)
	}

	return t
}
