package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vmunix/spotarr/internal/config"
	"github.com/vmunix/spotarr/internal/download"
	"github.com/vmunix/spotarr/internal/events"
	"github.com/vmunix/spotarr/internal/librarysync"
	"github.com/vmunix/spotarr/internal/mediaserver"
	"github.com/vmunix/spotarr/internal/migrations"
	"github.com/vmunix/spotarr/internal/playlist"
	"github.com/vmunix/spotarr/internal/server"
	"github.com/vmunix/spotarr/internal/spotdl"
)

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 200 { // Only capture first WriteHeader call
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer for
// flushing event streams.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: 200}
			next.ServeHTTP(wrapped, r)
			log.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// runnerConfig maps the file configuration onto the runner.
func runnerConfig(cfg *config.Config) server.Config {
	out := server.Config{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Version: version,
		Tool: download.ToolConfig{
			Binary:    cfg.Downloads.Tool,
			LogLevel:  cfg.Downloads.LogLevel,
			ExtraArgs: cfg.Downloads.ExtraArgs,
		},
		ToolTimeout: cfg.Downloads.Timeout,
		Templates: map[download.Type]string{
			download.TypeTrack:    cfg.Downloads.Output.Track,
			download.TypeAlbum:    cfg.Downloads.Output.Album,
			download.TypeArtist:   cfg.Downloads.Output.Artist,
			download.TypePlaylist: cfg.Downloads.Output.Playlist,
		},
		NormalizePerms: cfg.Downloads.ShouldNormalizePermissions(),
		M3UDir:         cfg.Downloads.M3UDir,
		Sync: librarysync.Config{
			GenerateM3U: cfg.Sync.ShouldGenerateM3U(),
			SourceDir:   cfg.Sync.SourceDir,
			M3UDir:      cfg.Sync.M3UDir,
			M3UName:     cfg.Sync.M3UName,
			SortOrder:   playlist.ParseSortOrder(cfg.Sync.SortOrder),
			Formats:     cfg.Sync.Formats,
			ImportDelay: cfg.Sync.ImportDelay,
		},
		ShutdownTimeout: 30 * time.Second,
	}

	if p := cfg.MediaServers.Plex; p != nil {
		out.Plex = &server.PlexConfig{
			PlexConfig: mediaserver.PlexConfig{
				URL:        p.URL,
				Token:      p.Token,
				Library:    p.Library,
				SectionID:  p.SectionID,
				LocalPath:  p.LocalPath,
				RemotePath: p.RemotePath,
			},
			Scan:           p.Scan,
			ImportPlaylist: p.ImportPlaylist,
		}
	}
	if j := cfg.MediaServers.Jellyfin; j != nil {
		out.Jellyfin = &server.JellyfinConfig{URL: j.URL, APIKey: j.APIKey, Scan: j.Scan}
	}
	return out
}

// checkTool logs the download tool's version. A missing tool is not fatal:
// requests are still accepted and fail individually until it is installed.
func checkTool(ctx context.Context, logger *slog.Logger, binary string) bool {
	version, err := spotdl.NewRunner(10*time.Second, logger).Version(ctx, binary)
	if err != nil {
		logger.Warn("download tool check failed", "tool", binary, "error", err)
		return false
	}
	logger.Info("download tool found", "tool", binary, "version", version)
	return true
}

func runServer(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	// Create logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Server.LogLevel),
	}))
	slog.SetDefault(logger)

	// Ensure database directory exists
	dbDir := filepath.Dir(cfg.Database.Path)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return fmt.Errorf("create db dir: %w", err)
	}

	// Open database
	db, err := sql.Open("sqlite", cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	// Run migrations
	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	// The event log is an audit trail only; old entries are dropped at startup.
	if pruned, err := events.NewEventLog(db).Prune(events.Retention); err != nil {
		logger.Warn("event log prune failed", "error", err)
	} else if pruned > 0 {
		logger.Info("event log pruned", "removed", pruned)
	}

	rcfg := runnerConfig(cfg)
	logger.Info("server starting",
		"addr", rcfg.Addr,
		"database", cfg.Database.Path,
		"tool", rcfg.Tool.Binary,
		"plex", rcfg.Plex != nil,
		"jellyfin", rcfg.Jellyfin != nil,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checkTool(ctx, logger, rcfg.Tool.Binary)

	runner := server.NewRunner(db, rcfg, logger, server.WithMiddleware(logRequests(logger)))
	if err := runner.Run(ctx); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
