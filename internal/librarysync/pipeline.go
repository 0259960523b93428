// Package librarysync runs the post-download sync: media server refreshes,
// local playlist generation, and the delayed Plex playlist import.
package librarysync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/vmunix/spotarr/internal/mediaserver"
	"github.com/vmunix/spotarr/internal/playlist"
)

// importTask names the deferred playlist import in the scheduler.
const importTask = "playlist-import"

// PlaylistImporter imports an m3u into a media server.
type PlaylistImporter interface {
	ImportPlaylist(ctx context.Context, path string) error
}

// Config holds pipeline settings.
type Config struct {
	GenerateM3U bool
	SourceDir   string // Folder scanned for the generated playlist
	M3UDir      string
	M3UName     string // File name without extension
	SortOrder   playlist.SortOrder
	Formats     []string
	ImportDelay time.Duration
}

// PlaylistPath returns the absolute path of the generated playlist.
func (c Config) PlaylistPath() string {
	name := strings.TrimSuffix(c.M3UName, ".m3u")
	if name == "" {
		name = "Spotarr"
	}
	path := filepath.Join(c.M3UDir, name+".m3u")
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// Targets are the media servers the pipeline talks to. Any of them may be empty.
type Targets struct {
	Refresh     []mediaserver.Refresher // Refreshed before generation
	PostRefresh []mediaserver.Refresher // Refreshed after generation to pick up the playlist
	Importer    PlaylistImporter        // Receives the generated playlist after ImportDelay
}

// Report summarizes one pipeline run.
type Report struct {
	Refreshed       []string
	Playlist        string
	Entries         int
	ImportScheduled bool
	Errors          []string
}

func (r *Report) fail(step string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", step, err))
}

// Pipeline runs the post-download sync. Runs are serialized.
type Pipeline struct {
	cfg       Config
	targets   Targets
	scheduler *Scheduler
	log       *slog.Logger

	mu sync.Mutex
}

// New creates a pipeline. scheduler runs the deferred import.
func New(cfg Config, targets Targets, scheduler *Scheduler, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		cfg:       cfg,
		targets:   targets,
		scheduler: scheduler,
		log:       log.With("component", "librarysync"),
	}
}

// RefreshLibrary asks target to rescan. Failures are logged and returned.
func (p *Pipeline) RefreshLibrary(ctx context.Context, target mediaserver.Refresher) error {
	p.log.Info("refreshing library", "target", target.Name())
	if err := target.RefreshLibrary(ctx); err != nil {
		p.log.Error("library refresh failed", "target", target.Name(), "error", err)
		return err
	}
	return nil
}

// GenerateLocalPlaylist writes the configured playlist from the source folder
// and returns its path and entry count.
func (p *Pipeline) GenerateLocalPlaylist() (string, int, error) {
	dest := p.cfg.PlaylistPath()
	n, err := playlist.GenerateLocal(p.cfg.SourceDir, dest, p.cfg.SortOrder, p.cfg.Formats)
	if err != nil {
		p.log.Error("playlist generation failed", "source", p.cfg.SourceDir, "dest", dest, "error", err)
		return dest, 0, err
	}
	p.log.Info("playlist generated", "path", dest, "entries", n, "sort", p.cfg.SortOrder)
	return dest, n, nil
}

// ImportPlaylist sends the generated playlist to the importer. Failures are
// logged and returned.
func (p *Pipeline) ImportPlaylist(ctx context.Context) error {
	if p.targets.Importer == nil {
		return nil
	}
	path := p.cfg.PlaylistPath()
	p.log.Info("importing playlist", "path", path)
	if err := p.targets.Importer.ImportPlaylist(ctx, path); err != nil {
		p.log.Error("playlist import failed", "path", path, "error", err)
		return err
	}
	return nil
}

// RunPostDownloadSync refreshes libraries, regenerates the playlist, refreshes
// again so the playlist is picked up, and schedules the playlist import. Each
// step is independent: a failure is recorded and the next step still runs.
func (p *Pipeline) RunPostDownloadSync(ctx context.Context) Report {
	p.mu.Lock()
	defer p.mu.Unlock()

	var report Report
	start := time.Now()

	for _, target := range p.targets.Refresh {
		if err := p.RefreshLibrary(ctx, target); err != nil {
			report.fail("refresh "+target.Name(), err)
			continue
		}
		report.Refreshed = append(report.Refreshed, target.Name())
	}

	if !p.cfg.GenerateM3U {
		p.log.Info("sync finished", "duration_ms", time.Since(start).Milliseconds(), "errors", len(report.Errors))
		return report
	}

	path, n, err := p.GenerateLocalPlaylist()
	if err != nil {
		report.fail("generate playlist", err)
	} else {
		report.Playlist, report.Entries = path, n

		for _, target := range p.targets.PostRefresh {
			if err := p.RefreshLibrary(ctx, target); err != nil {
				report.fail("refresh "+target.Name(), err)
				continue
			}
			report.Refreshed = append(report.Refreshed, target.Name())
		}

		if p.targets.Importer != nil && p.scheduler != nil {
			p.log.Info("delaying playlist import", "delay", p.cfg.ImportDelay)
			report.ImportScheduled = p.scheduler.Schedule(importTask, p.cfg.ImportDelay, func(ctx context.Context) {
				_ = p.ImportPlaylist(ctx)
			})
		}
	}

	p.log.Info("sync finished", "duration_ms", time.Since(start).Milliseconds(), "errors", len(report.Errors))
	return report
}
