package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// PlaylistPublisher relocates a tool-written m3u and rewrites it to absolute paths.
type PlaylistPublisher interface {
	Publish(name, sourceDir, destDir string) (string, error)
}

// WorkerConfig holds worker settings.
type WorkerConfig struct {
	Tool   ToolConfig
	M3UDir string // Canonical destination for playlist m3u files
}

// Worker is the single consumer of the download queue. Items are processed
// strictly one at a time.
type Worker struct {
	queue     *Queue
	recorder  *Recorder
	resolver  *Resolver
	runner    ToolRunner
	publisher PlaylistPublisher
	cfg       WorkerConfig
	log       *slog.Logger

	completed int // items completed since the last drain notification
}

// NewWorker creates a worker. publisher may be nil to skip m3u publishing.
func NewWorker(queue *Queue, recorder *Recorder, resolver *Resolver, runner ToolRunner,
	publisher PlaylistPublisher, cfg WorkerConfig, log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	return &Worker{
		queue:     queue,
		recorder:  recorder,
		resolver:  resolver,
		runner:    runner,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
	}
}

// Run consumes the queue until ctx is canceled or the queue is closed and empty.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("worker started")
	for {
		e, err := w.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueClosed) || ctx.Err() != nil {
				w.log.Info("worker stopped")
				return nil
			}
			return fmt.Errorf("pop: %w", err)
		}

		w.process(ctx, e)

		if w.queue.Len() == 0 && w.completed > 0 {
			w.log.Info("queue drained", "completed", w.completed)
			w.recorder.drained(ctx, w.completed)
			w.completed = 0
		}
	}
}

// process handles one dequeued entry. It always acknowledges the entry and
// never lets a failure escape.
func (w *Worker) process(ctx context.Context, e Entry) {
	defer w.queue.Done()
	item := e.Item
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("process downloads error", "url", e.URL, "panic", r)
			item.Status = StatusError
			w.recorder.recordRun(ctx, item, e.Seq)
		}
	}()

	if !w.recorder.History().admits(e.URL, e.Seq) {
		w.skip(e.URL)
		return
	}

	status, ok := w.download(ctx, e, &item)
	if !ok {
		w.skip(e.URL)
		return
	}
	item.Status = status
	if status == StatusComplete {
		w.completed++
	}
	if !w.recorder.recordRun(ctx, item, e.Seq) {
		w.log.Info("download superseded, result not recorded", "url", e.URL, "status", status)
	}
}

func (w *Worker) skip(url string) {
	if current, ok := w.recorder.History().Get(url); ok && current.Status == StatusCancelled {
		w.log.Info("skipping cancelled download", "url", url)
		return
	}
	w.log.Info("skipping superseded download", "url", url)
}

// download runs the tool for the entry and returns its terminal status.
// Downloading is recorded once the output directory exists; ok is false if that
// write was refused because the url was cancelled or enqueued again meanwhile.
func (w *Worker) download(ctx context.Context, e Entry, item *Item) (status Status, ok bool) {
	url := e.URL
	dir, resolved := w.resolver.Resolve(*item)
	if !resolved {
		w.log.Warn("output template could not be resolved, using it literally",
			"url", url, "template", dir)
	}

	warning, err := w.resolver.EnsureDir(dir)
	if err != nil {
		w.log.Error("process downloads error", "url", url, "error", err)
		return StatusError, true
	}
	if warning != nil {
		w.log.Warn("could not normalize directory permissions", "dir", dir, "error", warning)
	}

	item.Status = StatusDownloading
	if !w.recorder.recordRun(ctx, *item, e.Seq) {
		return "", false
	}

	cmd := BuildCommand(w.cfg.Tool, *item, dir)
	w.log.Info("downloading", "url", url, "command", cmd.String(), "dir", dir)

	code, err := w.runner.Run(ctx, cmd, func(line string) {
		w.log.Info("spotdl output", "url", url, "line", line)
	})
	if err != nil {
		w.log.Error("process downloads error", "url", url, "error", err)
		return StatusError, true
	}
	if code != 0 {
		w.log.Error("download tool failed", "url", url, "exit_code", code)
		return StatusFailed, true
	}

	if item.Type == TypePlaylist {
		w.publishPlaylist(url, item.Name, dir)
	}
	return StatusComplete, true
}

// publishPlaylist is best effort: failures are logged and never change status.
func (w *Worker) publishPlaylist(url, name, dir string) {
	if w.publisher == nil || w.cfg.M3UDir == "" {
		return
	}
	fileName := PlaylistFileName(name)
	dest, err := w.publisher.Publish(fileName, dir, w.cfg.M3UDir)
	if err != nil {
		w.log.Warn("playlist not published", "url", url, "m3u", fileName, "error", err)
		return
	}
	w.log.Info("playlist published", "url", url, "path", dest)
}
