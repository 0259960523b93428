package librarysync

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Scheduler runs named one-shot tasks after a delay. Scheduling a name that is
// still pending replaces the earlier task.
type Scheduler struct {
	mu      sync.Mutex
	timers  map[string]*time.Timer
	ctx     context.Context
	cancel  context.CancelFunc
	running sync.WaitGroup
	stopped bool
	log     *slog.Logger
}

// NewScheduler creates a scheduler.
func NewScheduler(log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		timers: make(map[string]*time.Timer),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With("component", "scheduler"),
	}
}

// Schedule runs task once after delay. It returns false after Stop.
func (s *Scheduler) Schedule(name string, delay time.Duration, task func(ctx context.Context)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}

	if prev, ok := s.timers[name]; ok && prev.Stop() {
		s.running.Done()
		s.log.Debug("replaced pending task", "task", name)
	}

	s.running.Add(1)
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer s.running.Done()

		s.mu.Lock()
		if s.timers[name] == timer {
			delete(s.timers, name)
		}
		s.mu.Unlock()

		s.log.Debug("running task", "task", name)
		task(s.ctx)
	})
	s.timers[name] = timer
	s.log.Debug("task scheduled", "task", name, "delay", delay)
	return true
}

// Pending reports whether name is scheduled and has not started.
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// Stop cancels pending tasks and waits for running ones to return.
// Running tasks see their context canceled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	for name, timer := range s.timers {
		if timer.Stop() {
			s.running.Done()
		}
		delete(s.timers, name)
	}
	s.mu.Unlock()

	s.cancel()
	s.running.Wait()
}
