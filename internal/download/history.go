package download

import (
	"context"
	"fmt"
	"sync"
)

// History maps each url to its latest Item. Insertion order is display order
// and entries are never removed for the lifetime of the process.
//
// Every enqueue of a url starts a new generation. Worker writes carry the
// generation of the entry they came from and are refused once the url has been
// cancelled or enqueued again.
type History struct {
	mu    sync.RWMutex
	order []string
	items map[string]Item
	seqs  map[string]uint64
	next  uint64
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{items: make(map[string]Item), seqs: make(map[string]uint64)}
}

// Get returns the current record for url.
func (h *History) Get(url string) (Item, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	item, ok := h.items[url]
	return item, ok
}

// Put writes item (last write wins) and returns the snapshot taken under the same lock.
func (h *History) Put(item Item) []Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.putLocked(item)
	return h.snapshotLocked()
}

// Snapshot returns a copy of every record in insertion order.
func (h *History) Snapshot() []Item {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.snapshotLocked()
}

// Len returns the number of tracked urls.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.order)
}

func (h *History) putLocked(item Item) {
	if _, ok := h.items[item.URL]; !ok {
		h.order = append(h.order, item.URL)
	}
	h.items[item.URL] = item
}

func (h *History) nextSeq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	return h.next
}

// putSeq writes item as generation seq of its url.
func (h *History) putSeq(item Item, seq uint64) []Item {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.putLocked(item)
	h.seqs[item.URL] = seq
	return h.snapshotLocked()
}

// admits reports whether generation seq of url is current and not cancelled.
func (h *History) admits(url string, seq uint64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	item, ok := h.items[url]
	return ok && h.seqs[url] == seq && item.Status != StatusCancelled
}

func (h *History) snapshotLocked() []Item {
	out := make([]Item, 0, len(h.order))
	for _, url := range h.order {
		out = append(out, h.items[url])
	}
	return out
}

// cancel moves a pending item to Cancelled atomically.
func (h *History) cancel(url string) (Item, []Item, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	item, ok := h.items[url]
	if !ok {
		return Item{}, nil, fmt.Errorf("cancel %s: %w", url, ErrNotFound)
	}
	if !item.Status.CanTransitionTo(StatusCancelled) {
		return item, nil, fmt.Errorf("cancel %s (%s): %w", url, item.Status, ErrNotCancellable)
	}
	item.Status = StatusCancelled
	h.items[url] = item
	return item, h.snapshotLocked(), nil
}

// Recorder serializes history writes with their notifications so observers
// never receive an older snapshot after a newer one.
type Recorder struct {
	mu       sync.Mutex
	history  *History
	notifier Notifier
}

// NewRecorder creates a recorder. A nil notifier discards notifications.
func NewRecorder(history *History, notifier Notifier) *Recorder {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Recorder{history: history, notifier: notifier}
}

// History returns the underlying store.
func (r *Recorder) History() *History {
	return r.history
}

// Record writes item and publishes the resulting snapshot.
func (r *Recorder) Record(ctx context.Context, item Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifier.StatusChanged(ctx, r.history.Put(item))
}

// enqueue records item as a new generation of its url. push runs under the
// recorder lock with that generation; item is recorded only if push succeeds.
func (r *Recorder) enqueue(ctx context.Context, item Item, push func(seq uint64) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	seq := r.history.nextSeq()
	if !push(seq) {
		return false
	}
	r.notifier.StatusChanged(ctx, r.history.putSeq(item, seq))
	return true
}

// recordRun writes a status produced while running generation seq. The write is
// refused if the url was cancelled or enqueued again since.
func (r *Recorder) recordRun(ctx context.Context, item Item, seq uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.history.admits(item.URL, seq) {
		return false
	}
	r.notifier.StatusChanged(ctx, r.history.Put(item))
	return true
}

// Cancel marks a pending url as Cancelled and publishes the snapshot.
func (r *Recorder) Cancel(ctx context.Context, url string) (Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, snapshot, err := r.history.cancel(url)
	if err != nil {
		return item, err
	}
	r.notifier.StatusChanged(ctx, snapshot)
	return item, nil
}

func (r *Recorder) drained(ctx context.Context, processed int) {
	r.notifier.QueueDrained(ctx, processed)
}
