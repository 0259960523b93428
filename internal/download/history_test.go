package download

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu        sync.Mutex
	snapshots [][]Item
	drained   []int
}

func (n *recordingNotifier) StatusChanged(_ context.Context, history []Item) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, history)
}

func (n *recordingNotifier) QueueDrained(_ context.Context, processed int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.drained = append(n.drained, processed)
}

func (n *recordingNotifier) last() []Item {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.snapshots) == 0 {
		return nil
	}
	return n.snapshots[len(n.snapshots)-1]
}

func TestHistory_PutPreservesInsertionOrder(t *testing.T) {
	h := NewHistory()
	h.Put(Item{URL: "b", Status: StatusPending})
	h.Put(Item{URL: "a", Status: StatusPending})
	h.Put(Item{URL: "b", Status: StatusComplete}) // update in place

	snap := h.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "b", snap[0].URL)
	assert.Equal(t, StatusComplete, snap[0].Status)
	assert.Equal(t, "a", snap[1].URL)
	assert.Equal(t, 2, h.Len())
}

func TestHistory_PutLastWriteWins(t *testing.T) {
	h := NewHistory()
	h.Put(Item{URL: "u", Name: "first", Artist: "x", Status: StatusPending})
	h.Put(Item{URL: "u", Name: "second", Status: StatusDownloading})

	got, ok := h.Get("u")
	require.True(t, ok)
	assert.Equal(t, "second", got.Name)
	assert.Empty(t, got.Artist, "no merge with the previous record")
}

func TestHistory_SnapshotIsACopy(t *testing.T) {
	h := NewHistory()
	h.Put(Item{URL: "u", Status: StatusPending})

	snap := h.Snapshot()
	snap[0].Status = StatusCancelled

	got, _ := h.Get("u")
	assert.Equal(t, StatusPending, got.Status)
}

func TestHistory_GetMissing(t *testing.T) {
	_, ok := NewHistory().Get("nope")
	assert.False(t, ok)
}

func TestRecorder_CancelPending(t *testing.T) {
	n := &recordingNotifier{}
	r := NewRecorder(NewHistory(), n)
	r.Record(context.Background(), Item{URL: "u", Status: StatusPending})

	item, err := r.Cancel(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, item.Status)
	assert.Equal(t, StatusCancelled, n.last()[0].Status)
}

func TestRecorder_CancelErrors(t *testing.T) {
	r := NewRecorder(NewHistory(), nil)

	_, err := r.Cancel(context.Background(), "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	r.Record(context.Background(), Item{URL: "busy", Status: StatusDownloading})
	_, err = r.Cancel(context.Background(), "busy")
	assert.True(t, errors.Is(err, ErrNotCancellable))

	got, _ := r.History().Get("busy")
	assert.Equal(t, StatusDownloading, got.Status, "failed cancel must not modify the record")
}

func TestRecorder_SnapshotsNeverGoBackwards(t *testing.T) {
	n := &recordingNotifier{}
	r := NewRecorder(NewHistory(), n)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Record(context.Background(), Item{URL: fmt.Sprintf("u%d", i), Status: StatusPending})
		}(i)
	}
	wg.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.snapshots, 50)
	for i, snap := range n.snapshots {
		assert.Len(t, snap, i+1, "snapshot %d should contain every earlier write", i)
	}
}

func TestRecorder_RecordRunRefusesStaleGenerations(t *testing.T) {
	ctx := context.Background()
	r := NewRecorder(NewHistory(), nil)
	var seqs []uint64
	push := func(seq uint64) bool {
		seqs = append(seqs, seq)
		return true
	}

	require.True(t, r.enqueue(ctx, Item{URL: "u", Status: StatusPending}, push))
	require.True(t, r.recordRun(ctx, Item{URL: "u", Status: StatusDownloading}, seqs[0]))

	require.True(t, r.enqueue(ctx, Item{URL: "u", Status: StatusPending}, push))
	assert.False(t, r.recordRun(ctx, Item{URL: "u", Status: StatusComplete}, seqs[0]),
		"older generation must not overwrite the newer entry")

	_, err := r.Cancel(ctx, "u")
	require.NoError(t, err)
	assert.False(t, r.recordRun(ctx, Item{URL: "u", Status: StatusDownloading}, seqs[1]),
		"cancelled generation must not start")

	got, _ := r.History().Get("u")
	assert.Equal(t, StatusCancelled, got.Status)
}

func TestRecorder_EnqueueNotRecordedWhenPushFails(t *testing.T) {
	r := NewRecorder(NewHistory(), nil)
	ok := r.enqueue(context.Background(), Item{URL: "u", Status: StatusPending}, func(uint64) bool { return false })
	assert.False(t, ok)
	assert.Equal(t, 0, r.History().Len())
}
