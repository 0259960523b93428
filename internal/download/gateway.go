package download

import (
	"context"
	"fmt"
	"log/slog"
)

// Gateway is the enqueue side of the download queue.
type Gateway struct {
	queue    *Queue
	recorder *Recorder
	log      *slog.Logger
}

// NewGateway creates a gateway feeding queue and recording into recorder.
func NewGateway(queue *Queue, recorder *Recorder, log *slog.Logger) *Gateway {
	if log == nil {
		log = slog.Default()
	}
	return &Gateway{queue: queue, recorder: recorder, log: log}
}

// Enqueue accepts a request, queues it as Pending and publishes the new history.
// It never waits on the worker.
func (g *Gateway) Enqueue(ctx context.Context, req Request) (Item, error) {
	item := req.item()
	if item.URL == "" {
		return Item{}, fmt.Errorf("%w: url is required", ErrInvalidRequest)
	}

	g.log.Info("download requested", "url", item.URL, "type", item.Type, "name", item.Name, "artist", item.Artist)

	// Push and history write happen under the recorder lock so the worker can
	// never record Downloading before this Pending write lands.
	pushed := g.recorder.enqueue(ctx, item, func(seq uint64) bool {
		return g.queue.Push(Entry{URL: item.URL, Item: item, Seq: seq})
	})
	if !pushed {
		return Item{}, fmt.Errorf("enqueue %s: %w", item.URL, ErrQueueClosed)
	}
	return item, nil
}

// Cancel marks a queued item as Cancelled. The worker skips it at dequeue time;
// an item that is already downloading cannot be cancelled.
func (g *Gateway) Cancel(ctx context.Context, url string) (Item, error) {
	item, err := g.recorder.Cancel(ctx, url)
	if err != nil {
		return item, err
	}
	g.log.Info("download cancelled", "url", url)
	return item, nil
}

// History returns the current ordered snapshot.
func (g *Gateway) History() []Item {
	return g.recorder.History().Snapshot()
}

// Pending returns the number of queued entries not yet picked up by the worker.
func (g *Gateway) Pending() int {
	return g.queue.Len()
}
