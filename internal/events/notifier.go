package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vmunix/spotarr/internal/download"
)

// Notifier publishes download notifications to the bus.
type Notifier struct {
	bus *Bus
	log *slog.Logger

	mu   sync.Mutex
	last map[string]download.Status
}

// NewNotifier creates a notifier publishing to bus.
func NewNotifier(bus *Bus, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		bus:  bus,
		log:  log.With("component", "notifier"),
		last: make(map[string]download.Status),
	}
}

// StatusChanged publishes the snapshot, then one DownloadStatusChanged per item
// whose status moved since the previous snapshot.
func (n *Notifier) StatusChanged(ctx context.Context, history []download.Item) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.publish(ctx, &HistoryChanged{
		BaseEvent: NewBaseEvent(EventHistoryChanged, EntityDownload, ""),
		History:   history,
	})

	for _, item := range history {
		prev, seen := n.last[item.URL]
		if seen && prev == item.Status {
			continue
		}
		n.last[item.URL] = item.Status
		n.publish(ctx, &DownloadStatusChanged{
			BaseEvent: NewBaseEvent(EventDownloadStatusChanged, EntityDownload, item.URL),
			URL:       item.URL,
			ItemType:  item.Type,
			Name:      item.Name,
			Artist:    item.Artist,
			From:      prev,
			To:        item.Status,
		})
	}
}

// QueueDrained publishes a QueueDrained event.
func (n *Notifier) QueueDrained(ctx context.Context, processed int) {
	n.publish(ctx, &QueueDrained{
		BaseEvent: NewBaseEvent(EventQueueDrained, EntityQueue, ""),
		Processed: processed,
	})
}

func (n *Notifier) publish(ctx context.Context, e Event) {
	if err := n.bus.Publish(ctx, e); err != nil {
		n.log.Error("publish failed", "type", e.EventType(), "error", err)
	}
}

var _ download.Notifier = (*Notifier)(nil)
