// internal/events/download.go
package events

import "github.com/vmunix/spotarr/internal/download"

// Entity types
const (
	EntityDownload = "download"
	EntityQueue    = "queue"
	EntitySync     = "sync"
)

// Event type constants
const (
	EventHistoryChanged        = "download.history.changed"
	EventDownloadStatusChanged = "download.status.changed"
	EventQueueDrained          = "queue.drained"
	EventSyncRequested         = "sync.requested"
	EventSyncCompleted         = "sync.completed"
)

// HistoryChanged carries the full ordered history after a write.
// It feeds live status streams and is not persisted.
type HistoryChanged struct {
	BaseEvent
	History []download.Item `json:"history"`
}

// Transient implements Transient.
func (HistoryChanged) Transient() bool { return true }

// DownloadStatusChanged is emitted when one item's status differs from the
// last status seen for its url.
type DownloadStatusChanged struct {
	BaseEvent
	URL      string          `json:"url"`
	ItemType download.Type   `json:"item_type"`
	Name     string          `json:"name,omitempty"`
	Artist   string          `json:"artist,omitempty"`
	From     download.Status `json:"from,omitempty"`
	To       download.Status `json:"to"`
}

// QueueDrained is emitted when the worker empties the queue after completing
// at least one item.
type QueueDrained struct {
	BaseEvent
	Processed int `json:"processed"`
}
