// Package download runs the serialized download queue: requests are accepted by
// the Gateway, executed one at a time by the Worker, and tracked in History.
package download

import (
	"context"
	"strings"
)

// Type is the kind of music item being requested.
type Type string

const (
	TypeTrack    Type = "track"
	TypeAlbum    Type = "album"
	TypeArtist   Type = "artist"
	TypePlaylist Type = "playlist"
)

// Known reports whether t is one of the supported item types.
func (t Type) Known() bool {
	switch t {
	case TypeTrack, TypeAlbum, TypeArtist, TypePlaylist:
		return true
	}
	return false
}

// Item is one requested download and its latest status.
type Item struct {
	URL    string `json:"url"`
	Type   Type   `json:"type"`
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
	Status Status `json:"status"`
}

// Request is the enqueue payload accepted from callers.
type Request struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
}

func (r Request) item() Item {
	return Item{
		URL:    strings.TrimSpace(r.URL),
		Type:   Type(strings.ToLower(strings.TrimSpace(r.Type))),
		Name:   r.Name,
		Artist: r.Artist,
		Status: StatusPending,
	}
}

// Notifier receives status notifications. Implementations must not block.
type Notifier interface {
	// StatusChanged is called after every history write with the full ordered snapshot.
	StatusChanged(ctx context.Context, history []Item)
	// QueueDrained is called when the worker empties the queue after processing a batch.
	QueueDrained(ctx context.Context, processed int)
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) StatusChanged(context.Context, []Item) {}
func (NopNotifier) QueueDrained(context.Context, int)     {}
