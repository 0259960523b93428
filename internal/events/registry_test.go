// internal/events/registry_test.go
package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/spotarr/internal/download"
)

func TestRegistry_Unmarshal(t *testing.T) {
	registry := NewRegistry()
	registry.Register(EventDownloadStatusChanged, func() Event { return &DownloadStatusChanged{} })

	raw := RawEvent{
		EventType: EventDownloadStatusChanged,
		Payload:   `{"type":"download.status.changed","entity_type":"download","entity_key":"u1","occurred_at":"2024-01-01T00:00:00Z","url":"u1","item_type":"playlist","name":"My Mix","from":"pending","to":"downloading"}`,
	}

	event, err := registry.Unmarshal(raw)
	require.NoError(t, err)

	changed, ok := event.(*DownloadStatusChanged)
	require.True(t, ok)
	assert.Equal(t, "u1", changed.EntityKey())
	assert.Equal(t, download.TypePlaylist, changed.ItemType)
	assert.Equal(t, download.StatusPending, changed.From)
	assert.Equal(t, download.StatusDownloading, changed.To)
}

func TestRegistry_UnmarshalUnknownType(t *testing.T) {
	registry := NewRegistry()

	raw := RawEvent{
		EventType: "unknown.event",
		Payload:   `{}`,
	}

	_, err := registry.Unmarshal(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event type")
}

func TestRegistry_UnmarshalInvalidJSON(t *testing.T) {
	registry := NewRegistry()
	registry.Register(EventQueueDrained, func() Event { return &QueueDrained{} })

	raw := RawEvent{
		EventType: EventQueueDrained,
		Payload:   `{invalid json`,
	}

	_, err := registry.Unmarshal(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal event payload")
}

func TestDefaultRegistry(t *testing.T) {
	registry := DefaultRegistry()

	eventTypes := []string{
		EventHistoryChanged,
		EventDownloadStatusChanged,
		EventQueueDrained,
		EventSyncRequested,
		EventSyncCompleted,
	}

	for _, eventType := range eventTypes {
		t.Run(eventType, func(t *testing.T) {
			raw := RawEvent{
				EventType: eventType,
				Payload:   `{"type":"` + eventType + `","entity_type":"download","occurred_at":"2024-01-01T00:00:00Z"}`,
			}
			event, err := registry.Unmarshal(raw)
			require.NoError(t, err, "Failed to unmarshal %s", eventType)
			assert.Equal(t, eventType, event.EventType())
		})
	}
}
