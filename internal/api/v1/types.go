// internal/api/v1/types.go
package v1

import "github.com/vmunix/spotarr/internal/download"

// historyResponse is the response for GET /downloads and the payload of
// each status stream message.
type historyResponse struct {
	History []download.Item `json:"history"`
}

// cancelRequest is the request body for POST /downloads/cancel.
type cancelRequest struct {
	URL string `json:"url"`
}

// syncRequest is the optional request body for POST /sync.
type syncRequest struct {
	Reason string `json:"reason,omitempty"`
}

// syncResponse is the response for POST /sync.
type syncResponse struct {
	Status string `json:"status"`
}

// EventResponse is the API representation of a persisted event.
type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityKey  string `json:"entity_key,omitempty"`
	Payload    string `json:"payload"`
	OccurredAt string `json:"occurred_at"`
}

// listEventsResponse is the response for GET /events.
type listEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
	Limit int             `json:"limit"`
}

// statusResponse is the response for GET /status.
type statusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Pending  int    `json:"pending"`
	History  int    `json:"history"`
	EventLog string `json:"event_log,omitempty"`
}
