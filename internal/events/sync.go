package events

// SyncRequested is emitted when a library sync is asked for outside the
// queue-drained trigger.
type SyncRequested struct {
	BaseEvent
	Reason string `json:"reason"` // "api", "cli"
}

// SyncCompleted is emitted after the post-download sync pipeline runs.
type SyncCompleted struct {
	BaseEvent
	Trigger         string   `json:"trigger"` // event type that started the run
	Refreshed       []string `json:"refreshed,omitempty"`
	Playlist        string   `json:"playlist,omitempty"`
	Entries         int      `json:"entries"`
	ImportScheduled bool     `json:"import_scheduled"`
	Errors          []string `json:"errors,omitempty"`
}
