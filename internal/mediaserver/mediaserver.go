// Package mediaserver talks to the Plex and Jellyfin servers that index the
// downloaded music.
package mediaserver

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// Refresher triggers a library rescan on a media server.
type Refresher interface {
	// Name identifies the server in logs.
	Name() string

	// RefreshLibrary asks the server to rescan its music library.
	RefreshLibrary(ctx context.Context) error
}

var (
	// ErrSectionNotFound indicates no Plex library section matched the configured name.
	ErrSectionNotFound = errors.New("library section not found")

	// ErrUnexpectedStatus indicates the server answered with a non-success status.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

const defaultTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// Ensure clients implement Refresher.
var (
	_ Refresher = (*PlexClient)(nil)
	_ Refresher = (*JellyfinClient)(nil)
)
