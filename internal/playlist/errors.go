package playlist

import "errors"

var (
	// ErrNotFound indicates the tool-written m3u was not at any candidate path.
	ErrNotFound = errors.New("playlist file not found")

	// ErrSourceDir indicates the folder to scan is missing or not a directory.
	ErrSourceDir = errors.New("playlist source folder unavailable")
)
