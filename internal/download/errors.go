package download

import "errors"

// Sentinel errors for the download package.
var (
	// ErrInvalidRequest is returned when an enqueue request is rejected.
	ErrInvalidRequest = errors.New("invalid download request")

	// ErrNotFound is returned when a url has no history entry.
	ErrNotFound = errors.New("download not found")

	// ErrNotCancellable is returned when cancelling an item that is no longer pending.
	ErrNotCancellable = errors.New("download is not pending")

	// ErrQueueClosed is returned by Pop after the queue has been closed and drained.
	ErrQueueClosed = errors.New("queue closed")
)
