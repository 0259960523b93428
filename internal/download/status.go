package download

// Status tracks an item through the download lifecycle.
type Status string

const (
	StatusPending     Status = "Pending"
	StatusDownloading Status = "Downloading"
	StatusComplete    Status = "Complete"
	StatusFailed      Status = "Failed"
	StatusError       Status = "Error"
	StatusCancelled   Status = "Cancelled"
)

// validTransitions defines allowed state transitions.
// Key is the "from" status, value is list of valid "to" statuses.
var validTransitions = map[Status][]Status{
	StatusPending:     {StatusDownloading, StatusCancelled, StatusError},
	StatusDownloading: {StatusComplete, StatusFailed, StatusError},
	StatusComplete:    {},
	StatusFailed:      {},
	StatusError:       {},
	StatusCancelled:   {},
}

// CanTransitionTo returns true if transitioning from s to target is valid.
func (s Status) CanTransitionTo(target Status) bool {
	valid, ok := validTransitions[s]
	if !ok {
		return false
	}
	for _, v := range valid {
		if v == target {
			return true
		}
	}
	return false
}

// IsTerminal returns true if this status has no valid outgoing transitions.
// A terminal item can still be re-enqueued, which starts a new lifecycle.
func (s Status) IsTerminal() bool {
	valid, ok := validTransitions[s]
	return ok && len(valid) == 0
}
