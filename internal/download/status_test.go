package download

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo_ValidTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusDownloading},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusError}, // output dir could not be created
		{StatusDownloading, StatusComplete},
		{StatusDownloading, StatusFailed},
		{StatusDownloading, StatusError},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.True(t, tt.from.CanTransitionTo(tt.to),
				"%s should be able to transition to %s", tt.from, tt.to)
		})
	}
}

func TestCanTransitionTo_InvalidTransitions(t *testing.T) {
	tests := []struct {
		from Status
		to   Status
	}{
		{StatusPending, StatusComplete},      // skip downloading
		{StatusDownloading, StatusCancelled}, // in-flight downloads cannot be cancelled
		{StatusDownloading, StatusPending},
		{StatusComplete, StatusDownloading},
		{StatusFailed, StatusDownloading},
		{StatusCancelled, StatusDownloading},
		{Status("bogus"), StatusDownloading},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.False(t, tt.from.CanTransitionTo(tt.to),
				"%s should NOT be able to transition to %s", tt.from, tt.to)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusComplete, StatusFailed, StatusError, StatusCancelled}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
	}

	active := []Status{StatusPending, StatusDownloading, Status("unknown")}
	for _, s := range active {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestType_Known(t *testing.T) {
	for _, typ := range []Type{TypeTrack, TypeAlbum, TypeArtist, TypePlaylist} {
		assert.True(t, typ.Known(), typ)
	}
	assert.False(t, Type("podcast").Known())
	assert.False(t, Type("").Known())
}
