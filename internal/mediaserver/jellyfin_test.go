package mediaserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJellyfinClient_RefreshLibrary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/Library/Refresh", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("api_key"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewJellyfinClient(server.URL+"/", "secret", nil)
	require.NoError(t, client.RefreshLibrary(context.Background()))
	assert.Equal(t, "jellyfin", client.Name())
}

func TestJellyfinClient_RefreshLibraryRequiresNoContent(t *testing.T) {
	for _, code := range []int{http.StatusOK, http.StatusUnauthorized, http.StatusInternalServerError} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		}))

		err := NewJellyfinClient(server.URL, "k", nil).RefreshLibrary(context.Background())
		assert.True(t, errors.Is(err, ErrUnexpectedStatus), "status %d", code)
		server.Close()
	}
}

func TestJellyfinClient_ConnectionError(t *testing.T) {
	err := NewJellyfinClient("http://localhost:1", "k", nil).RefreshLibrary(context.Background())
	assert.Error(t, err)
}
