package main

import (
	"bytes"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/spotarr/internal/config"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a much longer title", 10, "a much ..."},
		{"Sigur Rós – Ágætis byrjun", 12, "Sigur Rós..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, truncate(tt.in, tt.n), tt.in)
	}
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "never", formatTimeAgo(0))
	assert.Equal(t, "just now", formatTimeAgo(now.Unix()))
	assert.Equal(t, "5m ago", formatTimeAgo(now.Add(-5*time.Minute-time.Second).Unix()))
	assert.Equal(t, "1h ago", formatTimeAgo(now.Add(-61*time.Minute).Unix()))
	assert.Equal(t, "3d ago", formatTimeAgo(now.Add(-73*time.Hour).Unix()))
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Band - Song", describe(DownloadItem{URL: "u", Name: "Song", Artist: "Band"}))
	assert.Equal(t, "Song", describe(DownloadItem{URL: "u", Name: "Song"}))
	assert.Equal(t, "Band", describe(DownloadItem{URL: "u", Artist: "Band"}))
	assert.Equal(t, "u", describe(DownloadItem{URL: "u"}))
}

func TestFilterItems(t *testing.T) {
	items := []DownloadItem{
		{URL: "u1", Status: "Complete"},
		{URL: "u2", Status: "Downloading"},
		{URL: "u3", Status: "Pending"},
		{URL: "u4", Status: "Failed"},
	}

	urls := func(items []DownloadItem) []string {
		out := []string{}
		for _, i := range items {
			out = append(out, i.URL)
		}
		return out
	}

	assert.Equal(t, []string{"u2", "u3"}, urls(filterItems(items, false, "")))
	assert.Equal(t, []string{"u1", "u2", "u3", "u4"}, urls(filterItems(items, true, "")))
	assert.Equal(t, []string{"u4"}, urls(filterItems(items, false, "failed")))
	assert.Empty(t, filterItems(items, true, "cancelled"))
}

func TestPrintQueue(t *testing.T) {
	var buf bytes.Buffer
	printQueue(&buf, nil, false)
	assert.Equal(t, "No active downloads\n", buf.String())

	buf.Reset()
	printQueue(&buf, []DownloadItem{{URL: "u1", Type: "playlist", Name: "My Mix", Status: "Pending"}}, false)
	assert.Contains(t, buf.String(), "Downloads (1)")
	assert.Contains(t, buf.String(), "My Mix")
	assert.Contains(t, buf.String(), "Pending")
}

func TestAddCommand(t *testing.T) {
	ms := newMockServer(t).
		ExpectPath("/api/v1/downloads").
		ExpectPOST().
		RespondJSON(http.StatusCreated, DownloadItem{URL: "u1", Type: "album", Name: "LP", Artist: "Band", Status: "Pending"})
	srv := ms.Build()

	out, err := runCommand(t, "--server", srv.URL, "add", "-t", "Album", "-n", "LP", "-a", "Band", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Queued album Band - LP (Pending)\n", out)
	assert.Equal(t, "album", ms.Body()["type"])
}

func TestAddCommand_RequiresURL(t *testing.T) {
	_, err := runCommand(t, "add")
	require.Error(t, err)
}

func TestCancelCommand(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/downloads/cancel").
		RespondJSON(http.StatusOK, DownloadItem{URL: "u1", Status: "Cancelled"}).
		Build()

	out, err := runCommand(t, "--server", srv.URL, "cancel", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Cancelled u1\n", out)
}

func TestQueueCommand(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/downloads").
		RespondJSON(http.StatusOK, HistoryResponse{History: []DownloadItem{
			{URL: "u1", Type: "track", Status: "Complete"},
			{URL: "u2", Type: "track", Name: "Next", Status: "Pending"},
		}}).
		Build()

	out, err := runCommand(t, "--server", srv.URL, "queue")
	require.NoError(t, err)
	assert.Contains(t, out, "Next")
	assert.NotContains(t, out, "Complete")

	out, err = runCommand(t, "--server", srv.URL, "queue", "--all")
	require.NoError(t, err)
	assert.Contains(t, out, "Complete")
}

func TestSyncCommand(t *testing.T) {
	srv := newMockServer(t).
		ExpectPath("/api/v1/sync").
		RespondJSON(http.StatusAccepted, SyncResponse{Status: "scheduled"}).
		Build()

	out, err := runCommand(t, "--server", srv.URL, "sync")
	require.NoError(t, err)
	assert.Equal(t, "Library sync scheduled\n", out)
}

func TestStatusCommand_ServerDown(t *testing.T) {
	withServerURL(t, "http://127.0.0.1:1")
	_, err := runCommand(t, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status check failed")
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "spotarr dev\n", out)
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "spotarr", "config.toml")

	out, err := runCommand(t, "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultContent(), string(content))

	_, err = runCommand(t, "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, os.WriteFile(path, []byte("# edited"), 0644))
	_, err = runCommand(t, "init", "--force", path)
	require.NoError(t, err)
	content, _ = os.ReadFile(path)
	assert.Equal(t, config.DefaultContent(), string(content))
}

func TestConfigTestCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, config.WriteDefault(path, false))
	t.Setenv("PLEX_TOKEN", "tok")
	t.Setenv("JELLYFIN_API_KEY", "key")

	out, err := runCommand(t, "config", "test", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid!")
	assert.Contains(t, out, "Server:     0.0.0.0:8686")
}

func TestConfigTestCommand_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nport = 0\n[sync]\nsort_order = \"random\"\n"), 0644))

	out, err := runCommand(t, "config", "test", path)
	require.Error(t, err)
	assert.Contains(t, out, "Validation errors:")
	assert.Contains(t, out, "downloads.output.track")
	assert.Contains(t, out, "  [sync]\n    - sync.sort_order")
	assert.Less(t, strings.Index(out, "[downloads]"), strings.Index(out, "[sync]"), "sections follow file order")
}
