package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/spotarr/internal/download"
	"github.com/vmunix/spotarr/internal/librarysync"
	"github.com/vmunix/spotarr/internal/mediaserver"
	"github.com/vmunix/spotarr/internal/migrations"
	"github.com/vmunix/spotarr/internal/playlist"
	"github.com/vmunix/spotarr/internal/spotdl"
)

// fakeTool writes a file named after the item into the working directory
// instead of running the real download tool.
type fakeTool struct {
	mu    sync.Mutex
	calls []spotdl.Command
}

func (f *fakeTool) Run(_ context.Context, cmd spotdl.Command, sink spotdl.LineFunc) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	sink("Downloaded " + cmd.Args[len(cmd.Args)-1])
	name := filepath.Base(cmd.Args[len(cmd.Args)-1]) + ".mp3"
	if err := os.WriteFile(filepath.Join(cmd.Dir, name), []byte("audio"), 0644); err != nil {
		return 1, nil
	}
	return 0, nil
}

func (f *fakeTool) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(migrations.InitialSQL)
	require.NoError(t, err)
	return db
}

func startRunner(t *testing.T, r *Runner) (baseURL string, stop func() error) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- r.Serve(ctx, ln) }()

	return "http://" + ln.Addr().String(), func() error {
		cancel()
		select {
		case err := <-errCh:
			return err
		case <-time.After(5 * time.Second):
			t.Fatal("runner did not stop")
			return nil
		}
	}
}

func getHistory(t *testing.T, baseURL string) []download.Item {
	t.Helper()
	resp, err := http.Get(baseURL + "/api/v1/downloads")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		History []download.Item `json:"history"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body.History
}

func TestRunner_DownloadThenSync(t *testing.T) {
	tmp := t.TempDir()
	tracks := filepath.Join(tmp, "tracks")
	m3uDir := filepath.Join(tmp, "m3u")

	var refreshes atomic.Int32
	jellyfin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/Library/Refresh" && r.URL.Query().Get("api_key") == "key" {
			refreshes.Add(1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer jellyfin.Close()

	tool := &fakeTool{}
	r := NewRunner(setupTestDB(t), Config{
		Version:   "test",
		Templates: map[download.Type]string{download.TypeTrack: tracks},
		M3UDir:    m3uDir,
		Sync: librarysync.Config{
			GenerateM3U: true,
			SourceDir:   tracks,
			M3UDir:      m3uDir,
			M3UName:     "Spotarr",
			SortOrder:   playlist.SortNameAsc,
			Formats:     playlist.DefaultFormats,
			ImportDelay: time.Second,
		},
		Jellyfin: &JellyfinConfig{URL: jellyfin.URL, APIKey: "key", Scan: true},
	}, nil, WithToolRunner(tool))

	baseURL, stop := startRunner(t, r)

	resp, err := http.Post(baseURL+"/api/v1/downloads", "application/json",
		strings.NewReader(`{"url":"https://open.spotify.com/track/abc","type":"track"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.Eventually(t, func() bool {
		h := getHistory(t, baseURL)
		return len(h) == 1 && h[0].Status == download.StatusComplete
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, tool.count())

	// Queue drained: refresh, generate, refresh again.
	require.Eventually(t, func() bool { return refreshes.Load() == 2 }, 5*time.Second, 20*time.Millisecond)

	var content []byte
	require.Eventually(t, func() bool {
		content, err = os.ReadFile(filepath.Join(m3uDir, "Spotarr.m3u"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, filepath.Join(tracks, "abc.mp3")+"\n", string(content))

	resp, err = http.Get(baseURL + "/api/v1/events")
	require.NoError(t, err)
	var evs struct {
		Items []struct {
			EventType string `json:"event_type"`
		} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&evs))
	resp.Body.Close()
	assert.NotEmpty(t, evs.Items, "status changes are persisted")

	require.NoError(t, stop())
}

func TestRunner_SyncEndpoint(t *testing.T) {
	var refreshes atomic.Int32
	jellyfin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer jellyfin.Close()

	r := NewRunner(nil, Config{
		Templates: map[download.Type]string{download.TypeTrack: t.TempDir()},
		Jellyfin:  &JellyfinConfig{URL: jellyfin.URL, APIKey: "key", Scan: true},
	}, nil, WithToolRunner(&fakeTool{}))
	baseURL, stop := startRunner(t, r)

	resp, err := http.Post(baseURL+"/api/v1/sync", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	require.Eventually(t, func() bool { return refreshes.Load() == 1 }, 5*time.Second, 20*time.Millisecond)
	require.NoError(t, stop())
}

func TestRunner_ListenError(t *testing.T) {
	r := NewRunner(nil, Config{Addr: "127.0.0.1:-1"}, nil)
	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listen")
}

func TestRunner_Targets(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		refresh      []string
		postRefresh  []string
		wantImporter bool
	}{
		{name: "none"},
		{
			name: "plex scan and import",
			cfg: Config{Plex: &PlexConfig{
				PlexConfig: mediaserver.PlexConfig{URL: "http://plex", Token: "t", SectionID: "1"},
				Scan:       true, ImportPlaylist: true,
			}},
			refresh:      []string{"plex"},
			wantImporter: true,
		},
		{
			name: "plex configured but disabled",
			cfg:  Config{Plex: &PlexConfig{PlexConfig: mediaserver.PlexConfig{URL: "http://plex"}}},
		},
		{
			name: "both",
			cfg: Config{
				Plex:     &PlexConfig{PlexConfig: mediaserver.PlexConfig{URL: "http://plex", Library: "Music"}, Scan: true},
				Jellyfin: &JellyfinConfig{URL: "http://jf", APIKey: "k", Scan: true},
			},
			refresh:     []string{"plex", "jellyfin"},
			postRefresh: []string{"jellyfin"},
		},
	}

	names := func(rs []mediaserver.Refresher) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Name())
		}
		return out
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRunner(nil, tt.cfg, nil).targets()
			assert.Equal(t, tt.refresh, names(got.Refresh))
			assert.Equal(t, tt.postRefresh, names(got.PostRefresh))
			assert.Equal(t, tt.wantImporter, got.Importer != nil)
		})
	}
}
