package mediaserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// JellyfinClient triggers library refreshes on a Jellyfin server.
type JellyfinClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        *slog.Logger
}

// NewJellyfinClient creates a new Jellyfin client.
func NewJellyfinClient(baseURL, apiKey string, log *slog.Logger) *JellyfinClient {
	if log == nil {
		log = slog.Default()
	}
	return &JellyfinClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: newHTTPClient(),
		log:        log.With("component", "jellyfin"),
	}
}

// Name implements Refresher.
func (c *JellyfinClient) Name() string { return "jellyfin" }

// RefreshLibrary starts a scan of every Jellyfin library. Success is 204.
func (c *JellyfinClient) RefreshLibrary(ctx context.Context) error {
	reqURL := c.baseURL + "/Library/Refresh?api_key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("refresh failed: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	c.log.Info("library refreshed")
	return nil
}
