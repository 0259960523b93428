package mediaserver

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hbollon/go-edlib"
)

// sectionMatchThreshold is the minimum Jaro-Winkler similarity for a fuzzy
// library name match.
const sectionMatchThreshold = 0.85

// PlexConfig configures a PlexClient.
type PlexConfig struct {
	URL        string
	Token      string
	Library    string // Section title to refresh
	SectionID  string // Section key; skips the name lookup when set
	LocalPath  string // Path prefix on this machine
	RemotePath string // Corresponding prefix as seen by Plex
}

// PlexClient interacts with the Plex Media Server API.
type PlexClient struct {
	baseURL    string
	token      string
	library    string
	sectionID  string
	localPath  string
	remotePath string
	httpClient *http.Client
	log        *slog.Logger
}

// NewPlexClient creates a new Plex client.
func NewPlexClient(cfg PlexConfig, log *slog.Logger) *PlexClient {
	if log == nil {
		log = slog.Default()
	}
	return &PlexClient{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		token:      cfg.Token,
		library:    cfg.Library,
		sectionID:  cfg.SectionID,
		localPath:  cfg.LocalPath,
		remotePath: cfg.RemotePath,
		httpClient: newHTTPClient(),
		log:        log.With("component", "plex"),
	}
}

// Name implements Refresher.
func (c *PlexClient) Name() string { return "plex" }

// translateToRemote converts a local path to the path Plex expects. Only whole
// path components match, so /music does not map /musicx.
func (c *PlexClient) translateToRemote(path string) string {
	if c.localPath == "" || c.remotePath == "" {
		return path
	}
	rest, ok := strings.CutPrefix(path, strings.TrimRight(c.localPath, "/"))
	if !ok || (rest != "" && rest[0] != '/') {
		return path
	}
	remote := strings.TrimRight(c.remotePath, "/") + rest
	if remote == "" {
		return "/"
	}
	return remote
}

// Section represents a Plex library section.
type Section struct {
	Key   string `xml:"key,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

// sectionsResponse is the XML response from /library/sections.
type sectionsResponse struct {
	XMLName  xml.Name  `xml:"MediaContainer"`
	Sections []Section `xml:"Directory"`
}

func (c *PlexClient) do(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Plex-Token", c.token)
	req.Header.Set("Accept", "application/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// GetSections returns all library sections.
func (c *PlexClient) GetSections(ctx context.Context) ([]Section, error) {
	resp, err := c.do(ctx, http.MethodGet, c.baseURL+"/library/sections")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var result sectionsResponse
	if err := xml.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return result.Sections, nil
}

// FindSectionByName finds a library section by title. An exact
// case-insensitive match wins; otherwise the most similar title at or above
// the fuzzy threshold is returned.
func (c *PlexClient) FindSectionByName(ctx context.Context, name string) (*Section, error) {
	sections, err := c.GetSections(ctx)
	if err != nil {
		return nil, err
	}

	for _, sec := range sections {
		if strings.EqualFold(sec.Title, name) {
			return &sec, nil
		}
	}

	var best *Section
	var bestScore float32
	want := strings.ToLower(name)
	for i := range sections {
		score := edlib.JaroWinklerSimilarity(want, strings.ToLower(sections[i].Title))
		if score >= sectionMatchThreshold && score > bestScore {
			best, bestScore = &sections[i], score
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%q: %w", name, ErrSectionNotFound)
	}
	c.log.Debug("fuzzy section match", "wanted", name, "matched", best.Title, "score", bestScore)
	return best, nil
}

// sectionKey returns the configured section id, or looks it up by library name.
func (c *PlexClient) sectionKey(ctx context.Context) (string, error) {
	if c.sectionID != "" {
		return c.sectionID, nil
	}
	sec, err := c.FindSectionByName(ctx, c.library)
	if err != nil {
		return "", err
	}
	return sec.Key, nil
}

// RefreshLibrary triggers a full scan of the configured music section.
func (c *PlexClient) RefreshLibrary(ctx context.Context) error {
	key, err := c.sectionKey(ctx)
	if err != nil {
		return fmt.Errorf("resolve section: %w", err)
	}

	resp, err := c.do(ctx, http.MethodGet, fmt.Sprintf("%s/library/sections/%s/refresh", c.baseURL, key))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("refresh failed: %w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	c.log.Info("library scan started", "section", key)
	return nil
}

// ImportPlaylist asks Plex to import the m3u at path into the configured
// section. The path is translated to Plex's view of the filesystem first.
func (c *PlexClient) ImportPlaylist(ctx context.Context, path string) error {
	if c.sectionID == "" {
		return fmt.Errorf("import playlist: section id not configured")
	}
	remote := c.translateToRemote(path)

	q := url.Values{}
	q.Set("sectionID", c.sectionID)
	q.Set("path", remote)
	q.Set("X-Plex-Token", c.token)

	start := time.Now()
	resp, err := c.do(ctx, http.MethodPost, c.baseURL+"/playlists/upload?"+q.Encode())
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("import playlist %s: %w: %d", remote, ErrUnexpectedStatus, resp.StatusCode)
	}
	c.log.Info("playlist imported", "path", remote, "duration_ms", time.Since(start).Milliseconds())
	return nil
}
