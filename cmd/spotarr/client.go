package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client wraps HTTP calls to the spotarr server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new spotarr API client.
func NewClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) get(path string, result any) error {
	resp, err := c.httpClient.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

func (c *Client) post(path string, body any, result any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	resp, err := c.httpClient.Post(c.baseURL+path, "application/json", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted:
	default:
		return responseError(resp)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// responseError prefers the server's JSON error message over the raw body.
func responseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	var apiErr struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server error %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Error)
	}
	return fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
}

// API response types (mirror server types)

type StatusResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Pending  int    `json:"pending"`
	History  int    `json:"history"`
	EventLog string `json:"event_log,omitempty"`
}

type DownloadItem struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
	Status string `json:"status"`
}

type HistoryResponse struct {
	History []DownloadItem `json:"history"`
}

type AddRequest struct {
	URL    string `json:"url"`
	Type   string `json:"type"`
	Name   string `json:"name,omitempty"`
	Artist string `json:"artist,omitempty"`
}

type SyncResponse struct {
	Status string `json:"status"`
}

type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"event_type"`
	EntityType string `json:"entity_type"`
	EntityKey  string `json:"entity_key,omitempty"`
	Payload    string `json:"payload"`
	OccurredAt string `json:"occurred_at"`
}

type ListEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
	Limit int             `json:"limit"`
}

// Status returns server health.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.get("/api/v1/status", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Downloads returns the ordered download history.
func (c *Client) Downloads() (*HistoryResponse, error) {
	var resp HistoryResponse
	if err := c.get("/api/v1/downloads", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Add queues a download.
func (c *Client) Add(req AddRequest) (*DownloadItem, error) {
	var resp DownloadItem
	if err := c.post("/api/v1/downloads", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel cancels a pending download.
func (c *Client) Cancel(itemURL string) (*DownloadItem, error) {
	var resp DownloadItem
	if err := c.post("/api/v1/downloads/cancel", map[string]string{"url": itemURL}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Sync asks the server to run the library sync.
func (c *Client) Sync() (*SyncResponse, error) {
	var resp SyncResponse
	if err := c.post("/api/v1/sync", map[string]string{"reason": "cli"}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Events returns recent events, or all events for itemURL when set.
func (c *Client) Events(limit int, itemURL string, since time.Time) (*ListEventsResponse, error) {
	params := url.Values{}
	params.Set("limit", strconv.Itoa(limit))
	if itemURL != "" {
		params.Set("url", itemURL)
	}
	if !since.IsZero() {
		params.Set("since", since.UTC().Format(time.RFC3339))
	}

	var resp ListEventsResponse
	if err := c.get("/api/v1/events?"+params.Encode(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
