// Package rest talks to the remote queue's REST API: history pages, the live
// queue snapshot and mutation intents.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"queuepanel/internal/model"
	"queuepanel/internal/pagination"
	"queuepanel/pkg/config"
	"queuepanel/pkg/interfaces"
	"queuepanel/pkg/logger"
)

const (
	historyPath = "/api/history"
	queuePath   = "/api/queue"
	intentsPath = "/api/intents"

	maxErrorBody = 512
)

// Client is the remote queue API client
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var (
	_ interfaces.QueueProvider = (*Client)(nil)
	_ interfaces.IntentSink    = (*Client)(nil)
)

// NewClient creates a new remote queue client
func NewClient(cfg config.RemoteConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = config.DefaultRemoteConfig().Timeout
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchPage retrieves one history page
func (c *Client) FetchPage(ctx context.Context, cursor pagination.Cursor) (*model.Page, error) {
	u := c.baseURL + historyPath + "?" + cursorQuery(cursor).Encode()

	data, err := c.doRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var page model.Page
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to parse history page: %w", err)
	}
	if page.Records == nil {
		page.Records = []model.Record{}
	}
	return &page, nil
}

// FetchSnapshot retrieves the live queue
func (c *Client) FetchSnapshot(ctx context.Context) (*model.LiveSnapshot, error) {
	data, err := c.doRequest(ctx, http.MethodGet, c.baseURL+queuePath, nil)
	if err != nil {
		return nil, err
	}

	var snap model.LiveSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse queue snapshot: %w", err)
	}
	return &snap, nil
}

// Dispatch posts a mutation intent
func (c *Client) Dispatch(ctx context.Context, intent model.Intent) error {
	_, err := c.doRequest(ctx, http.MethodPost, c.baseURL+intentsPath, intent)
	return err
}

// cursorQuery encodes a cursor as query parameters. A continuation token replaces
// the keyset pair.
func cursorQuery(cursor pagination.Cursor) url.Values {
	p := cursor.Params.Normalize()
	q := url.Values{}
	q.Set("sort_field", p.SortField)
	q.Set("sort_direction", string(p.Direction))
	q.Set("limit", strconv.Itoa(p.Limit))
	if p.Since != nil {
		q.Set("since", p.Since.UTC().Format(time.RFC3339))
	}
	if p.Until != nil {
		q.Set("until", p.Until.UTC().Format(time.RFC3339))
	}
	if cursor.Continuation != "" {
		q.Set("continuation", cursor.Continuation)
		return q
	}
	if cursor.AfterID != nil {
		q.Set("after_id", strconv.FormatInt(*cursor.AfterID, 10))
	}
	if cursor.AfterValue != nil {
		q.Set("after_value", strconv.FormatInt(*cursor.AfterValue, 10))
	}
	return q
}

func (c *Client) doRequest(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}
	logger.DebugCtx(ctx, "remote request: %s %s", method, url)

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := string(respData)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		return nil, fmt.Errorf("remote queue error (status %d): %s", resp.StatusCode, msg)
	}
	return respData, nil
}
