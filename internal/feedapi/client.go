package feedapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/walletfeed/wallet-feed/internal/domain"
)

// Client is a minimal API client for a running wallet-feed server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new feed API client for the given base URL
// (e.g. http://localhost:8080).
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// SubmitMessage posts a message as author. Coordinates are optional.
func (c *Client) SubmitMessage(ctx context.Context, author, text string, coords *domain.Coordinates) (*domain.Message, error) {
	body := map[string]any{
		"author": author,
		"text":   text,
	}
	if coords != nil {
		body["latitude"] = coords.Latitude
		body["longitude"] = coords.Longitude
	}

	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/messages", body, &msg); err != nil {
		return nil, fmt.Errorf("submit message: %w", err)
	}
	return &msg, nil
}

// SubmitHashtag posts a "#tag @pageKey" message as author.
func (c *Client) SubmitHashtag(ctx context.Context, author, pageKey, tag string) (*domain.Message, error) {
	body := map[string]any{
		"author": author,
		"tag":    tag,
	}

	var msg domain.Message
	if err := c.do(ctx, http.MethodPost, "/api/users/"+url.PathEscape(pageKey)+"/hashtags", body, &msg); err != nil {
		return nil, fmt.Errorf("submit hashtag: %w", err)
	}
	return &msg, nil
}

// SubmitLink attaches a profile URL to pageKey's link document.
func (c *Client) SubmitLink(ctx context.Context, author, pageKey, profileURL, provider string) (*domain.Message, error) {
	body := map[string]any{
		"author":   author,
		"url":      profileURL,
		"provider": provider,
	}

	var msg domain.Message
	if err := c.do(ctx, http.MethodPut, "/api/users/"+url.PathEscape(pageKey)+"/links", body, &msg); err != nil {
		return nil, fmt.Errorf("submit link: %w", err)
	}
	return &msg, nil
}

// Feed retrieves the projected action list for key.
func (c *Client) Feed(ctx context.Context, key, viewer string, mode domain.FilterMode) ([]domain.Action, error) {
	q := url.Values{}
	q.Set("key", key)
	q.Set("mode", string(mode))
	if viewer != "" {
		q.Set("viewer", viewer)
	}

	var resp struct {
		Actions []domain.Action `json:"actions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/feed?"+q.Encode(), nil, &resp); err != nil {
		return nil, fmt.Errorf("get feed: %w", err)
	}
	return resp.Actions, nil
}

// TopTags retrieves the ranked hashtag list for key.
func (c *Client) TopTags(ctx context.Context, key string) ([]domain.TagCount, error) {
	var resp struct {
		Tags []domain.TagCount `json:"tags"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/users/"+url.PathEscape(key)+"/tags", nil, &resp); err != nil {
		return nil, fmt.Errorf("get top tags: %w", err)
	}
	return resp.Tags, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}
