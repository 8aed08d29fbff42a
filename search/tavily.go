package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTavilyURL = "https://api.tavily.com"

// Query is one search request.
type Query struct {
	Query             string
	Topic             string // "general", "news" or "finance"
	Days              int    // recency window
	MaxResults        int
	IncludeRawContent bool
}

// Result is one hit returned by a search backend.
type Result struct {
	Title      string  `json:"title"`
	URL        string  `json:"url"`
	Content    string  `json:"content"`
	RawContent string  `json:"raw_content,omitempty"`
	Score      float64 `json:"score"`
}

// Response is the result list for one query.
type Response struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

// Searcher runs a single query against a search backend.
type Searcher interface {
	Search(ctx context.Context, q Query) (*Response, error)
}

// TavilyOptions configures the Tavily client.
type TavilyOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// TavilyClient is a minimal client for the Tavily search API.
type TavilyClient struct {
	opts TavilyOptions
}

// NewTavilyClient creates a Tavily client.
func NewTavilyClient(optFns ...func(o *TavilyOptions)) *TavilyClient {
	opts := TavilyOptions{
		BaseURL:    defaultTavilyURL,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")

	return &TavilyClient{opts: opts}
}

type tavilyRequest struct {
	Query             string `json:"query"`
	Topic             string `json:"topic,omitempty"`
	Days              int    `json:"days,omitempty"`
	MaxResults        int    `json:"max_results,omitempty"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// Search implements Searcher.
func (c *TavilyClient) Search(ctx context.Context, q Query) (*Response, error) {
	body, err := json.Marshal(tavilyRequest{
		Query:             q.Query,
		Topic:             q.Topic,
		Days:              q.Days,
		MaxResults:        q.MaxResults,
		IncludeRawContent: q.IncludeRawContent,
	})
	if err != nil {
		return nil, fmt.Errorf("tavily: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.opts.BaseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("tavily: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("tavily: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("tavily: decode response: %w", err)
	}

	if out.Query == "" {
		out.Query = q.Query
	}

	return &out, nil
}
