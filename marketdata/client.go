//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package marketdata provides the financial data provider client backing the
// specialist agents' tools. Provider contract: "no data found" yields a nil
// result and nil error; transport and decode failures return errors and are
// contained at the tool-execution boundary.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Default endpoints of the financialmodelingprep API.
const (
	defaultBaseURL   = "https://financialmodelingprep.com/api/v3"
	defaultV4BaseURL = "https://financialmodelingprep.com/api/v4"
)

// Client calls the financial data provider.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	v4BaseURL  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL overrides the v3 API base URL. Used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithV4BaseURL overrides the v4 API base URL. Used by tests.
func WithV4BaseURL(u string) Option {
	return func(c *Client) { c.v4BaseURL = u }
}

// NewClient creates a provider client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		v4BaseURL:  defaultV4BaseURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get fetches base+path with query and decodes the JSON response into out.
func (c *Client) get(ctx context.Context, base, path string, query url.Values, out any) error {
	if query == nil {
		query = url.Values{}
	}
	query.Set("apikey", c.apiKey)

	u := base + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("fetch %s: status %d: %s", path, resp.StatusCode, body)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// getList fetches an endpoint returning a JSON array of objects. An empty
// array is the provider's "no data" and comes back as nil.
func (c *Client) getList(ctx context.Context, base, path string, query url.Values) ([]map[string]any, error) {
	var rows []map[string]any
	if err := c.get(ctx, base, path, query, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows, nil
}
