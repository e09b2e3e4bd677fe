package reststore

import (
	"context"
	"fmt"
	"strconv"

	"TrendPulse/internal/domain/models"
	xhttp "TrendPulse/pkg/http"
)

// Query describes a filtered read against a store table.
type Query struct {
	// Filters maps column name to a PostgREST operator expression,
	// e.g. "instrument_id" -> "eq.42" or "ts" -> "lt.1700000000".
	Filters map[string]string
	// Order is a PostgREST order clause, e.g. "ts.desc".
	Order string
	// Limit caps the number of rows returned. Zero means no limit.
	Limit int
	// Select restricts the returned columns. Empty means all columns.
	Select string
}

// Client talks to a PostgREST-compatible datastore over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *xhttp.Client
}

// Option configures Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *xhttp.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a store client for the given REST endpoint.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    xhttp.NewClient(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) headers(extra map[string]string) map[string]string {
	h := map[string]string{
		"apikey":        c.apiKey,
		"Authorization": "Bearer " + c.apiKey,
		"Content-Type":  "application/json",
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
}

// Select reads rows matching the query into dest, which must be a
// pointer to a slice of row structs.
func (c *Client) Select(ctx context.Context, table string, q Query, dest interface{}) error {
	params := map[string][]string{}
	for col, expr := range q.Filters {
		params[col] = []string{expr}
	}
	if q.Select != "" {
		params["select"] = []string{q.Select}
	}
	if q.Order != "" {
		params["order"] = []string{q.Order}
	}
	if q.Limit > 0 {
		params["limit"] = []string{strconv.Itoa(q.Limit)}
	}

	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodGet,
		URL:         c.tableURL(table),
		Headers:     c.headers(nil),
		QueryParams: params,
	}, dest)
	if err != nil {
		return models.NewStoreError("select", table, err)
	}
	return nil
}

// Upsert writes rows to the table, merging duplicates on the given
// conflict target. rows must be a slice of row structs.
func (c *Client) Upsert(ctx context.Context, table string, rows interface{}, onConflict string) error {
	params := map[string][]string{}
	if onConflict != "" {
		params["on_conflict"] = []string{onConflict}
	}

	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.tableURL(table),
		Headers: c.headers(map[string]string{
			"Prefer": "resolution=merge-duplicates,return=minimal",
		}),
		QueryParams: params,
		Body:        rows,
	}, nil)
	if err != nil {
		return models.NewStoreError("upsert", table, err)
	}
	return nil
}

// Delete removes rows matching the filters. At least one filter is
// required so a bug cannot truncate a whole table.
func (c *Client) Delete(ctx context.Context, table string, filters map[string]string) error {
	if len(filters) == 0 {
		return models.NewStoreError("delete", table, fmt.Errorf("refusing unfiltered delete"))
	}

	params := map[string][]string{}
	for col, expr := range filters {
		params[col] = []string{expr}
	}

	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:      xhttp.MethodDelete,
		URL:         c.tableURL(table),
		Headers:     c.headers(nil),
		QueryParams: params,
	}, nil)
	if err != nil {
		return models.NewStoreError("delete", table, err)
	}
	return nil
}
