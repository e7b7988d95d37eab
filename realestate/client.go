// Package realestate talks to the property-data provider's snapshot
// endpoint. It issues a single GET per search: no retries, paging or caching.
package realestate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/havenai/haven/errors"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://api.gateway.attomdata.com"
	snapshotPath   = "/propertyapi/v1.0.0/property/snapshot"
	apiKeyHeader   = "apikey"
)

// UpstreamHTTPError is returned when the provider answers with a non-2xx status.
type UpstreamHTTPError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("property provider returned HTTP %d", e.StatusCode)
}

// Criteria narrows a snapshot search.
type Criteria struct {
	Address  string
	MinBeds  int
	MaxValue int
}

// Listing is the part of a snapshot record the assistant uses.
type Listing struct {
	Address struct {
		OneLine string `json:"oneLine"`
	} `json:"address"`
}

type snapshotResponse struct {
	Property []Listing `json:"property"`
}

// Client is a provider client. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) Option { return func(c *Client) { c.baseURL = u } }

// WithHTTPClient replaces the default 15s-timeout client.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.httpClient = h } }

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.logger = l } }

// NewClient creates a client authenticating with apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot runs one search and returns the listings in provider order.
func (c *Client) Snapshot(ctx context.Context, crit Criteria) ([]Listing, error) {
	q := url.Values{}
	q.Set("address", crit.Address)
	q.Set("minBeds", strconv.Itoa(crit.MinBeds))
	q.Set("maxValue", strconv.Itoa(crit.MaxValue))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+snapshotPath+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to build snapshot request")
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "snapshot request failed")
	}
	defer resp.Body.Close()

	c.logger.Debug().
		Str("address", crit.Address).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Property snapshot fetched")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, &UpstreamHTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out snapshotResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, errors.Wrapf(err, "failed to decode snapshot response")
	}
	return out.Property, nil
}
