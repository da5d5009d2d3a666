// Package feed fetches and decodes the weather observations feed.
package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/delivery-fee-service/internal/domain"
)

// Client downloads the observations feed and keeps the stations of interest.
type Client struct {
	url        string
	httpClient *http.Client
	keep       func(string) bool
	loc        *time.Location
	logger     *slog.Logger
}

// NewClient creates a feed client. keep selects which stations are returned;
// loc is the zone observation timestamps are expressed in.
func NewClient(url string, timeout time.Duration, keep func(string) bool, loc *time.Location, logger *slog.Logger) *Client {
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		keep:   keep,
		loc:    loc,
		logger: logger,
	}
}

// Fetch performs one download. Transport failures and non-2xx responses wrap
// domain.ErrFetch; malformed documents wrap domain.ErrParse.
func (c *Client) Fetch(ctx context.Context) ([]domain.Observation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %w", domain.ErrFetch, err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFetch, resp.StatusCode, body)
	}

	obs, err := Decode(resp.Body, c.keep, c.loc)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("weather feed fetched", "stations", len(obs))
	return obs, nil
}
