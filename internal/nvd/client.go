package nvd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Client pages through the NVD CVE feed with a fixed inter-page delay.
// The delay keeps the request rate under the feed's ceiling: a credentialed
// client may go faster than an anonymous one. There is no adaptive backoff.
type Client struct {
	http         *resty.Client
	apiKey       string
	pageSize     int
	keyedDelay   time.Duration
	unkeyedDelay time.Duration
	log          zerolog.Logger
}

// Options configures a feed Client.
type Options struct {
	BaseURL      string
	APIKey       string
	PageSize     int
	KeyedDelay   time.Duration
	UnkeyedDelay time.Duration
}

// NewClient constructs a feed client. PageSize is clamped to the feed's hard
// cap of 2000 results per page.
func NewClient(opts Options, log zerolog.Logger) *Client {
	if opts.PageSize <= 0 || opts.PageSize > 2000 {
		opts.PageSize = 2000
	}
	if opts.KeyedDelay <= 0 {
		opts.KeyedDelay = 600 * time.Millisecond
	}
	if opts.UnkeyedDelay <= 0 {
		opts.UnkeyedDelay = 6 * time.Second
	}

	c := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(2 * time.Minute)

	return &Client{
		http:         c,
		apiKey:       opts.APIKey,
		pageSize:     opts.PageSize,
		keyedDelay:   opts.KeyedDelay,
		unkeyedDelay: opts.UnkeyedDelay,
		log:          log.With().Str("component", "nvd").Logger(),
	}
}

// FetchWindow returns all records last modified inside [start, end], paging
// with an offset cursor until the feed reports exhaustion.
//
// On a non-2xx response or transport error mid-pagination it stops early and
// returns everything accumulated so far together with a non-nil error, so
// callers can tell a complete window from a truncated one. The partial slice
// is still usable.
func (c *Client) FetchWindow(ctx context.Context, start, end time.Time) ([]Record, error) {
	return c.fetchAllPages(ctx, map[string]string{
		"lastModStartDate": start.Format(TimeFormat),
		"lastModEndDate":   end.Format(TimeFormat),
	})
}

// FetchAll pages through the entire feed with no date filter. Used only for
// full index rebuilds; the same partial-result contract as FetchWindow
// applies.
func (c *Client) FetchAll(ctx context.Context) ([]Record, error) {
	return c.fetchAllPages(ctx, map[string]string{})
}

func (c *Client) fetchAllPages(ctx context.Context, baseParams map[string]string) ([]Record, error) {
	var all []Record
	startIndex := 0
	pageNum := 1

	for {
		params := map[string]string{
			"resultsPerPage": strconv.Itoa(c.pageSize),
			"startIndex":     strconv.Itoa(startIndex),
		}
		for k, v := range baseParams {
			params[k] = v
		}

		pg, err := c.fetchPage(ctx, params)
		if err != nil {
			c.log.Warn().Err(err).Int("page", pageNum).Int("fetched", len(all)).
				Msg("pagination stopped early; returning partial window")
			return all, fmt.Errorf("page %d: %w", pageNum, err)
		}

		if len(pg.Vulnerabilities) == 0 {
			break
		}
		for _, v := range pg.Vulnerabilities {
			all = append(all, v.Cve)
		}

		c.log.Info().Int("page", pageNum).Int("fetched", len(all)).
			Int("total", pg.TotalResults).Msg("page fetched")

		if startIndex+len(pg.Vulnerabilities) >= pg.TotalResults {
			break
		}
		startIndex += c.pageSize
		pageNum++

		if err := c.sleepBetweenPages(ctx); err != nil {
			return all, err
		}
	}

	c.log.Info().Int("records", len(all)).Msg("window fetch complete")
	return all, nil
}

// FetchLatest retrieves a single page of at most limit records for the given
// window, newest-modification filters applied server-side. Used by the feed
// filter surface; no pagination, no sleeping.
func (c *Client) FetchLatest(ctx context.Context, start, end time.Time, limit int) ([]Record, error) {
	if limit <= 0 || limit > 2000 {
		limit = 2000
	}
	pg, err := c.fetchPage(ctx, map[string]string{
		"lastModStartDate": start.Format(TimeFormat),
		"lastModEndDate":   end.Format(TimeFormat),
		"resultsPerPage":   strconv.Itoa(limit),
	})
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(pg.Vulnerabilities))
	for _, v := range pg.Vulnerabilities {
		out = append(out, v.Cve)
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, params map[string]string) (*page, error) {
	req := c.http.R().SetContext(ctx).SetQueryParams(params)
	if c.apiKey != "" {
		req.SetHeader("apiKey", c.apiKey)
	}

	resp, err := req.Get("")
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed status %d", resp.StatusCode())
	}

	var pg page
	if err := json.Unmarshal(resp.Body(), &pg); err != nil {
		return nil, fmt.Errorf("decode feed page: %w", err)
	}
	return &pg, nil
}

func (c *Client) sleepBetweenPages(ctx context.Context) error {
	delay := c.unkeyedDelay
	if c.apiKey != "" {
		delay = c.keyedDelay
	}
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
