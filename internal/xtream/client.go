// Package xtream talks to the upstream Xtream Codes catalog API.
package xtream

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Action selects the player_api.php operation.
type Action string

const (
	ActionGetSeries     Action = "get_series"
	ActionGetVodStreams Action = "get_vod_streams"
	ActionGetSeriesInfo Action = "get_series_info"
	ActionGetVodInfo    Action = "get_vod_info"
)

// Credentials identify the account for API calls and content URLs.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
}

// StatusError is a non-2xx upstream reply.
type StatusError struct {
	Action Action
	Code   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("xtream %s: http %d", e.Action, e.Code)
}

// Client is the uncached upstream API client.
type Client struct {
	creds Credentials
	base  *url.URL
	http  *http.Client
	log   *slog.Logger
}

func NewClient(creds Credentials, timeout time.Duration, hc *http.Client) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(creds.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("xtream: base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("xtream: base url %q must be absolute", creds.BaseURL)
	}
	if hc == nil {
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{creds: creds, base: base, http: hc, log: slog.Default()}, nil
}

// SetLogger allows wiring a shared application logger into the client.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

func (c *Client) Credentials() Credentials { return c.creds }

// Fetch performs one GET against player_api.php and returns the raw body.
func (c *Client) Fetch(ctx context.Context, action Action, params url.Values) ([]byte, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/player_api.php"
	q := url.Values{}
	q.Set("username", c.creds.Username)
	q.Set("password", c.creds.Password)
	q.Set("action", string(action))
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("xtream %s: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Action: action, Code: resp.StatusCode}
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("xtream %s: read body: %w", action, err)
	}
	c.log.Debug("xtream fetch", "action", action, "bytes", len(b), "duration", time.Since(start))
	return b, nil
}

func idParam(key string, id int) url.Values {
	return url.Values{key: []string{strconv.Itoa(id)}}
}

func (c *Client) VodInfo(ctx context.Context, vodID int) (*VodInfo, error) {
	b, err := c.Fetch(ctx, ActionGetVodInfo, idParam("vod_id", vodID))
	if err != nil {
		return nil, err
	}
	return ParseVodInfo(vodID, b)
}

func (c *Client) SeriesInfo(ctx context.Context, seriesID int) (*SeriesInfo, error) {
	b, err := c.Fetch(ctx, ActionGetSeriesInfo, idParam("series_id", seriesID))
	if err != nil {
		return nil, err
	}
	return ParseSeriesInfo(seriesID, b)
}

func (c *Client) VodStreams(ctx context.Context) ([]VodStream, error) {
	b, err := c.Fetch(ctx, ActionGetVodStreams, nil)
	if err != nil {
		return nil, err
	}
	return parseList[VodStream](b)
}

func (c *Client) Series(ctx context.Context) ([]SeriesListing, error) {
	b, err := c.Fetch(ctx, ActionGetSeries, nil)
	if err != nil {
		return nil, err
	}
	return parseList[SeriesListing](b)
}
