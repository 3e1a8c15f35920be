package aria2

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const DefaultURL = "http://127.0.0.1:6800/jsonrpc"

// Options configures a Client. Zero values fall back to the defaults below.
type Options struct {
	URL            string
	Secret         string
	Timeout        time.Duration
	ConnectTimeout time.Duration
	// Retries is the number of extra attempts after a transient failure.
	Retries    int
	RetryDelay time.Duration
	// HTTPClient overrides the client built from the timeouts (tests).
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks JSON-RPC 2.0 to a single aria2 endpoint.
type Client struct {
	baseURL    *url.URL
	secret     string
	http       *http.Client
	retries    int
	retryDelay time.Duration
	log        *slog.Logger
}

func NewClient(opts Options) (*Client, error) {
	raw := opts.URL
	if raw == "" {
		raw = DefaultURL
	}
	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, errors.New("aria2: rpc url must be absolute")
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	connect := opts.ConnectTimeout
	if connect <= 0 {
		connect = 10 * time.Second
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}

	hc := opts.HTTPClient
	if hc == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.DialContext = (&net.Dialer{Timeout: connect, KeepAlive: 30 * time.Second}).DialContext
		hc = &http.Client{Timeout: timeout, Transport: tr}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		baseURL:    baseURL,
		secret:     opts.Secret,
		http:       hc,
		retries:    retries,
		retryDelay: delay,
		log:        log,
	}, nil
}

func (c *Client) BaseURL() *url.URL  { return c.baseURL }
func (c *Client) HTTP() *http.Client { return c.http }

// SetLogger allows wiring a shared application logger into the client.
func (c *Client) SetLogger(l *slog.Logger) {
	if l != nil {
		c.log = l
	}
}

// tokenParam returns the auth parameter aria2 expects first, if a secret is set.
func (c *Client) tokenParam() []any {
	if c.secret != "" {
		return []any{"token:" + c.secret}
	}
	return nil
}
