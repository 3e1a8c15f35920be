package aria2

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/lionzhd/lionz/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// --- JSON-RPC wire types ---

type rpcReq struct {
	Jsonrpc string `json:"jsonrpc"`
	Method  string `json:"method"`
	ID      string `json:"id"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResp struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Request is one typed call. GID, when set, is attached to any error the
// daemon returns for it; it is not sent on the wire.
type Request struct {
	Method string
	Params []any
	GID    string
}

func (c *Client) envelope(r Request) rpcReq {
	params := append(c.tokenParam(), r.Params...)
	return rpcReq{Jsonrpc: "2.0", Method: r.Method, ID: uuid.NewString(), Params: params}
}

// Call performs a single JSON-RPC call and returns the raw result.
func (c *Client) Call(ctx context.Context, r Request) (json.RawMessage, error) {
	timer := prometheus.NewTimer(metrics.Aria2RPCLatency.WithLabelValues(r.Method))
	defer timer.ObserveDuration()

	body, err := json.Marshal(c.envelope(r))
	if err != nil {
		return nil, fmt.Errorf("aria2 encode %s: %w", r.Method, err)
	}
	b, err := c.post(ctx, r.Method, body)
	if err != nil {
		metrics.Aria2RPCErrors.WithLabelValues(r.Method).Inc()
		return nil, err
	}

	var rr rpcResp
	if err := json.Unmarshal(b, &rr); err != nil {
		metrics.Aria2RPCErrors.WithLabelValues(r.Method).Inc()
		return nil, &ProtocolError{Detail: fmt.Sprintf("decode %s response: %v", r.Method, err)}
	}
	if rr.Error != nil {
		metrics.Aria2RPCErrors.WithLabelValues(r.Method).Inc()
		return nil, &RPCError{Method: r.Method, Code: rr.Error.Code, Message: rr.Error.Message, GID: r.GID}
	}
	return rr.Result, nil
}

// CallInto performs Call and decodes the result into out.
func (c *Client) CallInto(ctx context.Context, r Request, out any) error {
	raw, err := c.Call(ctx, r)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{Detail: fmt.Sprintf("decode %s result: %v", r.Method, err)}
	}
	return nil
}

// post sends body and returns the response payload, retrying transient
// transport failures with a fixed delay. JSON-RPC error bodies are returned
// as payloads regardless of HTTP status so the caller can classify them.
func (c *Client) post(ctx context.Context, label string, body []byte) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		b, err := c.postOnce(ctx, body)
		if err == nil {
			return b, nil
		}
		if !transient(err) || ctx.Err() != nil || attempt > c.retries {
			return nil, &TransportError{Attempts: attempt, Err: err}
		}
		metrics.Aria2RPCRetries.Inc()
		c.log.Warn("aria2 transport retry", "method", label, "attempt", attempt, "err", err)
		t := time.NewTimer(c.retryDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, &TransportError{Attempts: attempt, Err: ctx.Err()}
		case <-t.C:
		}
	}
}

func (c *Client) postOnce(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String(), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return b, nil
	}
	// aria2 answers RPC errors with 4xx plus a JSON-RPC body.
	if looksLikeJSON(b) {
		return b, nil
	}
	return nil, &httpStatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
}

func transient(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var se *httpStatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}
	// url.Error satisfies net.Error itself; look at what it wraps.
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	var ne net.Error
	return errors.As(err, &ne)
}

func looksLikeJSON(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && (b[0] == '{' || b[0] == '[')
}
