package aria2

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
)

// Result is one demultiplexed batch slot: exactly one of Value or Err is set.
type Result struct {
	Value json.RawMessage
	Err   error
}

func (r Result) OK() bool { return r.Err == nil }

// Decode unmarshals the slot value into out; a failed slot returns its error.
func (r Result) Decode(out any) error {
	if r.Err != nil {
		return r.Err
	}
	if err := json.Unmarshal(r.Value, out); err != nil {
		return &ProtocolError{Detail: fmt.Sprintf("decode batch slot: %v", err)}
	}
	return nil
}

// Batch sends all requests in one HTTP request and returns one Result per
// request in the same order. Slots are correlated by position, never by id.
// Per-slot daemon errors are data in the returned slice; only transport,
// protocol and authentication failures fail the whole call.
func (c *Client) Batch(ctx context.Context, reqs []Request) ([]Result, error) {
	if len(reqs) == 0 {
		return nil, fmt.Errorf("%w: empty aria2 batch", data.ErrInvalidArgument)
	}
	label := batchLabel(reqs)
	timer := prometheus.NewTimer(metrics.Aria2RPCLatency.WithLabelValues(label))
	defer timer.ObserveDuration()
	metrics.Aria2BatchSize.Observe(float64(len(reqs)))

	envs := make([]rpcReq, len(reqs))
	for i, r := range reqs {
		envs[i] = c.envelope(r)
	}
	body, err := json.Marshal(envs)
	if err != nil {
		return nil, fmt.Errorf("aria2 encode batch: %w", err)
	}

	b, err := c.post(ctx, label, body)
	if err != nil {
		metrics.Aria2RPCErrors.WithLabelValues(label).Inc()
		return nil, err
	}

	results, err := demux(reqs, b)
	if err != nil {
		metrics.Aria2RPCErrors.WithLabelValues(label).Inc()
		return nil, err
	}
	for i, res := range results {
		if res.Err == nil {
			continue
		}
		metrics.Aria2RPCErrors.WithLabelValues(reqs[i].Method).Inc()
		if errors.Is(res.Err, ErrAuthRejected) {
			return nil, res.Err
		}
	}
	return results, nil
}

// demux zips the raw batch reply against the requests positionally.
func demux(reqs []Request, body []byte) ([]Result, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		// A whole-batch rejection comes back as a single error object.
		var single rpcResp
		if jerr := json.Unmarshal(body, &single); jerr == nil && single.Error != nil {
			return nil, &RPCError{Method: "batch", Code: single.Error.Code, Message: single.Error.Message}
		}
		return nil, &ProtocolError{Detail: fmt.Sprintf("batch reply is not an array: %v", err)}
	}
	if len(raw) != len(reqs) {
		return nil, &ProtocolError{Sent: len(reqs), Received: len(raw)}
	}

	out := make([]Result, len(reqs))
	for i, slot := range raw {
		var rr rpcResp
		if err := json.Unmarshal(slot, &rr); err != nil {
			out[i] = Result{Err: &ProtocolError{Detail: fmt.Sprintf("slot %d: %v", i, err)}}
			continue
		}
		if rr.Error != nil {
			out[i] = Result{Err: &RPCError{Method: reqs[i].Method, Code: rr.Error.Code, Message: rr.Error.Message, GID: reqs[i].GID}}
			continue
		}
		out[i] = Result{Value: rr.Result}
	}
	return out, nil
}

func batchLabel(reqs []Request) string {
	m := reqs[0].Method
	for _, r := range reqs[1:] {
		if r.Method != m {
			return "batch"
		}
	}
	return "batch:" + m
}
