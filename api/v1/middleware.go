package v1

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/reqid"
)

// launchBody is the optional body of the single launch endpoints.
type launchBody struct {
	Options map[string]any `json:"options"`
}

// batchBody is the body of the multi-episode launch endpoint.
type batchBody struct {
	Episodes []catalog.EpisodeRef `json:"episodes"`
	Options  map[string]any       `json:"options"`
}

type patchBody struct {
	Action string `json:"action"`
}

// context keys
type ctxKeyLaunch struct{}
type ctxKeyBatch struct{}
type ctxKeyPatch struct{}

func badRequest(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrContentType) {
		markErr(w, err)
		http.Error(w, err.Error(), http.StatusUnsupportedMediaType)
		return
	}
	markErr(w, err)
	http.Error(w, "invalid JSON: "+err.Error(), http.StatusBadRequest)
}

// MiddlewareLaunchBody decodes the optional {"options": {...}} body.
func MiddlewareLaunchBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body launchBody
		if err := decodeJSONStrict(w, r, &body, true); err != nil {
			badRequest(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyLaunch{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MiddlewareBatchBody decodes and validates the episode list.
func MiddlewareBatchBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body batchBody
		if err := decodeJSONStrict(w, r, &body, false); err != nil {
			badRequest(w, err)
			return
		}
		if len(body.Episodes) == 0 {
			markErr(w, ErrNoEpisodes)
			http.Error(w, ErrNoEpisodes.Error(), http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyBatch{}, body)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// MiddlewarePatchAction decodes {"action": "..."} and rejects unknown actions.
func MiddlewarePatchAction(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body patchBody
		if err := decodeJSONStrict(w, r, &body, false); err != nil {
			badRequest(w, err)
			return
		}
		action, ok := data.ParseAction(body.Action)
		if !ok {
			markErr(w, ErrAction)
			http.Error(w, ErrAction.Error(), http.StatusBadRequest)
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyPatch{}, action)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (h *Handler) Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()
		rw := &rwLogger{ResponseWriter: w}
		next.ServeHTTP(rw, r)
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
		l := reqid.Logger(r.Context(), h.l)
		attrs := []any{
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.status,
			"remote", r.RemoteAddr,
			"ua", r.UserAgent(),
			"dur_ms", time.Since(startTime).Milliseconds(),
			"bytes", rw.bytes,
		}
		if rw.err != nil {
			l.Error(rw.err.Error(), attrs...)
			return
		}
		l.Info("", attrs...)
	})
}
