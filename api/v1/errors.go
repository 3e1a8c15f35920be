package v1

import (
	"errors"
	"net/http"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/xtream"
)

var (
	ErrContentType = errors.New("Content-Type must be application/json")
	ErrBodyCtx     = errors.New("request body missing in context")
	ErrAction      = errors.New("action must be one of pause|resume|cancel|remove|retry")
	ErrNoEpisodes  = errors.New("episodes is required")
	ErrNoGIDs      = errors.New("at least one gid query parameter is required")
	ErrBadID       = errors.New("id must be a positive integer")
	ErrPaging      = errors.New("limit and offset must be non-negative integers")
)

// errorBody is the JSON error payload. GID is set when the daemon accepted
// a download whose ref could not be saved.
type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
	GID   string `json:"gid,omitempty"`
}

// classify maps an error onto an HTTP status and a stable kind label.
func classify(err error) (int, errorBody) {
	body := errorBody{Error: err.Error()}
	var (
		pe  *data.PersistenceError
		te  *aria2.TransportError
		pre *aria2.ProtocolError
		re  *aria2.RPCError
		se  *xtream.StatusError
	)
	switch {
	case errors.As(err, &pe):
		body.Kind, body.GID = "persistence", pe.GID
		return http.StatusInternalServerError, body
	case errors.Is(err, data.ErrInvalidArgument):
		body.Kind = "invalid_argument"
		return http.StatusBadRequest, body
	case errors.Is(err, data.ErrNotFound), errors.Is(err, downloader.ErrNotFound):
		body.Kind = "not_found"
		return http.StatusNotFound, body
	case errors.Is(err, data.ErrActionNotAllowed):
		body.Kind = "action_not_allowed"
		return http.StatusConflict, body
	case errors.Is(err, data.ErrConflict):
		body.Kind = "conflict"
		return http.StatusConflict, body
	case errors.Is(err, aria2.ErrAuthRejected):
		body.Kind, body.Error = "daemon_auth", "download daemon rejected the configured secret"
		return http.StatusBadGateway, body
	case errors.As(err, &te):
		body.Kind = "daemon_unreachable"
		return http.StatusServiceUnavailable, body
	case errors.As(err, &pre):
		body.Kind = "daemon_protocol"
		return http.StatusBadGateway, body
	case errors.As(err, &re):
		body.Kind = "daemon_error"
		return http.StatusBadGateway, body
	case errors.As(err, &se), errors.Is(err, xtream.ErrMalformed):
		body.Kind = "upstream"
		return http.StatusBadGateway, body
	default:
		body.Kind = "internal"
		return http.StatusInternalServerError, body
	}
}

// writeError records err for the access log and renders it.
func writeError(w http.ResponseWriter, err error) {
	markErr(w, err)
	code, body := classify(err)
	writeJSON(w, code, body)
}

// entryError renders a per-entry error inside a batch result.
func entryError(err error) errorBody {
	_, body := classify(err)
	return body
}
