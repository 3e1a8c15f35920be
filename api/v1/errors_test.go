package v1

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/xtream"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		kind string
	}{
		{"invalid", fmt.Errorf("%w: empty batch", data.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{"ref missing", data.ErrNotFound, http.StatusNotFound, "not_found"},
		{"gid missing", downloader.ErrNotFound, http.StatusNotFound, "not_found"},
		{"not allowed", fmt.Errorf("%w: x", data.ErrActionNotAllowed), http.StatusConflict, "action_not_allowed"},
		{"conflict", data.ErrConflict, http.StatusConflict, "conflict"},
		{"auth", &aria2.RPCError{Method: "aria2.addUri", Code: 1, Message: "Unauthorized"}, http.StatusBadGateway, "daemon_auth"},
		{"transport", &aria2.TransportError{Attempts: 4, Err: errors.New("refused")}, http.StatusServiceUnavailable, "daemon_unreachable"},
		{"protocol", &aria2.ProtocolError{Sent: 2, Received: 1}, http.StatusBadGateway, "daemon_protocol"},
		{"rpc", &aria2.RPCError{Method: "aria2.addUri", Code: 1, Message: "No URI"}, http.StatusBadGateway, "daemon_error"},
		{"upstream", &xtream.StatusError{Action: xtream.ActionGetVodInfo, Code: 500}, http.StatusBadGateway, "upstream"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, body := classify(tc.err)
			if code != tc.code || body.Kind != tc.kind {
				t.Fatalf("got %d/%s, want %d/%s", code, body.Kind, tc.code, tc.kind)
			}
		})
	}
}

func TestClassifyPersistenceCarriesGID(t *testing.T) {
	code, body := classify(&data.PersistenceError{GID: "g1", Err: errors.New("disk full")})
	if code != http.StatusInternalServerError || body.GID != "g1" || body.Kind != "persistence" {
		t.Fatalf("got %d %+v", code, body)
	}
}
