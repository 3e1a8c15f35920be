package v1

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/service"
)

// Resolver turns request ids into catalog items.
type Resolver interface {
	Movie(ctx context.Context, vodID int) (catalog.Item, error)
	Episode(ctx context.Context, seriesID, season, episode int) (catalog.Item, error)
	Episodes(ctx context.Context, seriesID int, refs []catalog.EpisodeRef) ([]catalog.Item, []error, error)
}

// Invalidator drops cached upstream metadata.
type Invalidator interface {
	Invalidate(ctx context.Context, kind data.MediaKind, id int) error
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type Handler struct {
	l        *slog.Logger
	svc      service.Download
	resolver Resolver
	cache    Invalidator
}

type rwLogger struct {
	http.ResponseWriter
	status int
	bytes  int
	err    error
}

func (w *rwLogger) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *rwLogger) SetErr(err error) {
	w.err = err
}

func (w *rwLogger) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

type errorSetter interface {
	SetErr(error)
}

func markErr(w http.ResponseWriter, err error) {
	if es, ok := w.(errorSetter); ok {
		es.SetErr(err)
	}
}

func NewHandler(l *slog.Logger, svc service.Download, resolver Resolver, cache Invalidator) *Handler {
	if l == nil {
		l = slog.Default()
	}
	return &Handler{l: l, svc: svc, resolver: resolver, cache: cache}
}

// pathInt reads a positive integer route variable.
func pathInt(r *http.Request, name string) (int, error) {
	v, err := strconv.Atoi(mux.Vars(r)[name])
	if err != nil || v <= 0 {
		return 0, ErrBadID
	}
	return v, nil
}

func badID(w http.ResponseWriter, err error) {
	markErr(w, err)
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func launchOptions(r *http.Request) map[string]any {
	body, _ := r.Context().Value(ctxKeyLaunch{}).(launchBody)
	return body.Options
}

// writeLaunch answers 201 for a new download and 200 when one was already
// active.
func (h *Handler) writeLaunch(w http.ResponseWriter, r *http.Request, item catalog.Item) {
	res, err := h.svc.Launch(r.Context(), item, launchOptions(r))
	if err != nil {
		writeError(w, err)
		return
	}
	code := http.StatusCreated
	if res.AlreadyActive {
		code = http.StatusOK
	}
	writeJSON(w, code, res)
}

// LaunchMovie handles POST /v1/movies/{id}/download.
func (h *Handler) LaunchMovie(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		badID(w, err)
		return
	}
	item, err := h.resolver.Movie(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLaunch(w, r, item)
}

// LaunchEpisode handles POST /v1/series/{id}/seasons/{season}/episodes/{episode}/download.
func (h *Handler) LaunchEpisode(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		badID(w, err)
		return
	}
	season, err := strconv.Atoi(mux.Vars(r)["season"])
	if err != nil {
		badID(w, err)
		return
	}
	episode, err := strconv.Atoi(mux.Vars(r)["episode"])
	if err != nil {
		badID(w, err)
		return
	}
	item, err := h.resolver.Episode(r.Context(), id, season, episode)
	if err != nil {
		writeError(w, err)
		return
	}
	h.writeLaunch(w, r, item)
}

type batchEntry struct {
	Index  int                   `json:"index"`
	Result *service.LaunchResult `json:"result,omitempty"`
	Error  *errorBody            `json:"error,omitempty"`
}

type batchResponse struct {
	Results []batchEntry `json:"results"`
	Failed  int          `json:"failed"`
}

// LaunchEpisodes handles POST /v1/series/{id}/episodes/download. Entries
// succeed or fail independently; the response is 200 with per-entry errors.
func (h *Handler) LaunchEpisodes(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		badID(w, err)
		return
	}
	body, ok := r.Context().Value(ctxKeyBatch{}).(batchBody)
	if !ok {
		markErr(w, ErrBodyCtx)
		http.Error(w, ErrBodyCtx.Error(), http.StatusInternalServerError)
		return
	}
	items, resolveErrs, err := h.resolver.Episodes(r.Context(), id, body.Episodes)
	if err != nil {
		writeError(w, err)
		return
	}
	outcomes, err := service.LaunchResolved(r.Context(), h.svc, items, resolveErrs, body.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := batchResponse{Results: make([]batchEntry, len(outcomes))}
	for i, o := range outcomes {
		resp.Results[i] = batchEntry{Index: o.Index, Result: o.Result}
		if o.Err != nil {
			eb := entryError(o.Err)
			resp.Results[i].Error = &eb
			resp.Failed++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetDownloads handles GET /v1/downloads?limit=&offset=.
func (h *Handler) GetDownloads(w http.ResponseWriter, r *http.Request) {
	limit, offset := defaultPageSize, 0
	q := r.URL.Query()
	if s := q.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			badID(w, ErrPaging)
			return
		}
		limit = min(v, maxPageSize)
	}
	if s := q.Get("offset"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			badID(w, ErrPaging)
			return
		}
		offset = v
	}
	rows, err := h.svc.Downloads(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetStatus handles GET /v1/downloads/status?gid=a&gid=b.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	gids := r.URL.Query()["gid"]
	if len(gids) == 0 {
		markErr(w, ErrNoGIDs)
		http.Error(w, ErrNoGIDs.Error(), http.StatusBadRequest)
		return
	}
	views, err := h.svc.StatusFor(r.Context(), gids)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// UpdateDownload handles PATCH /v1/downloads/{id}.
func (h *Handler) UpdateDownload(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		badID(w, err)
		return
	}
	action, ok := r.Context().Value(ctxKeyPatch{}).(data.Action)
	if !ok {
		markErr(w, ErrBodyCtx)
		http.Error(w, ErrBodyCtx.Error(), http.StatusInternalServerError)
		return
	}
	res, err := h.svc.Control(r.Context(), int64(id), action)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DeleteDownload handles DELETE /v1/downloads/{id}.
func (h *Handler) DeleteDownload(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		badID(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), int64(id)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvalidateMovie handles DELETE /v1/movies/{id}/cache.
func (h *Handler) InvalidateMovie(w http.ResponseWriter, r *http.Request) {
	h.invalidate(w, r, data.KindMovie)
}

// InvalidateSeries handles DELETE /v1/series/{id}/cache.
func (h *Handler) InvalidateSeries(w http.ResponseWriter, r *http.Request) {
	h.invalidate(w, r, data.KindSeries)
}

func (h *Handler) invalidate(w http.ResponseWriter, r *http.Request, kind data.MediaKind) {
	id, err := pathInt(r, "id")
	if err != nil {
		badID(w, err)
		return
	}
	if err := h.cache.Invalidate(r.Context(), kind, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
