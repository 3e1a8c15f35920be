package router

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	v1 "github.com/lionzhd/lionz/api/v1"
	"github.com/lionzhd/lionz/internal/auth"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/metrics"
	"github.com/lionzhd/lionz/internal/service"
)

// readyTimeout bounds the daemon ping behind /readyz.
const readyTimeout = 3 * time.Second

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Service    service.Download
	Downloader downloader.Downloader
	Resolver   v1.Resolver
	Cache      v1.Invalidator
	Token      string
}

// New sets up the application routes and required middleware.
func New(logger *slog.Logger, d Deps) *mux.Router {
	metrics.Register()

	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Error("write healthz response", "err", err)
		}
	}).Methods("GET")

	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := d.Downloader.Ping(ctx); err != nil {
			logger.Warn("readiness check failed", "err", err)
			http.Error(w, "download daemon unavailable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	h := v1.NewHandler(logger, d.Service, d.Resolver, d.Cache)

	r.Use(v1.RequestID)
	r.Use(h.Log)
	r.Use(auth.Middleware(d.Token))

	api := r.PathPrefix("/v1").Subrouter()

	// GETs
	get := api.Methods("GET").Subrouter()
	get.HandleFunc("/downloads", h.GetDownloads)
	get.HandleFunc("/downloads/status", h.GetStatus)

	// POSTs
	launch := api.Methods("POST").Subrouter()
	launch.HandleFunc("/movies/{id:[0-9]+}/download", h.LaunchMovie)
	launch.HandleFunc("/series/{id:[0-9]+}/seasons/{season:[0-9]+}/episodes/{episode:[0-9]+}/download", h.LaunchEpisode)
	launch.Use(v1.MiddlewareLaunchBody)

	batch := api.Methods("POST").Subrouter()
	batch.HandleFunc("/series/{id:[0-9]+}/episodes/download", h.LaunchEpisodes)
	batch.Use(v1.MiddlewareBatchBody)

	// PATCHes
	patch := api.Methods("PATCH").Subrouter()
	patch.HandleFunc("/downloads/{id:[0-9]+}", h.UpdateDownload)
	patch.Use(v1.MiddlewarePatchAction)

	// DELETEs
	del := api.Methods("DELETE").Subrouter()
	del.HandleFunc("/downloads/{id:[0-9]+}", h.DeleteDownload)
	del.HandleFunc("/movies/{id:[0-9]+}/cache", h.InvalidateMovie)
	del.HandleFunc("/series/{id:[0-9]+}/cache", h.InvalidateSeries)

	return r
}
