package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lionzhd/lionz/internal/metrics"
	"github.com/lionzhd/lionz/internal/reconciler"
	"github.com/lionzhd/lionz/internal/router"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.APIAddr
			}
			metrics.Register()

			if a.cfg.WatchEvents {
				events, err := a.daemon.Events(cmd.Context())
				if err != nil {
					a.log.Warn("daemon notifications unavailable", "err", err)
				} else {
					w := reconciler.New(a.log, a.refs, events)
					w.Run()
					defer w.Stop()
				}
			}

			server := &http.Server{
				Addr: addr,
				Handler: router.New(a.log, router.Deps{
					Service:    a.svc,
					Downloader: a.daemon,
					Resolver:   a.resolver,
					Cache:      a.metadata,
					Token:      a.cfg.APIToken,
				}),
				IdleTimeout:  120 * time.Second,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 60 * time.Second,
			}
			if a.cfg.APIToken == "" {
				a.log.Warn("API_TOKEN is empty; every authenticated request will be rejected")
			}

			errCh := make(chan error, 1)
			go func() {
				a.log.Info("starting lionz API", "addr", server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			a.log.Info("received terminate, graceful shutdown")
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return server.Shutdown(sctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to API_ADDR)")
	return cmd
}
