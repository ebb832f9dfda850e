package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/legadoives/transcritor/internal/api"
	"github.com/legadoives/transcritor/internal/pipeline"
)

func newServeCommand(verbose *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose, true)
			if err != nil {
				return err
			}

			// Fail fast on missing credentials instead of on the first
			// request.
			if _, err := a.transcriber(); err != nil {
				return err
			}

			factory := func() *pipeline.Orchestrator {
				orch, err := a.newOrchestrator()
				if err != nil {
					// transcriber() above already validated config.
					panic(err)
				}
				return orch
			}

			handler := api.NewRouter(a.mediaService(), factory, a.rdb, a.logger)
			srv := &http.Server{
				Addr:              a.cfg.Addr(),
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.logger.Info("server listening", "addr", srv.Addr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return nil
		},
	}
}
