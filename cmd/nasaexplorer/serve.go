package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Clemente-H/gradio-hackaton-mcp-nasa/internal/api"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			st, err := buildStack(logger)
			if err != nil {
				return err
			}

			srv := api.NewServer(st.cfg.HTTPAddr, logger, st.cfg.AuthConfig(), api.Sources{
				APOD:   st.apod,
				NEO:    st.neo,
				Rovers: st.rovers,
				Engine: st.engine,
			})

			// Graceful shutdown on SIGINT/SIGTERM.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server",
					"addr", st.cfg.HTTPAddr,
					"auth_enabled", st.cfg.AuthEnabled,
					"base_url", st.cfg.BaseURL,
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			logger.Info("shutting down server...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.HTTPServer().Shutdown(shutdownCtx); err != nil {
				return err
			}

			logger.Info("server stopped")
			return nil
		},
	}
}
