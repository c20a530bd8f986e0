package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"images_to_pdf/api"
	"images_to_pdf/internal/workspace"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the image workspace over a local HTTP API",
		Long: `Starts the workspace HTTP API. A single workspace holds the uploaded images,
their order and rotation, and the conversion options. The server binds to the
loopback interface by default; images never leave the machine.`,
		Example: `  # Start server on the default address
  images-to-pdf serve

  # Start server on a custom address
  images-to-pdf serve --addr 127.0.0.1:3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			t := cfg.NewTransformer()
			ws := workspace.New(cfg.NewIngester(), t, cfg.NewAssembler(t), cfg.Options)
			ws.Subscribe(func(s workspace.Snapshot) {
				slog.Debug("Workspace changed", "images", len(s.Records), "state", s.State, "progress", s.Progress)
			})

			server := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           api.NewRouter(api.NewHandler(ws, cfg)),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Workspace API available", "addr", cfg.Server.Addr, "url", "http://"+cfg.Server.Addr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Address to listen on (default from config, 127.0.0.1:8787)")

	return cmd
}
