package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/rulesmith/rulesmith/pkg/api"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command exposing the pipeline over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the generation pipeline over HTTP",
		Long: `Serve the generation pipeline over HTTP.

POST /api/v1/plugins accepts the same options the generate command takes
and runs the pipeline. GET /healthz reports liveness.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := c.newRunner(cmd.Context(), false)
			server := &http.Server{
				Addr:              addr,
				Handler:           api.NewServer(runner, c.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				c.Logger.Info("serving", "addr", addr)
				errCh <- server.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
				return cmd.Context().Err()
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	return cmd
}
