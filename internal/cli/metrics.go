package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/leadrouter/internal/wire"
)

// MetricsCmd returns the metrics command group.
func MetricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Expose engine metrics",
	}

	var addr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve Prometheus metrics until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := wire.Get()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = c.Config.Metrics.Addr
			}

			mux := http.NewServeMux()
			mux.Handle("/metrics", c.Metrics.Handler())
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe()
			}()
			c.Logger.Info("serving metrics", "addr", addr)
			fmt.Printf("✓ Serving metrics on %s/metrics\n", addr)

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("metrics server failed: %w", err)
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	serve.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to metrics.addr from config)")

	cmd.AddCommand(serve)
	return cmd
}
