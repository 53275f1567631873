package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	httpctrl "github.com/sangam-civic/sangam/pkg/controller/http"
	"github.com/sangam-civic/sangam/pkg/service/worker"
	"github.com/sangam-civic/sangam/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var consolidateInterval time.Duration
	var prune bool
	var engineCfg engineConfig

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("SANGAM_ADDR"),
			Destination: &addr,
		},
		&cli.DurationFlag{
			Name:        "consolidate-interval",
			Usage:       "Run consolidation periodically at this interval (0 disables)",
			Sources:     cli.EnvVars("SANGAM_CONSOLIDATE_INTERVAL"),
			Destination: &consolidateInterval,
		},
		&cli.BoolFlag{
			Name:        "prune",
			Usage:       "Prune stale threads in periodic consolidation runs",
			Sources:     cli.EnvVars("SANGAM_PRUNE"),
			Destination: &prune,
		},
	}

	// Add shared config flags
	flags = append(flags, engineCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			uc, closer, err := engineCfg.configure(ctx)
			if err != nil {
				return err
			}
			defer closer()

			var consolidationWorker *worker.ConsolidationWorker
			if consolidateInterval > 0 {
				consolidationWorker = worker.NewConsolidationWorker(uc.Consolidate, consolidateInterval, prune)
				if err := consolidationWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start consolidation worker")
				}
			}

			server := &http.Server{
				Addr:              addr,
				Handler:           httpctrl.New(uc),
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "consolidate_interval", consolidateInterval.String())
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				if consolidationWorker != nil {
					consolidationWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop the worker first so no run starts during shutdown
				if consolidationWorker != nil {
					consolidationWorker.Stop()
				}

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
