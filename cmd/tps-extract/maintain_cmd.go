package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/services"
	"github.com/DFE-Digital/trs-workforce/pkg/metrics"
	"github.com/DFE-Digital/trs-workforce/pkg/middleware"
	"github.com/DFE-Digital/trs-workforce/pkg/server"
)

func newMaintainCmd() *cobra.Command {
	var once bool
	cmd := &cobra.Command{
		Use:   "maintain",
		Short: "Run periodic establishment refresh, stale sweep and export",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, func(ctx context.Context, a *app) error {
				runner, err := newRunner(a)
				if err != nil {
					return withCode(exitUsage, err)
				}
				if once {
					res, err := runner.RunOnce(ctx)
					if err != nil {
						return classify(err, exitDBWrite)
					}
					return writeJSONLine(res)
				}
				return runDaemon(ctx, a, runner)
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "Run a single pass and exit")
	return cmd
}

func newRunner(a *app) (*services.MaintenanceRunner, error) {
	m := a.conf.Maintenance
	var pipeline *services.Pipeline
	if m.ImportPending {
		p, err := a.pipeline()
		if err != nil {
			return nil, err
		}
		pipeline = p
	}
	return services.NewMaintenanceRunner(a.pool, a.maintenance(), a.exporter(), pipeline, services.RunnerOptions{
		Interval:      m.Interval,
		Export:        m.Export,
		ImportPending: m.ImportPending,
		SingleActive:  m.SingleActive,
		Logger:        a.opts.Logger.WithField("component", "maintenance"),
	})
}

// runDaemon serves /health (and metrics when enabled) next to the runner until a
// signal arrives or either side fails.
func runDaemon(ctx context.Context, a *app, runner *services.MaintenanceRunner) error {
	controllers := []server.Controller{
		server.NewHealthController(func(ctx context.Context) error {
			return a.pool.Ping(ctx)
		}),
	}
	if a.conf.Prometheus.Enabled {
		controllers = append(controllers, metrics.NewPrometheusController(a.conf.Prometheus.Path))
	}
	srv := server.NewHTTPServer(controllers, middleware.WithLogger(a.logger))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(ctx, a.conf.Maintenance.Addr)
	})
	g.Go(func() error {
		return runner.Run(ctx)
	})

	a.logger.WithField("addr", a.conf.Maintenance.Addr).Info("maintenance daemon started")
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		a.logger.Info("maintenance daemon stopped")
		return nil
	}
	return classify(err, exitDB)
}
