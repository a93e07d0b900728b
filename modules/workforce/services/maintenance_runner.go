package services

import (
	"context"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

const maintenanceLockName = "workforce:maintenance"

var leaderGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "workforce",
	Name:      "maintenance_leader",
	Help:      "Whether this instance holds the maintenance lock (1/0).",
})

type RunnerOptions struct {
	Interval      time.Duration
	Export        bool
	ImportPending bool
	// SingleActive makes instances compete for a PostgreSQL advisory lock. Only the
	// holder runs passes.
	SingleActive  bool
	RetryInterval time.Duration

	Logger *logrus.Entry
}

func (o *RunnerOptions) setDefaults() {
	if o.Interval == 0 {
		o.Interval = 24 * time.Hour
	}
	if o.RetryInterval == 0 {
		o.RetryInterval = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = logrusNop()
	}
}

// PassResult is what one maintenance tick did.
type PassResult struct {
	Imported  []PendingResult `json:"imported,omitempty"`
	Repointed int64           `json:"repointed"`
	Closed    int64           `json:"closed"`
	Export    *ExportResult   `json:"export,omitempty"`
}

// MaintenanceRunner periodically runs the maintenance passes.
type MaintenanceRunner struct {
	pool        *pgxpool.Pool
	maintenance *MaintenanceService
	exporter    *ExportService
	pipeline    *Pipeline
	opts        RunnerOptions
	lockKey     int64
	rand        *rand.Rand
}

func NewMaintenanceRunner(pool *pgxpool.Pool, maintenance *MaintenanceService, exporter *ExportService, pipeline *Pipeline, opts RunnerOptions) (*MaintenanceRunner, error) {
	if maintenance == nil {
		return nil, invalidConfig("maintenance service is required")
	}
	if opts.SingleActive && pool == nil {
		return nil, invalidConfig("pool is required for single-active maintenance")
	}
	if opts.Export && exporter == nil {
		return nil, invalidConfig("exporter is required when export is enabled")
	}
	if opts.ImportPending && pipeline == nil {
		return nil, invalidConfig("pipeline is required when import-pending is enabled")
	}
	opts.setDefaults()
	return &MaintenanceRunner{
		pool:        pool,
		maintenance: maintenance,
		exporter:    exporter,
		pipeline:    pipeline,
		opts:        opts,
		lockKey:     advisoryLockKey(maintenanceLockName),
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec
	}, nil
}

// Run ticks until ctx is done. The first pass runs immediately.
func (r *MaintenanceRunner) Run(ctx context.Context) error {
	if r.opts.SingleActive {
		return r.runSingleActive(ctx)
	}
	leaderGauge.Set(1)
	return r.runLoop(ctx)
}

func (r *MaintenanceRunner) runSingleActive(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := r.pool.Acquire(ctx)
		if err != nil {
			r.opts.Logger.WithError(err).Warn("maintenance: failed to acquire connection")
			if err := sleep(ctx, r.opts.RetryInterval); err != nil {
				return err
			}
			continue
		}

		var leader bool
		if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1::bigint)`, r.lockKey).Scan(&leader); err != nil {
			conn.Release()
			r.opts.Logger.WithError(err).Warn("maintenance: failed to attempt advisory lock")
			if err := sleep(ctx, r.opts.RetryInterval); err != nil {
				return err
			}
			continue
		}
		if !leader {
			leaderGauge.Set(0)
			conn.Release()
			if err := sleep(ctx, r.opts.RetryInterval); err != nil {
				return err
			}
			continue
		}

		leaderGauge.Set(1)
		r.opts.Logger.Info("maintenance: became leader")
		err = r.runLoop(ctx)
		_, _ = conn.Exec(context.Background(), `SELECT pg_advisory_unlock($1::bigint)`, r.lockKey)
		conn.Release()
		leaderGauge.Set(0)
		return err
	}
}

// runLoop runs a pass every Interval. After a failed pass the next one is retried with
// exponential backoff from RetryInterval, capped at Interval.
func (r *MaintenanceRunner) runLoop(ctx context.Context) error {
	failures := 0
	for {
		wait := r.opts.Interval
		if _, err := r.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			failures++
			wait = backoff(failures, r.opts.RetryInterval, r.opts.Interval) + jitter(r.rand, r.opts.RetryInterval/2)
			r.opts.Logger.WithError(err).WithFields(logrus.Fields{
				"failures": failures,
				"retry_in": wait,
			}).Warn("maintenance: pass failed")
		} else {
			failures = 0
		}

		if err := sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// RunOnce runs one maintenance tick: pending imports when enabled, establishment
// refresh, stale sweep, then export when enabled. A failing pass stops the tick.
func (r *MaintenanceRunner) RunOnce(ctx context.Context) (PassResult, error) {
	var res PassResult
	var err error

	if r.opts.ImportPending {
		if res.Imported, err = r.pipeline.ImportPending(ctx); err != nil {
			return res, errors.Wrap(err, "import pending")
		}
	}
	if res.Repointed, err = r.maintenance.RefreshEstablishments(ctx); err != nil {
		return res, errors.Wrap(err, "refresh establishments")
	}
	if res.Closed, err = r.maintenance.SweepStale(ctx); err != nil {
		return res, errors.Wrap(err, "sweep")
	}
	if r.opts.Export {
		exp, err := r.exporter.Export(ctx)
		if err != nil {
			return res, errors.Wrap(err, "export")
		}
		res.Export = &exp
	}
	return res, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func advisoryLockKey(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
