package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/DFE-Digital/trs-workforce/modules/workforce/services"

type metrics struct {
	loadRows        *prometheus.CounterVec
	itemResults     *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	maintenanceRows *prometheus.CounterVec
	exportRows      prometheus.Counter
	exportsTotal    *prometheus.CounterVec
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		loadRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workforce",
			Name:      "load_rows_total",
			Help:      "Extract rows loaded, by validity.",
		}, []string{"validity"}),
		itemResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workforce",
			Name:      "staged_item_results_total",
			Help:      "Staged items moved to a terminal result.",
		}, []string{"result"}),
		stageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "workforce",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline and maintenance stages.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}, []string{"stage", "status"}),
		maintenanceRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workforce",
			Name:      "maintenance_rows_total",
			Help:      "Employments changed by maintenance passes.",
		}, []string{"pass"}),
		exportRows: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "workforce",
			Name:      "export_rows_total",
			Help:      "Employment rows written to snapshot exports.",
		}),
		exportsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "workforce",
			Name:      "exports_total",
			Help:      "Snapshot exports by status.",
		}, []string{"status"}),
	}
})

func getMetrics() *metrics {
	return metricsSingleton()
}

// runStage wraps one stage in a span and records its duration.
func runStage(ctx context.Context, stage string, extractID uuid.UUID, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{attribute.String("stage", stage)}
	if extractID != uuid.Nil {
		attrs = append(attrs, attribute.String("extract_id", extractID.String()))
	}
	ctx, span := otel.Tracer(tracerName).Start(ctx, "workforce."+stage, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	status := "success"
	if err != nil {
		status = "failure"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	getMetrics().stageDuration.WithLabelValues(stage, status).Observe(time.Since(start).Seconds())
	return err
}
