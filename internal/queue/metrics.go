package queue

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kiranshivaraju/scribe/pkg/models"
)

// meterName is the instrumentation scope name for queue metrics.
const meterName = "github.com/kiranshivaraju/scribe/internal/queue"

// Metrics is an Observer that records queue activity with OpenTelemetry.
// Without a configured MeterProvider the instruments are noops.
//
// Instruments:
//   - scribe.jobs.submitted (Int64Counter), attribute job_type
//   - scribe.jobs.finished (Int64Counter), attributes job_type, status
//   - scribe.job.duration (Float64Histogram), run time in seconds of
//     completed and failed jobs
type Metrics struct {
	submitted metric.Int64Counter
	finished  metric.Int64Counter
	duration  metric.Float64Histogram
}

// NewMetrics creates Metrics on the global MeterProvider.
func NewMetrics() *Metrics {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates Metrics on the given meter.
func NewMetricsWithMeter(meter metric.Meter) *Metrics {
	// On error the API hands back noop instruments.
	submitted, _ := meter.Int64Counter(
		"scribe.jobs.submitted",
		metric.WithDescription("Total number of submitted jobs"),
		metric.WithUnit("{job}"),
	)
	finished, _ := meter.Int64Counter(
		"scribe.jobs.finished",
		metric.WithDescription("Total number of jobs that reached a terminal state"),
		metric.WithUnit("{job}"),
	)
	duration, _ := meter.Float64Histogram(
		"scribe.job.duration",
		metric.WithDescription("Duration of job execution in seconds"),
		metric.WithUnit("s"),
	)
	return &Metrics{submitted: submitted, finished: finished, duration: duration}
}

// RegisterDepthGauge reports the queue depth and in-flight count through an
// observable gauge on meter.
func RegisterDepthGauge(meter metric.Meter, q *Queue) error {
	_, err := meter.Int64ObservableGauge(
		"scribe.queue.depth",
		metric.WithDescription("Number of job ids waiting for the worker"),
		metric.WithUnit("{job}"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(q.Info().QueueDepth))
			return nil
		}),
	)
	return err
}

func (m *Metrics) JobChanged(ctx context.Context, job models.Job) {
	typeAttr := attribute.String("job_type", job.Type)

	switch {
	case job.Status == models.JobStatusPending:
		m.submitted.Add(ctx, 1, metric.WithAttributes(typeAttr))
	case job.Status.IsTerminal():
		attrs := metric.WithAttributes(typeAttr, attribute.String("status", string(job.Status)))
		m.finished.Add(ctx, 1, attrs)
		if job.StartedAt != nil {
			m.duration.Record(ctx, job.Duration().Seconds(), attrs)
		}
	}
}

var _ Observer = (*Metrics)(nil)
