package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/slok/fieldwork/internal/metrics"
	"github.com/slok/fieldwork/internal/model"
)

const prefix = "fieldwork"

// Recorder is a Prometheus metrics recorder.
type Recorder struct {
	stageDecisions  *prometheus.CounterVec
	actionsEnqueued *prometheus.CounterVec
	drains          *prometheus.CounterVec
	drainDuration   *prometheus.HistogramVec
	pendingActions  prometheus.Gauge
}

// NewRecorder returns a new Prometheus recorder registered on the registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		stageDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Subsystem: "lifecycle",
			Name:      "stage_decisions_total",
			Help:      "Total number of job stage gate decisions.",
		}, []string{"stage", "allowed", "reason"}),

		actionsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Subsystem: "offline",
			Name:      "actions_enqueued_total",
			Help:      "Total number of offline actions enqueued.",
		}, []string{"type", "persisted"}),

		drains: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: prefix,
			Subsystem: "offline",
			Name:      "queue_drains_total",
			Help:      "Total number of offline queue drains.",
		}, []string{"success"}),

		drainDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: prefix,
			Subsystem: "offline",
			Name:      "queue_drain_duration_seconds",
			Help:      "The duration of offline queue drains.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"success"}),

		pendingActions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: prefix,
			Subsystem: "offline",
			Name:      "pending_actions",
			Help:      "Number of offline actions left after the last drain.",
		}),
	}

	reg.MustRegister(
		r.stageDecisions,
		r.actionsEnqueued,
		r.drains,
		r.drainDuration,
		r.pendingActions,
	)

	return r
}

func (r Recorder) StageDecision(_ context.Context, target model.Stage, allowed bool, reason string) {
	r.stageDecisions.WithLabelValues(string(target), strconv.FormatBool(allowed), reason).Inc()
}

func (r Recorder) ActionEnqueued(_ context.Context, t model.ActionType, persisted bool) {
	r.actionsEnqueued.WithLabelValues(string(t), strconv.FormatBool(persisted)).Inc()
}

func (r Recorder) QueueDrained(_ context.Context, replayed, remaining int, duration time.Duration, success bool) {
	s := strconv.FormatBool(success)
	r.drains.WithLabelValues(s).Inc()
	r.drainDuration.WithLabelValues(s).Observe(duration.Seconds())
	r.pendingActions.Set(float64(remaining))
}

var _ metrics.Recorder = &Recorder{}
