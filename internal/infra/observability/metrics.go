package observability

import (
	"time"

	"github.com/boddenberg/agent-hub-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration       *prometheus.HistogramVec
	externalErrors        *prometheus.CounterVec
	cacheHits             *prometheus.CounterVec
	cacheMisses           *prometheus.CounterVec
	requestsTotal         *prometheus.CounterVec
	installmentsGenerated prometheus.Counter
	approvalTransitions   *prometheus.CounterVec
	notificationsSent     *prometheus.CounterVec
	invitationsSent       prometheus.Counter
	scheduleWarnings      prometheus.Counter
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agenthub_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenthub_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenthub_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenthub_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenthub_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
		installmentsGenerated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agenthub_installments_generated_total",
				Help: "Total commission installments generated.",
			},
		),
		approvalTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenthub_approval_transitions_total",
				Help: "Total commission approval status changes by target status.",
			},
			[]string{"status"},
		),
		notificationsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agenthub_notifications_total",
				Help: "Total notifications created by type.",
			},
			[]string{"type"},
		),
		invitationsSent: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agenthub_invitations_total",
				Help: "Total agent invitations created.",
			},
		),
		scheduleWarnings: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "agenthub_schedule_percentage_warnings_total",
				Help: "Payment schedules whose percentages do not sum to 100.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// AddInstallmentsGenerated counts freshly generated installments.
func (m *Metrics) AddInstallmentsGenerated(n int) {
	m.installmentsGenerated.Add(float64(n))
}

// IncrApprovalTransition counts an approval moving to status.
func (m *Metrics) IncrApprovalTransition(status string) {
	m.approvalTransitions.WithLabelValues(status).Inc()
}

// IncrNotification counts a created notification.
func (m *Metrics) IncrNotification(notificationType string) {
	m.notificationsSent.WithLabelValues(notificationType).Inc()
}

// IncrInvitation counts a created invitation.
func (m *Metrics) IncrInvitation() {
	m.invitationsSent.Inc()
}

// IncrScheduleWarning counts a schedule whose percentages are off.
func (m *Metrics) IncrScheduleWarning() {
	m.scheduleWarnings.Inc()
}

// Snapshot returns cumulative counters for GET /v1/metrics/summary.
func (m *Metrics) Snapshot() *domain.MetricsSummary {
	success := getCounterValue(m.requestsTotal, "success")
	failed := getCounterValue(m.requestsTotal, "error")
	total := success + failed

	hits := sumCounterVec(m.cacheHits)
	misses := sumCounterVec(m.cacheMisses)

	errorRate := float64(0)
	if total > 0 {
		errorRate = failed / total
	}
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.MetricsSummary{
		TotalRequests:         int64(total),
		ErrorRate:             errorRate,
		ExternalErrors:        int64(sumCounterVec(m.externalErrors)),
		CacheHitRate:          cacheHitRate,
		InstallmentsGenerated: int64(counterValue(m.installmentsGenerated)),
		ApprovalTransitions:   int64(sumCounterVec(m.approvalTransitions)),
		NotificationsSent:     int64(sumCounterVec(m.notificationsSent)),
		InvitationsSent:       int64(counterValue(m.invitationsSent)),
		ScheduleWarnings:      int64(counterValue(m.scheduleWarnings)),
		Period:                "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	return counterValue(cv.WithLabelValues(label))
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

// sumCounterVec adds up every label combination of a CounterVec.
func sumCounterVec(cv *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 32)
	go func() {
		cv.Collect(ch)
		close(ch)
	}()

	var total float64
	for metric := range ch {
		m := &dto.Metric{}
		if err := metric.Write(m); err != nil {
			continue
		}
		if m.Counter != nil && m.Counter.Value != nil {
			total += *m.Counter.Value
		}
	}
	return total
}
