package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contact module.
// Tracks saves by outcome, deletions, validation rejections and store latency.
type Metrics struct {
	ContactsSaved      *prometheus.CounterVec
	ContactsDeleted    prometheus.Counter
	ValidationFailures *prometheus.CounterVec
	StoreDuration      *prometheus.HistogramVec
}

// Save outcomes.
const (
	OutcomeInserted = "inserted"
	OutcomeUpdated  = "updated"
)

// New creates the contact metrics and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ContactsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactbook_contacts_saved_total",
			Help: "Total number of contact saves, by outcome (inserted or updated)",
		}, []string{"outcome"}),
		ContactsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "contactbook_contacts_deleted_total",
			Help: "Total number of contacts deleted",
		}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "contactbook_validation_failures_total",
			Help: "Total number of rejected contact inputs, by field",
		}, []string{"field"}),
		StoreDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contactbook_gateway_duration_seconds",
			Help:    "Duration of gateway operations against the document store",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementSaved records a successful save with its outcome.
func (m *Metrics) IncrementSaved(outcome string) {
	if m == nil {
		return
	}
	m.ContactsSaved.WithLabelValues(outcome).Inc()
}

// IncrementDeleted records a successful delete.
func (m *Metrics) IncrementDeleted() {
	if m == nil {
		return
	}
	m.ContactsDeleted.Inc()
}

// IncrementValidationFailure records a rejected input field.
func (m *Metrics) IncrementValidationFailure(field string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(field).Inc()
}

// ObserveOperation records the duration of a gateway operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	if m == nil {
		return
	}
	m.StoreDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
