package service

import "github.com/prometheus/client_golang/prometheus"

// Submission outcomes recorded in loan_submissions_total.
const (
	outcomeCommitted          = "committed"
	outcomeReplayed           = "replayed"
	outcomeRejected           = "rejected"
	outcomeUploadFailed       = "upload_failed"
	outcomePersistenceFailed  = "persistence_failed"
	outcomeNotificationFailed = "notification_failed"
)

// Metrics counts coordinator outcomes. A nil *Metrics records nothing.
type Metrics struct {
	submissions   *prometheus.CounterVec
	compensations *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
}

// NewMetrics registers the coordinator collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_submissions_total",
				Help: "Loan application submissions by outcome.",
			},
			[]string{"outcome"},
		),
		compensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loan_compensations_total",
				Help: "Compensating actions taken after a failed submission.",
			},
			[]string{"store", "result"},
		),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loan_submission_stage_duration_seconds",
				Help:    "Duration of each submission stage.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
	}
	for _, c := range []prometheus.Collector{m.submissions, m.compensations, m.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) submission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) compensation(store string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.compensations.WithLabelValues(store, result).Inc()
}

func (m *Metrics) observeStage(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(seconds)
}
