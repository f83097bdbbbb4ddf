package services

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeStored        = "stored"
	outcomeReplayed      = "replayed"
	outcomeInvalid       = "invalid"
	outcomePrepareFailed = "prepare_failed"
	outcomeWriteFailed   = "write_failed"
)

// submissionsTotal counts Submit outcomes per backend. Both labels are from
// small fixed sets.
var submissionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "contact_submissions_total",
		Help: "Contact form submissions by storage backend and outcome.",
	},
	[]string{"backend", "outcome"},
)

func init() {
	prometheus.MustRegister(submissionsTotal)
}

func observeSubmission(backend, outcome string) {
	submissionsTotal.WithLabelValues(backend, outcome).Inc()
}
