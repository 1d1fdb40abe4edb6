package vault

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// attemptsTotal tracks remote-call attempts per operation, including
	// retries.
	attemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudvault_remote_attempts_total",
			Help: "Total remote call attempts, including retries",
		},
		[]string{"operation"},
	)

	// decisionsTotal tracks retry policy decisions per operation and outcome.
	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudvault_retry_decisions_total",
			Help: "Retry policy classifications of remote call completions",
		},
		[]string{"operation", "outcome"},
	)

	// failuresTotal tracks terminal operation failures per operation.
	failuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cloudvault_operation_failures_total",
			Help: "Total terminal operation failures",
		},
		[]string{"operation"},
	)
)
