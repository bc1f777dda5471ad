package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReconcileOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtsync_reconcile_outcomes_total",
		Help: "Reconciliation plan outcomes per proposed debt change",
	}, []string{"outcome"}) // auto_accept, intention, unmirrored, no_op

	BatchItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtsync_batch_items_total",
		Help: "Per-item batch mutation results by error kind",
	}, []string{"result"})

	BatchRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debtsync_batches_rejected_total",
		Help: "Whole batches rejected by duplicate-key detection",
	})

	IntentionAccepts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debtsync_intention_accepts_total",
		Help: "Intention acceptance attempts by result",
	}, []string{"result"})
)
