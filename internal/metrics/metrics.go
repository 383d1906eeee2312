package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sourcing_api"

var (
	// StageTransitionsTotal counts pipeline stage transitions by trigger:
	// manual, supplier_added, supplier_removed, consistency_sweep
	StageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_transitions_total",
			Help:      "Total number of opportunity stage transitions",
		},
		[]string{"trigger", "to_stage"},
	)

	// ImportRowsTotal counts processed bulk import rows by outcome:
	// created, updated, skipped, invalid, error
	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Total number of bulk import rows processed",
		},
		[]string{"outcome"},
	)

	// ImportBatchesTotal counts import runs by mode
	ImportBatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_batches_total",
			Help:      "Total number of bulk import runs",
		},
		[]string{"mode"},
	)

	// ConsistencySweepRewritesTotal counts opportunities the nightly sweep had to fix
	ConsistencySweepRewritesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "consistency_sweep_rewrites_total",
		Help:      "Total number of opportunities moved back by the consistency sweep",
	})

	// FxRatesSyncedTotal counts reference FX rates upserted from the warehouse
	FxRatesSyncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fx_rates_synced_total",
		Help:      "Total number of reference FX rates synced from the warehouse",
	})
)
