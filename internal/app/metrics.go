package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	netlistProblems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuitgrid_netlist_problems",
		Help: "Design-rule problems found in the latest netlist of each circuit.",
	}, []string{"circuit"})

	snapshotsSaved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "circuitgrid_snapshots_saved_total",
		Help: "Circuit snapshots written to the store.",
	})

	bookkeepingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuitgrid_bookkeeping_runs_total",
		Help: "Background bookkeeping passes by outcome.",
	}, []string{"outcome"})
)
