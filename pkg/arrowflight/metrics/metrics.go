// Package metrics exposes Prometheus counters and gauges for allocator
// usage, flush throughput, and job lifecycle transitions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllocatorBytesInUse tracks live accounted bytes per named allocator
	// node, sampled whenever Allocate/Free run.
	AllocatorBytesInUse = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "neo4j_arrow",
		Subsystem: "allocator",
		Name:      "bytes_in_use",
		Help:      "Bytes currently accounted for by an allocator tree node.",
	}, []string{"node"})

	// FlushedBatches counts record batches written by the flush pipeline.
	FlushedBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neo4j_arrow",
		Subsystem: "flush",
		Name:      "batches_total",
		Help:      "Record batches written to clients by the flush pipeline.",
	})

	// FlushedRows counts rows written by the flush pipeline.
	FlushedRows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neo4j_arrow",
		Subsystem: "flush",
		Name:      "rows_total",
		Help:      "Rows written to clients by the flush pipeline.",
	})

	// FlushErrors counts pipeline failures.
	FlushErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "neo4j_arrow",
		Subsystem: "flush",
		Name:      "errors_total",
		Help:      "Flush pipeline failures.",
	})

	// JobsByState tracks the number of jobs currently in each lifecycle
	// state, keyed by the job.State string.
	JobsByState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "neo4j_arrow",
		Subsystem: "job",
		Name:      "count",
		Help:      "Number of jobs currently in each lifecycle state.",
	}, []string{"state"})
)
