package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// System metrics
	SystemMemoryUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fingraph_system_memory_bytes",
		Help: "Current system memory usage",
	})

	SystemGoroutines = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fingraph_system_goroutines",
		Help: "Number of goroutines",
	})

	// Ingestion metrics
	RecordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingraph_records_loaded_total",
			Help: "Rows read by source format",
		},
		[]string{"format"},
	)

	RecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingraph_records_dropped_total",
			Help: "Rows rejected by the normalizer",
		},
		[]string{"reason"},
	)

	// Graph metrics
	GraphNodeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fingraph_graph_nodes",
		Help: "Companies in the last built graph",
	})

	GraphEdgeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fingraph_graph_edges",
		Help: "Co-occurrence edges in the last built graph",
	})

	DateGroupsLimited = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingraph_date_groups_limited_total",
			Help: "Date groups that exceeded the size cap",
		},
		[]string{"action"},
	)

	// Sink metrics
	SinkWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fingraph_sink_writes_total",
			Help: "Items merged into a graph store",
		},
		[]string{"store", "kind"},
	)
)

// UpdateSystemMetrics updates system-level metrics
func UpdateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	SystemMemoryUsage.Set(float64(m.Alloc))
	SystemGoroutines.Set(float64(runtime.NumGoroutine()))
}
