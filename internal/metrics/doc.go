// Package metrics provides request metrics collection and reporting.
//
// Two views are offered. Metrics is an in-process collector of request
// counts, throughput (RPS) and latency percentiles; the load generator uses
// it to report a run. The package-level functions (ObserveCommand,
// ClientConnected, SetPaused, ...) feed Prometheus collectors registered on
// the default registry, exported by the admin API at /metrics.
//
// # Basic Usage
//
//	m := metrics.New()
//	start := time.Now()
//	// ... do work ...
//	m.RecordSuccess(time.Since(start))
//	snap := m.Snapshot()
//	fmt.Printf("Total: %d, RPS: %.2f, P99: %v\n",
//	    snap.TotalRequests, snap.RPS, snap.P99Latency)
//
// # Configuration
//
//	m := metrics.NewWithConfig(metrics.Config{MaxLatencySamples: 5000})
//
// # Thread Safety
//
// All operations are safe for concurrent use.
package metrics
