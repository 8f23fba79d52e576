package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var commandsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lockkv_commands_total",
	Help: "Wire commands handled, by command letter and reply",
}, []string{"command", "result"})

var commandDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "lockkv_command_duration_seconds",
	Help:    "Time spent dispatching a wire command",
	Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
}, []string{"command"})

var clientsLive = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "lockkv_clients_live",
	Help: "Client workers currently registered",
})

var clientsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "lockkv_clients_total",
	Help: "Client connections accepted since start",
})

var cancelBroadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "lockkv_cancel_broadcasts_total",
	Help: "Cancellation broadcasts sent to all clients, by reason",
}, []string{"reason"})

var pausedGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "lockkv_paused",
	Help: "1 while the pause gate is stopped",
})

var treeNodes = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "lockkv_tree_nodes",
	Help: "Keys stored in the tree",
})

// ObserveCommand records one dispatched command
func ObserveCommand(command, result string, d time.Duration) {
	commandsCounter.WithLabelValues(command, result).Inc()
	commandDuration.WithLabelValues(command).Observe(d.Seconds())
}

// ClientConnected counts a newly registered client
func ClientConnected() {
	clientsTotal.Inc()
	clientsLive.Inc()
}

// ClientDisconnected uncounts a client that finished cleanup
func ClientDisconnected() {
	clientsLive.Dec()
}

// CancelBroadcast counts a cancellation broadcast
func CancelBroadcast(reason string) {
	cancelBroadcasts.WithLabelValues(reason).Inc()
}

// SetPaused tracks the pause gate state
func SetPaused(paused bool) {
	if paused {
		pausedGauge.Set(1)
	} else {
		pausedGauge.Set(0)
	}
}

// SetTreeNodes tracks the tree size
func SetTreeNodes(n int) {
	treeNodes.Set(float64(n))
}
