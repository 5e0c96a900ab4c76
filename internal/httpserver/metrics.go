package httpserver

import "github.com/prometheus/client_golang/prometheus"

var (
	messagesSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "walletfeed_messages_submitted_total",
		Help: "Messages accepted and stored.",
	})

	linksSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "walletfeed_links_submitted_total",
		Help: "Profile links merged into user link documents.",
	})

	duplicatesRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "walletfeed_duplicates_rejected_total",
		Help: "Submissions rejected by the duplicate check.",
	})

	watchConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "walletfeed_watch_connections",
		Help: "Open WebSocket watch connections.",
	})
)

func init() {
	prometheus.MustRegister(messagesSubmitted, linksSubmitted, duplicatesRejected, watchConnections)
}
