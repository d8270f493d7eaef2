package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Shortens = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shorten_requests_total",
		Help: "Links created through the shorten endpoint.",
	})
	ShortenRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shorten_rejected_total",
		Help: "Shorten requests rejected, by reason.",
	}, []string{"reason"})
	GateOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_outcomes_total",
		Help: "Redirect gate results by outcome.",
	}, []string{"outcome"})
	Visits = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_visits_total",
		Help: "Visit dedup decisions by result.",
	}, []string{"result"})
	Clicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "link_clicks_total",
		Help: "Click counter increments after a completed gate.",
	})
	StoreDegraded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_degraded_reads_total",
		Help: "Store reads that failed and fell back to a default value.",
	}, []string{"op"})
)

func init() {
	prometheus.MustRegister(Shortens, ShortenRejected, GateOutcomes, Visits, Clicks, StoreDegraded)
}

func Handler(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}
