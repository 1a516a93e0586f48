// Package metrics holds the Prometheus collectors of the lots server.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SessionsCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lots_sessions_created_total",
		Help: "Total number of map sessions created",
	})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "lots_sessions_active",
		Help: "Number of live map sessions",
	})
	SessionsExpiredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lots_sessions_expired_total",
		Help: "Total number of idle map sessions swept",
	})
	EventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lots_events_total",
		Help: "Map events handled, by kind and outcome",
	}, []string{"kind", "outcome"})
	EventDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lots_event_duration_ms",
		Help:    "Event handling duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 50, 100},
	})
	CommandsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lots_commands_total",
		Help: "Map commands sent to clients, by op",
	}, []string{"op"})
	LoadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lots_loads_total",
		Help: "Lot data loads, by outcome",
	}, []string{"outcome"})
	LoadDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "lots_load_duration_ms",
		Help:    "Lot data load duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 5000},
	})
)

func init() {
	prometheus.MustRegister(SessionsCreatedTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(SessionsExpiredTotal)
	prometheus.MustRegister(EventsTotal)
	prometheus.MustRegister(EventDurationMs)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(LoadsTotal)
	prometheus.MustRegister(LoadDurationMs)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
