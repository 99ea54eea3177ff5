// Package metrics exposes Prometheus collectors for the lander server.
//
// Label values are bounded: no session IDs or client addresses are used as labels.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wricardo/lunar-lander/game/engine"
	"github.com/wricardo/lunar-lander/game/service"
)

var (
	// Simulation metrics
	tickDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lander_tick_batch_duration_seconds",
		Help:    "Time spent running a batch of simulation ticks",
		Buckets: []float64{0.00001, 0.0001, 0.001, 0.005, 0.01, 0.05},
	}, []string{"mode"}) // "step", "realtime"

	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lander_ticks_total",
		Help: "Total simulation ticks executed",
	}, []string{"mode"})

	flightsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lander_flights_total",
		Help: "Completed flights by outcome",
	}, []string{"outcome"}) // "landed", "crashed"

	touchdownSpeed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "lander_touchdown_vertical_speed",
		Help:    "Vertical speed at contact with the landing zone, in pixels per tick",
		Buckets: []float64{0.25, 0.5, 1, 1.5, 2, 3, 5},
	})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lander_active_sessions",
		Help: "Current number of sessions",
	})

	// HTTP metrics with bounded labels
	requestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"}) // endpoint is the route template, not the URL

	requestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "endpoint", "status"})

	// WebSocket metrics
	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active WebSocket connections",
	})

	wsMessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total WebSocket messages",
	}, []string{"direction"}) // "in", "out"
)

// Handler serves the Prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveTicks records a batch of ticks run in the given mode
func ObserveTicks(mode string, ticks int, elapsed time.Duration) {
	ticksTotal.WithLabelValues(mode).Add(float64(ticks))
	tickDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveFlight records a finished flight
func ObserveFlight(record engine.FlightRecord) {
	flightsTotal.WithLabelValues(string(record.Phase)).Inc()
	touchdownSpeed.Observe(record.Touchdown.VelocityY)
}

// SetActiveSessions sets the session gauge
func SetActiveSessions(n int) {
	activeSessions.Set(float64(n))
}

// ObserveRequest records one HTTP request
func ObserveRequest(method, endpoint string, status int, elapsed time.Duration) {
	requestLatency.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
	requestTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
}

// WebSocketConnected adjusts the active connection gauge by delta
func WebSocketConnected(delta int) {
	wsConnectionsActive.Add(float64(delta))
}

// WebSocketMessage counts one message in the given direction
func WebSocketMessage(direction string) {
	wsMessagesTotal.WithLabelValues(direction).Inc()
}

// Hooks returns service hooks that record metrics and then call next
func Hooks(next service.Hooks) service.Hooks {
	return service.Hooks{
		OnSnapshot: next.OnSnapshot,
		OnTicks: func(mode string, ticks int, elapsed time.Duration) {
			ObserveTicks(mode, ticks, elapsed)
			if next.OnTicks != nil {
				next.OnTicks(mode, ticks, elapsed)
			}
		},
		OnFlightEnded: func(sessionID string, record engine.FlightRecord) {
			ObserveFlight(record)
			if next.OnFlightEnded != nil {
				next.OnFlightEnded(sessionID, record)
			}
		},
	}
}
