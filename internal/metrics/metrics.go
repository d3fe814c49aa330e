package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors, registered via Register.
var (
	regOK atomic.Bool

	serverStarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devhatch",
			Subsystem: "devserver",
			Name:      "starts_total",
			Help:      "Number of successful dev-server starts.",
		}, []string{"key", "mode"},
	)
	serverStops = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devhatch",
			Subsystem: "devserver",
			Name:      "stops_total",
			Help:      "Number of successful dev-server stops.",
		}, []string{"key"},
	)
	urlDetections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devhatch",
			Subsystem: "devserver",
			Name:      "url_detections_total",
			Help:      "Number of readiness URLs latched from output streams.",
		}, []string{"key"},
	)
	sweepKills = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devhatch",
			Subsystem: "devserver",
			Name:      "sweep_kills_total",
			Help:      "Processes killed via the OS process-table sweep.",
		}, []string{"key"},
	)
	startErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "devhatch",
			Subsystem: "devserver",
			Name:      "start_errors_total",
			Help:      "Failed start requests by error kind.",
		}, []string{"reason"},
	)
	runningServers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "devhatch",
			Subsystem: "devserver",
			Name:      "running",
			Help:      "Sessions currently held in the registry.",
		},
	)
)

// Register registers all collectors with r. Safe to call more than once;
// after a success later calls are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{serverStarts, serverStops, urlDetections, sweepKills, startErrors, runningServers}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the DefaultGatherer. The caller wires the route.
func Handler() http.Handler { return promhttp.Handler() }

// Helpers below no-op until Register has been called.

func IncStart(key, mode string) {
	if regOK.Load() {
		serverStarts.WithLabelValues(key, mode).Inc()
	}
}

func IncStop(key string) {
	if regOK.Load() {
		serverStops.WithLabelValues(key).Inc()
	}
}

func IncURLDetected(key string) {
	if regOK.Load() {
		urlDetections.WithLabelValues(key).Inc()
	}
}

func AddSweepKills(key string, n int) {
	if regOK.Load() && n > 0 {
		sweepKills.WithLabelValues(key).Add(float64(n))
	}
}

func IncStartError(reason string) {
	if regOK.Load() {
		startErrors.WithLabelValues(reason).Inc()
	}
}

func SetRunning(n int) {
	if regOK.Load() {
		runningServers.Set(float64(n))
	}
}
