package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AmenityRequests       *prometheus.CounterVec
	AmenityRequestSeconds *prometheus.HistogramVec
	ScoresComputed        *prometheus.CounterVec
	ActiveSessions        prometheus.Gauge
	MonitorUpdates        prometheus.Counter
	MonitorFaults         prometheus.Counter
	GeolocationErrors     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		AmenityRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "paddos_amenity_requests_total",
			Help: "Total number of amenity source requests by category and outcome.",
		}, []string{"category", "status"}),
		AmenityRequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "paddos_amenity_request_duration_seconds",
			Help:    "Duration of requests to the amenity source.",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),
		ScoresComputed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "paddos_safety_scores_total",
			Help: "Total number of safety reports built, by rating.",
		}, []string{"rating"}),
		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "paddos_monitor_active_sessions",
			Help: "Current number of monitoring sessions.",
		}),
		MonitorUpdates: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "paddos_monitor_updates_total",
			Help: "Total number of safety updates pushed to monitoring sessions.",
		}),
		MonitorFaults: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "paddos_monitor_faults_total",
			Help: "Total number of failed monitoring iterations.",
		}),
		GeolocationErrors: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "paddos_geolocation_errors_total",
			Help: "Total number of errors received from IP geolocation providers.",
		}, []string{"provider"}),
	}
}
