// Package metrics holds the Prometheus collectors exported by tuemi-server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values of TelemetryReceivedTotal.
const (
	TransportHTTP = "http"
	TransportMQTT = "mqtt"

	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

var (
	// TelemetryReceivedTotal counts telemetry samples by transport and outcome.
	TelemetryReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuemi_telemetry_received_total",
			Help: "Total number of telemetry samples received.",
		},
		[]string{"transport", "outcome"},
	)

	// IncidentsDetectedTotal counts detected incidents by the kind that was reported.
	IncidentsDetectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuemi_incidents_detected_total",
			Help: "Total number of incidents detected.",
		},
		[]string{"kind"},
	)

	// EnrichmentTotal counts assistant calls. outcome: ok/fallback/skipped.
	EnrichmentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuemi_enrichment_total",
			Help: "Total number of incident enrichment attempts.",
		},
		[]string{"outcome"},
	)

	// NotificationsTotal counts outbound incident alerts.
	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tuemi_notifications_total",
			Help: "Total number of incident notifications published.",
		},
		[]string{"status"},
	)

	// HTTPRequestDuration records API latency.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tuemi_http_request_duration_seconds",
			Help:    "Latency of HTTP API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "code"},
	)

	// MQTTConnected is 1 while the broker session is up.
	MQTTConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tuemi_mqtt_connected",
			Help: "Connectivity to the MQTT broker (1=connected, 0=disconnected).",
		},
	)
)

func init() {
	prometheus.MustRegister(
		TelemetryReceivedTotal,
		IncidentsDetectedTotal,
		EnrichmentTotal,
		NotificationsTotal,
		HTTPRequestDuration,
		MQTTConnected,
	)
}
