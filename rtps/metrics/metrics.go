// Package metrics exposes operational counters and gauges for the
// RTPS engine via a package-level prometheus.Registry and an HTTP
// handler the host process mounts wherever it likes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry collects every metric this package defines.
var Registry = prometheus.NewRegistry()

var (
	SamplesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "samples_published_total",
			Help:      "Samples appended to a writer's history via newChange.",
		},
		[]string{"topic"},
	)

	SamplesDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "samples_delivered_total",
			Help:      "Samples handed to a reader's registered callback.",
		},
		[]string{"topic"},
	)

	Retransmits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "retransmits_total",
			Help:      "DATA submessages resent in response to an ACKNACK missing-set bit.",
		},
		[]string{"writer"},
	)

	MalformedPacketsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "rtps",
			Name:      "malformed_packets_dropped_total",
			Help:      "Datagrams dropped whole at the dispatcher boundary for bad framing.",
		},
	)

	MatchedProxies = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "rtps",
			Name:      "matched_proxies",
			Help:      "Currently matched reader/writer proxies per local endpoint.",
		},
		[]string{"endpoint"},
	)

	RemoteParticipants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "rtps",
			Name:      "remote_participants",
			Help:      "Remote participants currently known via SPDP.",
		},
	)
)

func init() {
	Registry.MustRegister(
		SamplesPublished,
		SamplesDelivered,
		Retransmits,
		MalformedPacketsDropped,
		MatchedProxies,
		RemoteParticipants,
	)
}

// Handler exposes /metrics for the registry above.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
