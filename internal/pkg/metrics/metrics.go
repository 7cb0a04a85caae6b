package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds every fleetlink collector and is served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	// TelemetrySnapshotsTotal counts inbound snapshots by outcome:
	// applied, partial (no usable position), stale, invalid.
	TelemetrySnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetlink_telemetry_snapshots_total",
			Help: "Telemetry snapshots received from vehicles, by outcome.",
		},
		[]string{"result"},
	)

	// CommandsTotal counts outbound commands.
	// mode: auto/manual, result: sent/dropped
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetlink_commands_total",
			Help: "Commands handed to the command channel, by mode and result.",
		},
		[]string{"mode", "result"},
	)

	// CommandPublishLatency records how long a single MQTT publish takes.
	CommandPublishLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetlink_command_publish_seconds",
			Help:    "Latency of publishing one command to the broker.",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ChannelConnected mirrors the command channel connectivity flag.
	// 1 = connected, 0 = disconnected.
	ChannelConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetlink_command_channel_connected",
			Help: "Connectivity of the command channel (1=connected, 0=disconnected).",
		},
	)

	// ManualDispatchActive is the number of running manual dispatch timers.
	ManualDispatchActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetlink_manual_dispatch_active",
			Help: "Number of vehicles currently under periodic manual command dispatch.",
		},
	)

	// NotificationsTotal counts "reached" notifications raised to operators.
	NotificationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetlink_notifications_total",
			Help: "Destination-reached notifications raised.",
		},
	)

	// SessionsActive is the number of open operator sessions.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetlink_sessions_active",
			Help: "Number of open operator sessions.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		TelemetrySnapshotsTotal,
		CommandsTotal,
		CommandPublishLatency,
		ChannelConnected,
		ManualDispatchActive,
		NotificationsTotal,
		SessionsActive,
	)
}

// SetChannelConnected records the command channel connectivity.
func SetChannelConnected(up bool) {
	if up {
		ChannelConnected.Set(1)
		return
	}
	ChannelConnected.Set(0)
}
