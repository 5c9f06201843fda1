package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Session store metrics
	SessionsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clockko_sessions_started_total",
			Help: "Total focus and break sessions started",
		},
		[]string{"kind"},
	)

	SessionsClosed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clockko_sessions_closed_total",
			Help: "Total sessions closed, by kind and terminal status",
		},
		[]string{"kind", "status"},
	)

	SessionSeconds = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clockko_session_seconds_total",
			Help: "Seconds accumulated by closed sessions",
		},
		[]string{"kind"},
	)

	StaleSessionsCleared = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clockko_stale_sessions_cleared_total",
			Help: "Active sessions closed to unblock a new start",
		},
	)

	// Timer metrics
	TimerTicks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "clockko_timer_ticks_total",
			Help: "Countdown ticks processed",
		},
	)

	TimerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clockko_timer_transitions_total",
			Help: "Timer mode transitions",
		},
		[]string{"from", "to"},
	)

	TimerRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "clockko_timer_running",
			Help: "1 while the countdown is running",
		},
	)

	StoreErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clockko_store_errors_total",
			Help: "Session store calls from the timer that failed",
		},
		[]string{"op"},
	)

	NotificationsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clockko_notifications_total",
			Help: "Sounds and system notifications emitted",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionsStarted,
		SessionsClosed,
		SessionSeconds,
		StaleSessionsCleared,
		TimerTicks,
		TimerTransitions,
		TimerRunning,
		StoreErrors,
		NotificationsSent,
	)
}
