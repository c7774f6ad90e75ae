package trading

import "github.com/prometheus/client_golang/prometheus"

var requestDurations = prometheus.NewSummaryVec(prometheus.SummaryOpts{
	Name:       "ctp_request_duration_us",
	Help:       "ctp blocking operation durations microseconds",
	AgeBuckets: 1,
}, []string{"session", "operation"})

var sessionState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "ctp_session_state",
	Help: "ctp session lifecycle state, 4 is ready",
}, []string{"session"})

var rejectCounters = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ctp_reject_total",
	Help: "ctp failed operations by error class",
}, []string{"session", "class"})

var staleCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ctp_stale_callbacks_total",
	Help: "ctp responses dropped because their operation was abandoned",
}, []string{"session", "callback"})

var quoteTicks = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "ctp_quote_ticks_total",
	Help: "ctp depth market data pushes received",
})

func init() {
	prometheus.MustRegister(requestDurations, sessionState, rejectCounters, staleCallbacks, quoteTicks)
}

func errorClass(err error) string {
	switch err.(type) {
	case *ImmediateRejectionError:
		return "immediate"
	case *RemoteError:
		return "remote"
	case *TimeoutError:
		return "timeout"
	}
	return "other"
}
