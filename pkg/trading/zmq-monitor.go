package trading

import (
	"fmt"
	"sync/atomic"

	"github.com/pebbe/zmq4"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var bridgeReady = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "ctp_bridge_ready",
	Help: "bridge socket connection state",
}, []string{"addr"})

func init() {
	prometheus.MustRegister(bridgeReady)
}

// runSocketMonitor reports the connection state of a monitored socket on
// online until the zmq context terminates, then closes online.
func runSocketMonitor(zmqCtx *zmq4.Context, addr string, online chan<- bool, logger *zap.Logger) {
	defer close(online)
	s, err := zmqCtx.NewSocket(zmq4.PAIR)
	if err != nil {
		logger.Error("zmq-monitor: fail create new socket", zap.Error(err))
		return
	}
	if err = s.SetLinger(0); err != nil {
		logger.Error("zmq-monitor: fail setLinger", zap.Error(err))
	}
	defer func() {
		if err = s.Close(); err != nil {
			logger.Error("zmq-monitor: fail close socket", zap.Error(err))
		}
	}()

	if err = s.Connect(addr); err != nil {
		logger.Error("zmq-monitor: fail connect", zap.Error(err))
		return
	}

	for {
		event, address, _, err := s.RecvEvent(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.ETERM {
				logger.Info("zmq-monitor: stop monitor")
				return
			}
			logger.Error("zmq-monitor: fail receive event", zap.Error(err))
			continue
		}
		switch event {
		case zmq4.EVENT_CONNECTED:
			logger.Info("zmq-monitor: connection established", zap.String("addr", address))
			bridgeReady.WithLabelValues(address).Set(1)
			online <- true
		case zmq4.EVENT_CONNECT_DELAYED:
			logger.Warn("zmq-monitor: trying to connect", zap.String("addr", address))
		case zmq4.EVENT_CONNECT_RETRIED:
			logger.Warn("zmq-monitor: retry connect", zap.String("addr", address))
		case zmq4.EVENT_DISCONNECTED, zmq4.EVENT_CLOSED:
			logger.Warn("zmq-monitor: closed", zap.String("addr", address))
			bridgeReady.WithLabelValues(address).Set(0)
			online <- false
		case zmq4.EVENT_MONITOR_STOPPED:
			logger.Info("zmq-monitor: stop monitor")
			return
		default:
			logger.Debug("zmq-monitor: unprocessed event", zap.String("addr", address), zap.String("event", event.String()))
		}
	}
}

var monitorID int64

func generateMonitorAddr() string {
	nextID := atomic.AddInt64(&monitorID, 1)
	return fmt.Sprintf("inproc://monitor_ctp.%d", nextID)
}
