package trading

import (
	"bytes"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pebbe/zmq4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const zmqReplyTimeout = 5 * time.Second

var zmqHeartbeat = []byte(".HEARTBEAT")

// zmqWire talks to the sidecar over a REQ socket for requests and a SUB
// socket for events. Both sockets share one context, so terminating it
// unblocks the reader.
type zmqWire struct {
	logger  *zap.Logger
	zmqCtx  *zmq4.Context
	req     *zmq4.Socket
	sub     *zmq4.Socket
	reqAddr string
	subAddr string
	sendMx  sync.Mutex
	ch      chan []byte
	closed  uint32
	// connection state of each socket as seen by its monitor
	reqReady  uint32
	subReady  uint32
	connected chan struct{}
	once      sync.Once
}

func applyZmqOptions(sock *zmq4.Socket, monitorAddr, serverKey string) error {
	var err error
	if err = sock.Monitor(monitorAddr, zmq4.EVENT_ALL); err != nil {
		return errors.WithMessage(err, "fail set monitor address")
	}
	if err = sock.SetReconnectIvl(time.Second); err != nil {
		return errors.WithMessage(err, "fail set reconnect interval")
	}
	if err = sock.SetLinger(0); err != nil {
		return errors.WithMessage(err, "fail set linger timeout")
	}
	if err = sock.SetConnectTimeout(5 * time.Second); err != nil {
		return errors.WithMessage(err, "fail set connect timeout")
	}
	if err = sock.SetHeartbeatIvl(2 * time.Second); err != nil {
		return errors.WithMessage(err, "fail set heartbeat interval")
	}
	if err = sock.SetHeartbeatTimeout(5 * time.Second); err != nil {
		return errors.WithMessage(err, "fail set heartbeat timeout")
	}
	if serverKey != "" {
		// auth zmq using curve algorithm
		var keyPublic, keySecret string
		keyPublic, keySecret, err = zmq4.NewCurveKeypair()
		if err != nil {
			return errors.WithMessage(err, "fail generate curve pair")
		}
		if err = sock.ClientAuthCurve(serverKey, keyPublic, keySecret); err != nil {
			return errors.WithMessage(err, "fail set auth curve")
		}
	}
	return nil
}

// closeOnError releases a half configured socket, a live one blocks context termination.
func closeOnError(sock *zmq4.Socket, err *error) {
	if *err != nil {
		_ = sock.Close()
	}
}

func newZmqReqSocket(zmqCtx *zmq4.Context, monitorAddr, addr, serverKey string) (sock *zmq4.Socket, err error) {
	sock, err = zmqCtx.NewSocket(zmq4.REQ)
	if err != nil {
		return nil, errors.WithMessage(err, "fail create socket")
	}
	defer closeOnError(sock, &err)
	if err = applyZmqOptions(sock, monitorAddr, serverKey); err != nil {
		return nil, err
	}
	// a timed out request must not wedge the socket
	if err = sock.SetReqRelaxed(1); err != nil {
		return nil, errors.WithMessage(err, "fail set relaxed request")
	}
	if err = sock.SetReqCorrelate(1); err != nil {
		return nil, errors.WithMessage(err, "fail set request correlation")
	}
	if err = sock.SetRcvtimeo(zmqReplyTimeout); err != nil {
		return nil, errors.WithMessage(err, "fail set receive timeout")
	}
	if err = sock.SetSndtimeo(zmqReplyTimeout); err != nil {
		return nil, errors.WithMessage(err, "fail set send timeout")
	}
	if err = sock.Connect(addr); err != nil {
		return nil, errors.WithMessage(err, "fail connect "+addr)
	}
	return sock, nil
}

func newZmqSubSocket(zmqCtx *zmq4.Context, monitorAddr, addr, serverKey string) (sock *zmq4.Socket, err error) {
	sock, err = zmqCtx.NewSocket(zmq4.SUB)
	if err != nil {
		return nil, errors.WithMessage(err, "fail create socket")
	}
	defer closeOnError(sock, &err)
	if err = applyZmqOptions(sock, monitorAddr, serverKey); err != nil {
		return nil, err
	}
	if err = sock.SetRcvhwm(100000); err != nil {
		return nil, errors.WithMessage(err, "fail set receive buffer messages count")
	}
	if err = sock.SetSubscribe(""); err != nil {
		return nil, errors.WithMessage(err, "fail subscribe")
	}
	if err = sock.Connect(addr); err != nil {
		return nil, errors.WithMessage(err, "fail connect "+addr)
	}
	return sock, nil
}

// newZmqWire connects both sockets and starts the event reader.
func newZmqWire(logger *zap.Logger, reqAddr, subAddr, serverKey string) (*zmqWire, error) {
	zmqCtx, err := zmq4.NewContext()
	if err != nil {
		return nil, errors.WithMessage(err, "fail create zmq context")
	}
	w := &zmqWire{
		logger:  logger,
		zmqCtx:  zmqCtx,
		reqAddr: reqAddr,
		subAddr: subAddr,
		ch:      make(chan []byte, 1000),
		// closed by the first connection of the request socket
		connected: make(chan struct{}),
	}

	reqMonitor, subMonitor := generateMonitorAddr(), generateMonitorAddr()
	reqOnline, subOnline := make(chan bool), make(chan bool)
	go runSocketMonitor(zmqCtx, reqMonitor, reqOnline, logger)
	go runSocketMonitor(zmqCtx, subMonitor, subOnline, logger)
	go w.handleMonitor(reqAddr, &w.reqReady, reqOnline)
	go w.handleMonitor(subAddr, &w.subReady, subOnline)

	if w.req, err = newZmqReqSocket(zmqCtx, reqMonitor, reqAddr, serverKey); err != nil {
		w.terminate()
		return nil, errors.WithMessage(err, "fail create request socket")
	}
	if w.sub, err = newZmqSubSocket(zmqCtx, subMonitor, subAddr, serverKey); err != nil {
		w.terminate()
		return nil, errors.WithMessage(err, "fail create event socket")
	}
	go w.readMessages()

	select {
	case <-w.connected:
	case <-time.After(zmqReplyTimeout):
		if err = w.close(); err != nil {
			logger.Error("zmq: fail close wire", zap.Error(err))
		}
		return nil, errors.New("zmq: no connection to " + reqAddr)
	}
	return w, nil
}

func (w *zmqWire) handleMonitor(addr string, flag *uint32, online <-chan bool) {
	for status := range online {
		w.setReady(addr, flag, status)
	}
}

func (w *zmqWire) setReady(addr string, flag *uint32, val bool) {
	var state uint32
	if val {
		state = 1
	}
	if atomic.SwapUint32(flag, state) != state {
		if val {
			w.logger.Info("zmq: connection ready", zap.String("addr", addr))
		} else {
			w.logger.Warn("zmq: connection closed", zap.String("addr", addr))
		}
	}
	if val && flag == &w.reqReady {
		w.once.Do(func() { close(w.connected) })
	}
}

// IsReady reports both sockets connected.
func (w *zmqWire) IsReady() bool {
	return atomic.LoadUint32(&w.reqReady) == 1 && atomic.LoadUint32(&w.subReady) == 1
}

// request fails without sending while the request socket is offline, so
// the caller sees the native not connected code at once.
func (w *zmqWire) request(data []byte) ([]byte, error) {
	if atomic.LoadUint32(&w.closed) == 1 {
		return nil, errors.New("zmq: wire closed")
	}
	if atomic.LoadUint32(&w.reqReady) == 0 {
		return nil, errors.New("zmq: not connected to " + w.reqAddr)
	}
	w.sendMx.Lock()
	defer w.sendMx.Unlock()
	if _, err := w.req.SendBytes(data, 0); err != nil {
		return nil, errors.WithMessage(err, "fail send via zmq")
	}
	reply, err := w.req.RecvBytes(0)
	if err != nil {
		return nil, errors.WithMessage(err, "fail receive reply via zmq")
	}
	return reply, nil
}

func (w *zmqWire) events() <-chan []byte {
	return w.ch
}

func (w *zmqWire) readMessages() {
	defer close(w.ch)
	for {
		msg, err := w.sub.RecvBytes(0)
		if err != nil {
			if zmq4.AsErrno(err) == zmq4.ETERM || atomic.LoadUint32(&w.closed) == 1 {
				if errClose := w.sub.Close(); errClose != nil {
					w.logger.Error("zmq: fail close event socket", zap.Error(errClose))
				}
				return
			}
			w.logger.Error("zmq: receive data error", zap.Error(err), zap.String("addr", w.subAddr))
			continue
		}
		w.setReady(w.subAddr, &w.subReady, true)
		if bytes.Equal(msg, zmqHeartbeat) {
			bridgeMessages.WithLabelValues("zmq", "heartbeat").Inc()
			continue
		}
		w.ch <- msg
	}
}

func (w *zmqWire) close() error {
	if !atomic.CompareAndSwapUint32(&w.closed, 0, 1) {
		return nil
	}
	return w.terminate()
}

// terminate closes the request socket and the context; the reader closes
// the event socket once the context terminates.
func (w *zmqWire) terminate() error {
	if w.req != nil {
		w.sendMx.Lock()
		if err := w.req.Close(); err != nil {
			w.logger.Error("zmq: fail close request socket", zap.Error(err))
		}
		w.sendMx.Unlock()
	}
	if err := w.zmqCtx.Term(); err != nil {
		return errors.WithMessage(err, "fail terminate zmq context")
	}
	return nil
}

func (w *zmqWire) String() string {
	return "REQ:" + w.reqAddr + " SUB:" + w.subAddr
}
