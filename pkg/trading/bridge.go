package trading

import (
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var bridgeRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ctp_bridge_request_count",
	Help: "bridge requests sent to the sidecar",
}, []string{"session", "method"})

var bridgeMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ctp_bridge_message_count",
	Help: "bridge events received from the sidecar",
}, []string{"session", "event"})

func init() {
	prometheus.MustRegister(bridgeRequests, bridgeMessages)
}

// wire moves JSON envelopes between the client and a sidecar process that
// hosts the native API.
type wire interface {
	// request sends one request envelope and returns the reply envelope.
	request(data []byte) ([]byte, error)
	// events delivers event envelopes in arrival order. It is closed by close.
	events() <-chan []byte
	close() error
}

type bridgeRequest struct {
	Method    string      `json:"method"`
	RequestID int         `json:"requestId"`
	Token     string      `json:"token,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

type bridgeReply struct {
	Ret   int    `json:"ret"`
	Error string `json:"error,omitempty"`
}

type bridgeEvent struct {
	Event     string              `json:"event"`
	RequestID int                 `json:"requestId"`
	IsLast    bool                `json:"isLast"`
	Reason    int                 `json:"reason,omitempty"`
	Info      *RspInfoField       `json:"info,omitempty"`
	Data      jsoniter.RawMessage `json:"data,omitempty"`
}

// payload decodes the data of ev; absent data gives nil.
func payload[T any](ev *bridgeEvent) (*T, error) {
	if len(ev.Data) == 0 || string(ev.Data) == "null" {
		return nil, nil
	}
	var v T
	if err := jsoniter.Unmarshal(ev.Data, &v); err != nil {
		return nil, &ProtocolViolationError{Callback: ev.Event, Detail: "fail parse data: " + err.Error()}
	}
	return &v, nil
}

// answersRequest reports events a pending call may wait for. Every event
// but connection changes and market data ticks qualifies.
func answersRequest(event string) bool {
	if event == "OnRtnDepthMarketData" {
		return false
	}
	return strings.HasPrefix(event, "OnRsp") || strings.HasPrefix(event, "OnRtn") || strings.HasPrefix(event, "OnErrRtn")
}

// bridge is the session independent half of a bridged API.
type bridge struct {
	logger *zap.Logger
	name   string
	token  string
	wire   wire
	wg     sync.WaitGroup
}

// call sends a request and returns the sidecar return code. A request the
// wire could not deliver counts as a network failure.
func (b *bridge) call(method string, requestID int, data interface{}) int {
	msg, err := jsoniter.Marshal(bridgeRequest{Method: method, RequestID: requestID, Token: b.token, Data: data})
	if err != nil {
		b.logger.Error(b.name+": fail marshal request", zap.String("method", method), zap.Error(err))
		return int(ReturnNotConnected)
	}
	bridgeRequests.WithLabelValues(b.name, method).Inc()
	raw, err := b.wire.request(msg)
	if err != nil {
		b.logger.Error(b.name+": fail send request", zap.String("method", method), zap.Int("requestId", requestID), zap.Error(err))
		return int(ReturnNotConnected)
	}
	var reply bridgeReply
	if err = jsoniter.Unmarshal(raw, &reply); err != nil {
		b.logger.Error(b.name+": fail parse reply", zap.String("method", method), zap.ByteString("msg", raw), zap.Error(err))
		return int(ReturnNotConnected)
	}
	if reply.Error != "" {
		b.logger.Warn(b.name+": sidecar error", zap.String("method", method), zap.String("error", reply.Error))
	}
	return reply.Ret
}

// start runs the dispatch loop: events are decoded and handed to dispatch one at a time.
func (b *bridge) start(dispatch func(ev *bridgeEvent) error) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range b.wire.events() {
			b.handle(msg, dispatch)
		}
	}()
}

// handle decodes one event envelope and dispatches it. An event a pending
// call waits for must be readable: its loss panics with the violation.
func (b *bridge) handle(msg []byte, dispatch func(ev *bridgeEvent) error) {
	var ev bridgeEvent
	if err := jsoniter.Unmarshal(msg, &ev); err != nil {
		bridgeMessages.WithLabelValues(b.name, "invalid").Inc()
		b.logger.Error(b.name+": fail parse event", zap.ByteString("msg", msg), zap.Error(err))
		return
	}
	bridgeMessages.WithLabelValues(b.name, ev.Event).Inc()
	err := dispatch(&ev)
	if err == nil {
		return
	}
	var pv *ProtocolViolationError
	if errors.As(err, &pv) && answersRequest(ev.Event) {
		b.logger.Error(b.name+": unreadable response", zap.String("event", ev.Event), zap.ByteString("msg", msg), zap.Error(err))
		panic(pv)
	}
	b.logger.Error(b.name+": drop event", zap.String("event", ev.Event), zap.Error(err))
}

func (b *bridge) close() error {
	err := b.wire.close()
	b.wg.Wait()
	return err
}

// bridgeMarketData implements MarketDataAPI over a wire.
type bridgeMarketData struct {
	bridge
	spi MarketDataSpi
}

func newBridgeMarketData(logger *zap.Logger, w wire, token string) *bridgeMarketData {
	return &bridgeMarketData{bridge: bridge{logger: logger, name: "md", token: token, wire: w}}
}

func (m *bridgeMarketData) Connect(spi MarketDataSpi) error {
	m.spi = spi
	m.start(m.dispatch)
	if ret := m.call("Init", 0, nil); ret != 0 {
		return errors.Errorf("md: sidecar init returned %d", ret)
	}
	return nil
}

func (m *bridgeMarketData) ReqUserLogin(req *ReqUserLoginField, requestID int) int {
	return m.call("ReqUserLogin", requestID, req)
}

func (m *bridgeMarketData) SubscribeMarketData(codes []string) int {
	return m.call("SubscribeMarketData", 0, codes)
}

func (m *bridgeMarketData) UnSubscribeMarketData(codes []string) int {
	return m.call("UnSubscribeMarketData", 0, codes)
}

func (m *bridgeMarketData) Close() error {
	return m.close()
}

func (m *bridgeMarketData) dispatch(ev *bridgeEvent) error {
	switch ev.Event {
	case "OnFrontConnected":
		m.spi.OnFrontConnected()
	case "OnFrontDisconnected":
		m.spi.OnFrontDisconnected(ev.Reason)
	case "OnRspUserLogin":
		rsp, err := payload[RspUserLoginField](ev)
		if err != nil {
			return err
		}
		m.spi.OnRspUserLogin(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspSubMarketData":
		rsp, err := payload[SpecificInstrumentField](ev)
		if err != nil {
			return err
		}
		m.spi.OnRspSubMarketData(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspUnSubMarketData":
		rsp, err := payload[SpecificInstrumentField](ev)
		if err != nil {
			return err
		}
		m.spi.OnRspUnSubMarketData(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRtnDepthMarketData":
		data, err := payload[DepthMarketDataField](ev)
		if err != nil {
			return err
		}
		m.spi.OnRtnDepthMarketData(data)
	case "OnHeartBeatWarning":
	default:
		return errors.New("unsupported event " + ev.Event)
	}
	return nil
}

// bridgeTrader implements TraderAPI over a wire.
type bridgeTrader struct {
	bridge
	spi TraderSpi
}

func newBridgeTrader(logger *zap.Logger, w wire, token string) *bridgeTrader {
	return &bridgeTrader{bridge: bridge{logger: logger, name: "td", token: token, wire: w}}
}

func (t *bridgeTrader) Connect(spi TraderSpi) error {
	t.spi = spi
	t.start(t.dispatch)
	if ret := t.call("Init", 0, nil); ret != 0 {
		return errors.Errorf("td: sidecar init returned %d", ret)
	}
	return nil
}

func (t *bridgeTrader) Close() error {
	return t.close()
}

func (t *bridgeTrader) ReqAuthenticate(req *ReqAuthenticateField, requestID int) int {
	return t.call("ReqAuthenticate", requestID, req)
}

func (t *bridgeTrader) ReqUserLogin(req *ReqUserLoginField, requestID int) int {
	return t.call("ReqUserLogin", requestID, req)
}

func (t *bridgeTrader) ReqSettlementInfoConfirm(req *SettlementInfoConfirmField, requestID int) int {
	return t.call("ReqSettlementInfoConfirm", requestID, req)
}

func (t *bridgeTrader) ReqQryInstrument(req *QryInstrumentField, requestID int) int {
	return t.call("ReqQryInstrument", requestID, req)
}

func (t *bridgeTrader) ReqQryTradingAccount(req *QryTradingAccountField, requestID int) int {
	return t.call("ReqQryTradingAccount", requestID, req)
}

func (t *bridgeTrader) ReqQryOrder(req *QryOrderField, requestID int) int {
	return t.call("ReqQryOrder", requestID, req)
}

func (t *bridgeTrader) ReqQryInvestorPosition(req *QryInvestorPositionField, requestID int) int {
	return t.call("ReqQryInvestorPosition", requestID, req)
}

func (t *bridgeTrader) ReqQryContractBank(req *QryContractBankField, requestID int) int {
	return t.call("ReqQryContractBank", requestID, req)
}

func (t *bridgeTrader) ReqQryAccountregister(req *QryAccountregisterField, requestID int) int {
	return t.call("ReqQryAccountregister", requestID, req)
}

func (t *bridgeTrader) ReqOrderInsert(req *InputOrderField, requestID int) int {
	return t.call("ReqOrderInsert", requestID, req)
}

func (t *bridgeTrader) ReqOrderAction(req *InputOrderActionField, requestID int) int {
	return t.call("ReqOrderAction", requestID, req)
}

func (t *bridgeTrader) ReqFromBankToFutureByFuture(req *ReqTransferField, requestID int) int {
	return t.call("ReqFromBankToFutureByFuture", requestID, req)
}

func (t *bridgeTrader) ReqFromFutureToBankByFuture(req *ReqTransferField, requestID int) int {
	return t.call("ReqFromFutureToBankByFuture", requestID, req)
}

func (t *bridgeTrader) dispatch(ev *bridgeEvent) error {
	spi := t.spi
	switch ev.Event {
	case "OnFrontConnected":
		spi.OnFrontConnected()
	case "OnFrontDisconnected":
		spi.OnFrontDisconnected(ev.Reason)
	case "OnRspAuthenticate":
		spi.OnRspAuthenticate(ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspUserLogin":
		rsp, err := payload[RspUserLoginField](ev)
		if err != nil {
			return err
		}
		spi.OnRspUserLogin(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspSettlementInfoConfirm":
		spi.OnRspSettlementInfoConfirm(ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspQryInstrument":
		rsp, err := payload[InstrumentField](ev)
		if err != nil {
			return err
		}
		spi.OnRspQryInstrument(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspQryTradingAccount":
		rsp, err := payload[TradingAccountField](ev)
		if err != nil {
			return err
		}
		spi.OnRspQryTradingAccount(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspQryOrder":
		rsp, err := payload[OrderField](ev)
		if err != nil {
			return err
		}
		spi.OnRspQryOrder(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspQryInvestorPosition":
		rsp, err := payload[InvestorPositionField](ev)
		if err != nil {
			return err
		}
		spi.OnRspQryInvestorPosition(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspQryContractBank":
		rsp, err := payload[ContractBankField](ev)
		if err != nil {
			return err
		}
		spi.OnRspQryContractBank(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspQryAccountregister":
		rsp, err := payload[AccountregisterField](ev)
		if err != nil {
			return err
		}
		spi.OnRspQryAccountregister(rsp, ev.Info, ev.RequestID, ev.IsLast)
	case "OnRspOrderInsert":
		spi.OnRspOrderInsert(ev.Info, ev.RequestID, ev.IsLast)
	case "OnErrRtnOrderInsert":
		spi.OnErrRtnOrderInsert(ev.Info)
	case "OnRtnOrder":
		order, err := payload[OrderField](ev)
		if err != nil {
			return err
		}
		spi.OnRtnOrder(order)
	case "OnRspOrderAction":
		spi.OnRspOrderAction(ev.Info, ev.RequestID, ev.IsLast)
	case "OnErrRtnOrderAction":
		spi.OnErrRtnOrderAction(ev.Info)
	case "OnRspFromBankToFutureByFuture":
		spi.OnRspFromBankToFutureByFuture(ev.Info, ev.RequestID, ev.IsLast)
	case "OnRtnFromBankToFutureByFuture":
		rsp, err := payload[RspTransferField](ev)
		if err != nil {
			return err
		}
		spi.OnRtnFromBankToFutureByFuture(rsp)
	case "OnRspFromFutureToBankByFuture":
		spi.OnRspFromFutureToBankByFuture(ev.Info, ev.RequestID, ev.IsLast)
	case "OnRtnFromFutureToBankByFuture":
		rsp, err := payload[RspTransferField](ev)
		if err != nil {
			return err
		}
		spi.OnRtnFromFutureToBankByFuture(rsp)
	case "OnRtnTrade", "OnHeartBeatWarning":
	default:
		return errors.New("unsupported event " + ev.Event)
	}
	return nil
}
