package trading

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gotest.tools/assert"
)

type fakeWire struct {
	mx       sync.Mutex
	requests []bridgeRequest
	replies  map[string]bridgeReply
	fail     error
	ch       chan []byte
	once     sync.Once
}

func newFakeWire() *fakeWire {
	return &fakeWire{replies: make(map[string]bridgeReply), ch: make(chan []byte, 100)}
}

func (w *fakeWire) request(data []byte) ([]byte, error) {
	w.mx.Lock()
	defer w.mx.Unlock()
	if w.fail != nil {
		return nil, w.fail
	}
	var req bridgeRequest
	if err := jsoniter.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	w.requests = append(w.requests, req)
	return jsoniter.Marshal(w.replies[req.Method])
}

func (w *fakeWire) events() <-chan []byte {
	return w.ch
}

func (w *fakeWire) close() error {
	w.once.Do(func() { close(w.ch) })
	return nil
}

func (w *fakeWire) push(event string) {
	w.ch <- []byte(event)
}

func (w *fakeWire) sent() []bridgeRequest {
	w.mx.Lock()
	defer w.mx.Unlock()
	return append([]bridgeRequest(nil), w.requests...)
}

// mdRecorder collects market data callbacks as short strings.
type mdRecorder struct {
	calls chan string
}

func (r *mdRecorder) OnFrontConnected() { r.calls <- "connected" }
func (r *mdRecorder) OnFrontDisconnected(reason int) {
	r.calls <- "disconnected:" + strconv.Itoa(reason)
}
func (r *mdRecorder) OnRspUserLogin(rsp *RspUserLoginField, info *RspInfoField, requestID int, isLast bool) {
	r.calls <- "login:" + rsp.TradingDay
}
func (r *mdRecorder) OnRspSubMarketData(rsp *SpecificInstrumentField, info *RspInfoField, requestID int, isLast bool) {
	if info != nil && info.ErrorID != 0 {
		r.calls <- "sub-error:" + rsp.InstrumentID
		return
	}
	r.calls <- "sub:" + rsp.InstrumentID
}
func (r *mdRecorder) OnRspUnSubMarketData(rsp *SpecificInstrumentField, info *RspInfoField, requestID int, isLast bool) {
	r.calls <- "unsub:" + rsp.InstrumentID
}
func (r *mdRecorder) OnRtnDepthMarketData(data *DepthMarketDataField) {
	r.calls <- "quote:" + data.InstrumentID
}

func expectCall(t *testing.T, calls chan string, expected string) {
	t.Helper()
	select {
	case call := <-calls:
		assert.Equal(t, call, expected)
	case <-time.After(time.Second):
		t.Fatal("callback not received: " + expected)
	}
}

func TestBridgeMarketData(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	w := newFakeWire()
	md := newBridgeMarketData(logger, w, "astra")
	rec := &mdRecorder{calls: make(chan string, 10)}

	assert.NilError(t, md.Connect(rec))
	assert.Equal(t, md.ReqUserLogin(&ReqUserLoginField{BrokerID: "9999", UserID: "000001"}, 3), 0)
	assert.Equal(t, md.SubscribeMarketData([]string{"rb2510", "xx"}), 0)

	sent := w.sent()
	assert.Equal(t, len(sent), 3)
	assert.Equal(t, sent[0].Method, "Init")
	assert.Equal(t, sent[0].Token, "astra")
	assert.Equal(t, sent[1].Method, "ReqUserLogin")
	assert.Equal(t, sent[1].RequestID, 3)
	assert.Equal(t, sent[2].Method, "SubscribeMarketData")

	w.push(`{"event":"OnFrontConnected"}`)
	w.push(`{"event":"OnRspUserLogin","requestId":3,"isLast":true,"data":{"TradingDay":"20251015"}}`)
	w.push(`not json`)
	w.push(`{"event":"OnRspSubMarketData","isLast":true,"data":{"InstrumentID":"rb2510"}}`)
	w.push(`{"event":"OnRspSubMarketData","isLast":true,"info":{"ErrorID":16,"ErrorMsg":"instrument not found"},"data":{"InstrumentID":"xx"}}`)
	w.push(`{"event":"OnSomethingNew"}`)
	w.push(`{"event":"OnRtnDepthMarketData","data":{"InstrumentID":"rb2510","LastPrice":3151}}`)
	w.push(`{"event":"OnFrontDisconnected","reason":4097}`)

	expectCall(t, rec.calls, "connected")
	expectCall(t, rec.calls, "login:20251015")
	expectCall(t, rec.calls, "sub:rb2510")
	expectCall(t, rec.calls, "sub-error:xx")
	expectCall(t, rec.calls, "quote:rb2510")
	expectCall(t, rec.calls, "disconnected:4097")

	assert.NilError(t, md.Close())
}

func TestBridgeCallFailure(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	w := newFakeWire()
	td := newBridgeTrader(logger, w, "")

	w.replies["ReqOrderInsert"] = bridgeReply{Ret: int(ReturnTooManyPending), Error: "queue full"}
	assert.Equal(t, td.ReqOrderInsert(&InputOrderField{InstrumentID: "rb2510"}, 7), int(ReturnTooManyPending))

	w.fail = errors.New("socket gone")
	assert.Equal(t, td.ReqQryOrder(&QryOrderField{}, 8), int(ReturnNotConnected))

	w.fail = nil
	w.replies["Init"] = bridgeReply{Ret: -1}
	err := td.Connect(struct{ TraderSpi }{})
	assert.ErrorContains(t, err, "sidecar init returned -1")
	assert.NilError(t, td.Close())
}

func TestBridgeUnreadablePayload(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	md := newBridgeMarketData(logger, newFakeWire(), "")
	rec := &mdRecorder{calls: make(chan string, 10)}
	md.spi = rec

	// a broken tick is dropped
	md.handle([]byte(`{"event":"OnRtnDepthMarketData","data":{"LastPrice":"high"}}`), md.dispatch)
	md.handle([]byte(`{"event":"OnRtnDepthMarketData","data":{"InstrumentID":"rb2510"}}`), md.dispatch)
	expectCall(t, rec.calls, "quote:rb2510")

	expectViolation(t, func() {
		md.handle([]byte(`{"event":"OnRspSubMarketData","isLast":true,"data":{"InstrumentID":7}}`), md.dispatch)
	})
	assert.Equal(t, len(rec.calls), 0)

	td := newBridgeTrader(logger, newFakeWire(), "")
	td.spi = struct{ TraderSpi }{}
	expectViolation(t, func() {
		td.handle([]byte(`{"event":"OnRtnOrder","data":{"InstrumentID":"rb2510","OrderStatus":"Z"}}`), td.dispatch)
	})
	expectViolation(t, func() {
		td.handle([]byte(`{"event":"OnRspQryTradingAccount","requestId":4,"isLast":true,"data":[]}`), td.dispatch)
	})
}

func TestAnswersRequest(t *testing.T) {
	for event, expected := range map[string]bool{
		"OnRspQryOrder":                 true,
		"OnRtnOrder":                    true,
		"OnErrRtnOrderInsert":           true,
		"OnRtnFromBankToFutureByFuture": true,
		"OnRtnDepthMarketData":          false,
		"OnFrontConnected":              false,
		"OnFrontDisconnected":           false,
	} {
		assert.Equal(t, answersRequest(event), expected, event)
	}
}
