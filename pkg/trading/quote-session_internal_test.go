package trading

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gotest.tools/assert"
)

func subscription(codes ...string) operation {
	return operation{name: "subscribe market data", kind: kindSubscribe, idless: true, codes: codes}
}

func TestQuoteSession_LateSubscriptionResponse(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	q := &quoteSession{session: newSession(logger, "md", Config{Timeout: 50 * time.Millisecond})}
	ctx := context.Background()

	first := q.begin(subscription("rb2510"))
	err := q.gate.wait(ctx, first.gen, q.timeout, first.name)
	var timeout *TimeoutError
	assert.Check(t, errors.As(err, &timeout))
	q.end(first)

	second := q.begin(subscription("au2512", "IF2512"))
	// the abandoned subscription answers now, flagged last and failed
	q.OnRspSubMarketData(&SpecificInstrumentField{InstrumentID: "rb2510"}, &RspInfoField{ErrorID: 7, ErrorMsg: "late"}, 0, true)
	assert.Check(t, !second.settled)

	q.OnRspSubMarketData(&SpecificInstrumentField{InstrumentID: "au2512"}, nil, 0, true)
	assert.Check(t, !second.settled)
	q.OnRspSubMarketData(&SpecificInstrumentField{InstrumentID: "au2512"}, &RspInfoField{ErrorID: 7, ErrorMsg: "again"}, 0, false)
	q.OnRspSubMarketData(nil, nil, 0, true)
	assert.Check(t, !second.settled)

	q.OnRspSubMarketData(&SpecificInstrumentField{InstrumentID: "IF2512"}, nil, 0, false)
	assert.NilError(t, q.gate.wait(ctx, second.gen, time.Second, second.name))
	q.end(second)
}

func TestQuoteSession_SubscriptionError(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	q := &quoteSession{session: newSession(logger, "md", Config{Timeout: time.Second})}

	op := q.begin(operation{name: "unsubscribe market data", kind: kindUnsubscribe, idless: true, codes: []string{"au2512", "IF2512"}})
	q.OnRspUnSubMarketData(&SpecificInstrumentField{InstrumentID: "IF2512"}, &RspInfoField{ErrorID: 16, ErrorMsg: "instrument not found"}, 0, false)
	err := q.gate.wait(context.Background(), op.gen, time.Second, op.name)
	assert.ErrorContains(t, err, "IF2512")
	var remote *RemoteError
	assert.Check(t, errors.As(err, &remote))
	assert.Equal(t, remote.ID, 16)
	q.end(op)

	// a subscribe response does not answer an unsubscription
	op = q.begin(operation{name: "unsubscribe market data", kind: kindUnsubscribe, idless: true, codes: []string{"au2512"}})
	q.OnRspSubMarketData(&SpecificInstrumentField{InstrumentID: "au2512"}, nil, 0, true)
	assert.Check(t, !op.settled)
	q.OnRspUnSubMarketData(&SpecificInstrumentField{InstrumentID: "au2512"}, nil, 0, true)
	assert.NilError(t, q.gate.wait(context.Background(), op.gen, time.Second, op.name))
	q.end(op)
}
