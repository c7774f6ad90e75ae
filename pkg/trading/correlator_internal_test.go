package trading

import (
	"testing"

	"gotest.tools/assert"
)

func expectViolation(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("no protocol violation raised")
		}
		_, ok := r.(*ProtocolViolationError)
		assert.Check(t, ok, "unexpected panic %v", r)
	}()
	fn()
}

func TestRequestCorrelator_Next(t *testing.T) {
	c := newRequestCorrelator()
	assert.Equal(t, c.next(), 0)
	assert.Equal(t, c.next(), 1)
	assert.Equal(t, c.next(), 2)
}

func TestMatch(t *testing.T) {
	pending := &pendingOperation{name: "query orders", kind: kindQryOrder, requestID: 5}

	t.Run("deliver", func(t *testing.T) {
		assert.Equal(t, match(pending, kindQryOrder, 5), matchDeliver)
	})

	t.Run("stale id", func(t *testing.T) {
		assert.Equal(t, match(pending, kindQryOrder, 4), matchStale)
		assert.Equal(t, match(pending, kindQryInstrument, 3), matchStale)
	})

	t.Run("nothing pending", func(t *testing.T) {
		assert.Equal(t, match(nil, kindQryOrder, 5), matchStale)
		settled := *pending
		settled.settled = true
		assert.Equal(t, match(&settled, kindQryOrder, 5), matchStale)
	})

	t.Run("future id", func(t *testing.T) {
		expectViolation(t, func() { match(pending, kindQryOrder, 6) })
	})

	t.Run("other kind", func(t *testing.T) {
		expectViolation(t, func() { match(pending, kindQryPosition, 5) })
	})

	t.Run("idless", func(t *testing.T) {
		sub := &pendingOperation{name: "subscribe", kind: kindSubscribe, requestID: noRequestID}
		assert.Equal(t, match(sub, kindSubscribe, 0), matchDeliver)
		assert.Equal(t, match(sub, kindUnsubscribe, 0), matchStale)
	})
}

func TestTranslateReturnCode(t *testing.T) {
	assert.NilError(t, translateReturnCode(0))

	err := translateReturnCode(-2)
	rejection, ok := err.(*ImmediateRejectionError)
	assert.Check(t, ok)
	assert.Equal(t, rejection.Code, ReturnTooManyPending)
	assert.Error(t, err, "unanswered requests exceed the permitted number")

	assert.Error(t, translateReturnCode(-1), "network connection failed")
	assert.Error(t, translateReturnCode(-3), "requests per second exceed the permitted number")

	expectViolation(t, func() { _ = translateReturnCode(-4) })
	expectViolation(t, func() { _ = translateReturnCode(1) })
}
