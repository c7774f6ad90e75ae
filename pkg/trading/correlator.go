package trading

import "sync/atomic"

// requestCorrelator hands out request ids of one session. Ids only grow,
// so a response with an id below the pending one belongs to an abandoned call.
type requestCorrelator struct {
	last int64
}

func newRequestCorrelator() *requestCorrelator {
	return &requestCorrelator{last: -1}
}

func (c *requestCorrelator) next() int {
	return int(atomic.AddInt64(&c.last, 1))
}

type matchResult uint8

const (
	matchDeliver matchResult = iota
	matchStale
)

// match decides what to do with a response of the given kind and id while
// pending is outstanding. Anything that is neither the expected response nor
// a leftover of an abandoned call violates the transport contract and panics.
func match(pending *pendingOperation, kind callbackKind, requestID int) matchResult {
	if pending == nil || pending.settled {
		return matchStale
	}
	if pending.requestID == noRequestID && pending.kind != kind {
		// without ids a leftover of another kind can not be told from a violation
		return matchStale
	}
	if pending.requestID != noRequestID && requestID < pending.requestID {
		return matchStale
	}
	if pending.kind != kind {
		violation(kind.String(), "response while %s (request %d) is pending", pending.name, pending.requestID)
	}
	if pending.requestID != noRequestID && requestID != pending.requestID {
		violation(kind.String(), "request id %d, expected %d", requestID, pending.requestID)
	}
	return matchDeliver
}
