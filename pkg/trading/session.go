package trading

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// session holds what market data and trading sessions share: one gate, one
// request id counter and the single pending operation. Callers hold callMx
// for the whole operation; callbacks only take mx.
type session struct {
	logger      *zap.Logger
	name        string
	timeout     time.Duration
	gate        *completionGate
	ids         *requestCorrelator
	limiter     *queryLimiter
	callMx      sync.Mutex
	mx          sync.Mutex
	state       SessionState
	pending     *pendingOperation
	handshakeID int
}

func newSession(logger *zap.Logger, name string, cfg Config) *session {
	sessionState.WithLabelValues(name).Set(float64(SessionStateConnecting))
	return &session{
		logger:  logger,
		name:    name,
		timeout: cfg.Timeout,
		gate:    newCompletionGate(logger),
		ids:     newRequestCorrelator(),
		limiter: newQueryLimiter(cfg.QueryInterval),
	}
}

// acquire enters the single operation slot of the session. It never waits:
// a second concurrent caller gets ErrOperationInProgress.
func (s *session) acquire() error {
	if !s.callMx.TryLock() {
		return ErrOperationInProgress
	}
	if s.State() != SessionStateReady {
		s.callMx.Unlock()
		return ErrSessionNotReady
	}
	return nil
}

func (s *session) release() {
	s.callMx.Unlock()
}

func (s *session) State() SessionState {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.state
}

// setState returns the previous state.
func (s *session) setState(state SessionState) SessionState {
	s.mx.Lock()
	prev := s.state
	s.state = state
	s.mx.Unlock()
	if prev != state {
		sessionState.WithLabelValues(s.name).Set(float64(state))
		s.logger.Info(s.name+": session state", zap.Stringer("from", prev), zap.Stringer("to", state))
	}
	return prev
}

func (s *session) begin(o operation) *pendingOperation {
	op := &pendingOperation{
		name:      o.name,
		kind:      o.kind,
		requestID: noRequestID,
		gen:       s.gate.reset(),
		start:     time.Now(),
		action:    o.action,
	}
	if !o.idless {
		op.requestID = s.ids.next()
	}
	if len(o.codes) > 0 {
		op.outstanding = make(map[string]struct{}, len(o.codes))
		for _, code := range o.codes {
			op.outstanding[code] = struct{}{}
		}
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.pending != nil {
		panic("trading: " + o.name + " started while " + s.pending.name + " is pending")
	}
	s.pending = op
	return op
}

func (s *session) end(op *pendingOperation) {
	s.mx.Lock()
	if s.pending == op {
		s.pending = nil
	}
	s.mx.Unlock()
	requestDurations.WithLabelValues(s.name, op.name).Observe(float64(time.Since(op.start) / time.Microsecond))
}

// run performs one blocking operation: submit sends the request with the
// assigned id, then the caller waits for the callbacks to settle it.
func (s *session) run(ctx context.Context, o operation, submit func(requestID int) int) error {
	if o.query {
		if err := s.limiter.wait(ctx); err != nil {
			return errors.WithMessage(err, o.name)
		}
	}
	op := s.begin(o)
	defer s.end(op)

	err := translateReturnCode(submit(op.requestID))
	if err == nil {
		if o.progress != nil {
			err = s.awaitProgress(ctx, op, o.progress)
		} else {
			err = s.gate.wait(ctx, op.gen, s.timeout, op.name)
		}
	}
	if err != nil {
		rejectCounters.WithLabelValues(s.name, errorClass(err)).Inc()
		s.logger.Warn(s.name+": operation failed", zap.String("operation", o.name), zap.Int("requestId", op.requestID), zap.Error(err))
		return errors.WithMessage(err, o.name)
	}
	return nil
}

// start connects the transport and waits for the handshake to finish.
func (s *session) start(ctx context.Context, label string, connect func() error) error {
	op := s.begin(operation{name: label, kind: kindHandshake, idless: true})
	defer s.end(op)
	if err := connect(); err != nil {
		return errors.WithMessage(err, "fail connect")
	}
	if err := s.gate.wait(ctx, op.gen, s.timeout, label); err != nil {
		return errors.WithMessage(err, label)
	}
	return nil
}

// accept correlates a response with the pending operation. It returns nil
// when the response must be dropped; an error info settles the operation.
func (s *session) accept(kind callbackKind, requestID int, info *RspInfoField) *pendingOperation {
	s.mx.Lock()
	defer s.mx.Unlock()
	op := s.pending
	if match(op, kind, requestID) == matchStale {
		staleCallbacks.WithLabelValues(s.name, kind.String()).Inc()
		s.logger.Debug(s.name+": drop stale response", zap.Stringer("callback", kind), zap.Int("requestId", requestID))
		return nil
	}
	if err := remoteError(info); err != nil {
		s.settle(op, err)
		return nil
	}
	return op
}

// acceptCode correlates a subscription response by the code it answers.
// Responses carry no request id, so a code the pending call does not wait
// for is a leftover of an abandoned call. done reports the last outstanding
// code answered.
func (s *session) acceptCode(kind callbackKind, requestID int, code string, info *RspInfoField) (op *pendingOperation, done bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	op = s.pending
	if match(op, kind, requestID) == matchStale {
		op = nil
	} else if _, ok := op.outstanding[code]; !ok {
		op = nil
	}
	if op == nil {
		staleCallbacks.WithLabelValues(s.name, kind.String()).Inc()
		s.logger.Debug(s.name+": drop stale response", zap.Stringer("callback", kind), zap.String("code", code))
		return nil, false
	}
	delete(op.outstanding, code)
	if err := remoteError(info); err != nil {
		s.settle(op, errors.WithMessage(err, code))
		return nil, false
	}
	return op, len(op.outstanding) == 0
}

func (s *session) complete(op *pendingOperation, err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.settle(op, err)
}

// settle must be called with mx held.
func (s *session) settle(op *pendingOperation, err error) {
	if op.settled {
		return
	}
	op.settled = true
	s.gate.notify(op.gen, err)
}

// pendingOf returns the pending operation of kind that is still unsettled.
// It must be called with mx held.
func (s *session) pendingOf(kind callbackKind) *pendingOperation {
	op := s.pending
	if op == nil || op.settled || op.kind != kind {
		return nil
	}
	return op
}

// abandon fails the pending operation, unless it is the startup handshake
// which keeps waiting through reconnects.
func (s *session) abandon(err error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	op := s.pending
	if op == nil || op.kind == kindHandshake {
		return
	}
	s.pending = nil
	s.logger.Warn(s.name+": abandon operation", zap.String("operation", op.name), zap.Error(err))
	s.settle(op, err)
}

func (s *session) disconnected(reason int) {
	s.logger.Warn(s.name+": front disconnected", zap.Int("reason", reason))
	s.setState(SessionStateConnecting)
	s.abandon(ErrDisconnected)
}

// restart begins the handshake after the front (re)connects.
func (s *session) restart(first SessionState) {
	s.setState(first)
	s.abandon(ErrReconnected)
}

// sendHandshake sends the next handshake request from a callback.
func (s *session) sendHandshake(send func(requestID int) int) {
	id := s.ids.next()
	s.mx.Lock()
	s.handshakeID = id
	s.mx.Unlock()
	if err := translateReturnCode(send(id)); err != nil {
		s.failHandshake(err)
	}
}

// handshakeStep checks a handshake response; false means it must not advance the handshake.
func (s *session) handshakeStep(callback string, state SessionState, requestID int, isLast bool, info *RspInfoField) bool {
	s.mx.Lock()
	current, expected := s.state, s.handshakeID
	s.mx.Unlock()
	if requestID < expected {
		staleCallbacks.WithLabelValues(s.name, callback).Inc()
		return false
	}
	if requestID != expected || current != state {
		violation(callback, "request %d in state %s, expected request %d in state %s", requestID, current, expected, state)
	}
	if !isLast {
		violation(callback, "handshake response %d is not last", requestID)
	}
	if err := remoteError(info); err != nil {
		s.failHandshake(err)
		return false
	}
	return true
}

func (s *session) failHandshake(err error) {
	s.setState(SessionStateFailed)
	s.logger.Error(s.name+": handshake failed", zap.Error(err))
	s.mx.Lock()
	defer s.mx.Unlock()
	if op := s.pendingOf(kindHandshake); op != nil {
		s.settle(op, err)
	}
}

func (s *session) ready() {
	s.setState(SessionStateReady)
	s.mx.Lock()
	defer s.mx.Unlock()
	if op := s.pendingOf(kindHandshake); op != nil {
		s.settle(op, nil)
	}
}
