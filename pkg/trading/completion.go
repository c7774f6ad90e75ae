package trading

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// completionGate lets one caller block until a callback reports the outcome
// of the operation it started. Every reset opens a new generation and a
// notify aimed at an older generation is dropped, so a response arriving
// after its caller gave up can not complete a newer operation.
type completionGate struct {
	logger   *zap.Logger
	mx       sync.Mutex
	gen      uint64
	signaled bool
	err      error
	done     chan struct{}
}

func newCompletionGate(logger *zap.Logger) *completionGate {
	return &completionGate{
		logger: logger,
		done:   make(chan struct{}),
	}
}

// reset re-arms the gate and returns the generation callers must notify.
func (g *completionGate) reset() uint64 {
	g.mx.Lock()
	defer g.mx.Unlock()
	g.gen++
	g.signaled = false
	g.err = nil
	g.done = make(chan struct{})
	return g.gen
}

// notify records the outcome of generation gen.
// A second notify for the same generation is ignored and logged: the first outcome wins.
func (g *completionGate) notify(gen uint64, err error) bool {
	g.mx.Lock()
	defer g.mx.Unlock()
	if gen != g.gen {
		g.logger.Debug("gate: drop notify for stale generation", zap.Uint64("gen", gen), zap.Uint64("current", g.gen))
		return false
	}
	if g.signaled {
		g.logger.Warn("gate: notify after gate signaled", zap.Uint64("gen", gen), zap.Error(err))
		return false
	}
	g.signaled = true
	g.err = err
	close(g.done)
	return true
}

// wait blocks until generation gen is signaled, timeout elapses or ctx is done.
// It may be called again on the same generation after a timeout.
func (g *completionGate) wait(ctx context.Context, gen uint64, timeout time.Duration, label string) error {
	g.mx.Lock()
	if gen != g.gen {
		g.mx.Unlock()
		return errors.Errorf("gate: wait on stale generation %d, current %d", gen, g.gen)
	}
	done := g.done
	g.mx.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		g.mx.Lock()
		defer g.mx.Unlock()
		return g.err
	case <-timer.C:
		return &TimeoutError{Label: label}
	case <-ctx.Done():
		return ctx.Err()
	}
}
