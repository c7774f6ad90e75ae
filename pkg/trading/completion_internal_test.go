package trading

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gotest.tools/assert"
)

func TestCompletionGate_Notify(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	g := newCompletionGate(logger)

	gen := g.reset()
	go func() {
		time.Sleep(10 * time.Millisecond)
		g.notify(gen, nil)
	}()
	assert.NilError(t, g.wait(context.Background(), gen, time.Second, "op"))

	gen = g.reset()
	assert.Check(t, g.notify(gen, errors.New("first")))
	assert.Check(t, !g.notify(gen, errors.New("second")))
	assert.Error(t, g.wait(context.Background(), gen, time.Second, "op"), "first")
}

func TestCompletionGate_StaleGeneration(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	g := newCompletionGate(logger)

	old := g.reset()
	gen := g.reset()
	assert.Check(t, !g.notify(old, nil))

	err := g.wait(context.Background(), gen, 20*time.Millisecond, "op")
	var timeout *TimeoutError
	assert.Check(t, errors.As(err, &timeout))
	assert.Error(t, err, "op: timeout")

	err = g.wait(context.Background(), old, time.Second, "op")
	assert.ErrorContains(t, err, "stale generation")
}

func TestCompletionGate_WaitAgainAfterTimeout(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	g := newCompletionGate(logger)

	gen := g.reset()
	err := g.wait(context.Background(), gen, 10*time.Millisecond, "op")
	assert.ErrorContains(t, err, "timeout")

	g.notify(gen, nil)
	assert.NilError(t, g.wait(context.Background(), gen, 10*time.Millisecond, "op"))
}

func TestCompletionGate_Context(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	g := newCompletionGate(logger)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	gen := g.reset()
	assert.Equal(t, g.wait(ctx, gen, time.Second, "op"), context.Canceled)
}
