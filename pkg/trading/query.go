package trading

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// records accumulates the rows of a streamed query.
type records[T any] struct {
	mx    sync.Mutex
	items []T
}

func (r *records[T]) add(item T) {
	r.mx.Lock()
	r.items = append(r.items, item)
	r.mx.Unlock()
}

func (r *records[T]) len() int {
	r.mx.Lock()
	defer r.mx.Unlock()
	return len(r.items)
}

func (r *records[T]) take() []T {
	r.mx.Lock()
	defer r.mx.Unlock()
	items := r.items
	r.items = nil
	return items
}

// awaitProgress waits for a paginated query. A timeout is only final when no
// record arrived since the previous one; a slow but moving stream is waited
// for as long as it keeps delivering.
func (s *session) awaitProgress(ctx context.Context, op *pendingOperation, progress func() int) error {
	last := 0
	for {
		err := s.gate.wait(ctx, op.gen, s.timeout, op.name)
		if _, ok := err.(*TimeoutError); !ok {
			return err
		}
		count := progress()
		if count == last {
			return err
		}
		s.logger.Info(s.name+": query progress", zap.String("operation", op.name), zap.Int("records", count))
		last = count
	}
}
