package runtime

import (
	"context"
	"sync"
)

// Receipt is the asynchronous outcome of one publish call. It resolves
// exactly once: Done closes, then Err returns the final error (nil on
// success).
type Receipt struct {
	done chan struct{}
	once sync.Once

	mu  sync.RWMutex
	err error
}

func newReceipt() *Receipt {
	return &Receipt{done: make(chan struct{})}
}

// resolved returns a Receipt already carrying the given outcome, used for
// failures detected before the async path starts.
func resolved(err error) *Receipt {
	r := newReceipt()
	r.resolve(err)
	return r
}

func (r *Receipt) resolve(err error) {
	r.once.Do(func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(r.done)
	})
}

// Done closes when the delivery outcome is known.
func (r *Receipt) Done() <-chan struct{} {
	return r.done
}

// Err returns the final outcome. It is only meaningful after Done closes;
// before that it returns nil.
func (r *Receipt) Err() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.err
}

// Wait blocks until the outcome is known or ctx ends, returning the final
// error or the context error.
func (r *Receipt) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-r.done:
		return r.Err()
	}
}
