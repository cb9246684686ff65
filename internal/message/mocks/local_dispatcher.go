package mocks

import (
	"context"
	"sync"

	"github.com/example/material-stock/internal/message"
)

// LocalDispatcher delivers messages synchronously to an in-process router
// so tests can run the whole pipeline without a broker.
// It serializes every message the same way a network transport would.
type LocalDispatcher struct {
	router *message.Router

	mu      sync.Mutex
	pending []message.Message
	running bool
}

func NewLocalDispatcher(router *message.Router) *LocalDispatcher {
	return &LocalDispatcher{router: router}
}

// Dispatch queues msgs and drains the queue unless a drain is already in
// progress further up the stack, so handlers that dispatch do not recurse.
func (d *LocalDispatcher) Dispatch(ctx context.Context, msgs ...message.Message) error {
	d.mu.Lock()
	d.pending = append(d.pending, msgs...)
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	var firstErr error
	for {
		d.mu.Lock()
		if len(d.pending) == 0 {
			d.mu.Unlock()
			return firstErr
		}
		msg := d.pending[0]
		d.pending = d.pending[1:]
		d.mu.Unlock()

		if err := d.deliver(ctx, msg); err != nil && firstErr == nil {
			firstErr = err
		}
	}
}

func (d *LocalDispatcher) deliver(ctx context.Context, msg message.Message) error {
	data, err := message.Encode(msg)
	if err != nil {
		return err
	}
	return d.router.HandleMessage(ctx, []byte(msg.Key()), data)
}
