package isolate

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrPending is returned by Result when the promise has not settled.
var ErrPending = errors.New("promise is pending")

// PromiseState describes the settlement state of a Promise.
type PromiseState int

const (
	StatePending PromiseState = iota
	StateResolved
	StateRejected
)

func (s PromiseState) String() string {
	switch s {
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	default:
		return "pending"
	}
}

// Promise is the deferred-result handle for RunAsync. It is created on the
// origin lane and settled exactly once, always from the origin lane. A
// promise whose task was released before running never settles.
type Promise struct {
	id   string
	done chan struct{}

	mu    sync.Mutex
	state PromiseState
	value interface{}
	err   error
}

func newPromise() *Promise {
	return &Promise{
		id:   uuid.New().String(),
		done: make(chan struct{}),
	}
}

// ID returns the unique promise id.
func (p *Promise) ID() string {
	return p.id
}

// Resolve settles the promise with a value. Settling twice is a no-op.
func (p *Promise) resolve(v interface{}) {
	p.settle(StateResolved, v, nil)
}

// Reject settles the promise with an error. Settling twice is a no-op.
func (p *Promise) reject(err error) {
	p.settle(StateRejected, nil, err)
}

func (p *Promise) settle(state PromiseState, v interface{}, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StatePending {
		return
	}
	p.state = state
	p.value = v
	p.err = err
	close(p.done)
}

// State returns the current settlement state.
func (p *Promise) State() PromiseState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Result returns the settled value or error, or ErrPending if the promise
// has not settled yet.
func (p *Promise) Result() (interface{}, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case StateResolved:
		return p.value, nil
	case StateRejected:
		return nil, p.err
	default:
		return nil, ErrPending
	}
}

// Await blocks until the promise settles or the context is done.
func (p *Promise) Await(ctx context.Context) (interface{}, error) {
	select {
	case <-p.done:
		return p.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done returns a channel closed when the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}
