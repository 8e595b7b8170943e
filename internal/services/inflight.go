package services

import (
	"context"
	"sync"
)

// Inflight tracks the cancel function of every job executing in this
// process so an operator action can interrupt an outstanding call.
type Inflight struct {
	mu      sync.Mutex
	running map[string]context.CancelCauseFunc
}

// Register records cancel for id. It reports false when id is already
// executing.
func (r *Inflight) Register(id string, cancel context.CancelCauseFunc) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running == nil {
		r.running = make(map[string]context.CancelCauseFunc)
	}
	if _, exists := r.running[id]; exists {
		return false
	}
	r.running[id] = cancel
	return true
}

// Release forgets id.
func (r *Inflight) Release(id string) {
	r.mu.Lock()
	delete(r.running, id)
	r.mu.Unlock()
}

// Interrupt cancels id's context with cause.
func (r *Inflight) Interrupt(id string, cause error) bool {
	r.mu.Lock()
	cancel, ok := r.running[id]
	r.mu.Unlock()
	if ok {
		cancel(cause)
	}
	return ok
}

// Active reports whether id is executing.
func (r *Inflight) Active(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.running[id]
	return ok
}
