package testutil

import (
	"context"
	"sync"
)

// InMemoryTxRunner serializes callers per key with a plain mutex, standing in
// for the advisory-lock transaction runner.
type InMemoryTxRunner struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewInMemoryTxRunner() *InMemoryTxRunner {
	return &InMemoryTxRunner{
		locks: make(map[string]*sync.Mutex),
	}
}

func (r *InMemoryTxRunner) WithLockedTx(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	r.mu.Lock()
	lock, ok := r.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[key] = lock
	}
	r.mu.Unlock()

	lock.Lock()
	defer lock.Unlock()
	return fn(ctx)
}
