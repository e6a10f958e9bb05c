package service

import (
	"context"
	"sync"
)

// ownerLocks hands out one exclusive claim per owner. Claims for different
// owners never contend.
type ownerLocks struct {
	mu    sync.Mutex
	slots map[uint]chan struct{}
}

func newOwnerLocks() *ownerLocks {
	return &ownerLocks{slots: make(map[uint]chan struct{})}
}

func (l *ownerLocks) slot(ownerID uint) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[ownerID]
	if !ok {
		ch = make(chan struct{}, 1)
		ch <- struct{}{}
		l.slots[ownerID] = ch
	}
	return ch
}

// acquire blocks until the owner's claim is free or ctx is done. The returned
// release func must be called exactly once.
func (l *ownerLocks) acquire(ctx context.Context, ownerID uint) (func(), error) {
	ch := l.slot(ownerID)
	select {
	case <-ch:
		var once sync.Once
		return func() {
			once.Do(func() { ch <- struct{}{} })
		}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
