// Package lock serializes work on a single key, such as a document path.
//
// The ingestion pipeline holds a lock for the duration of the skip-check and
// upsert sequence so that concurrent writers for the same path cannot both
// observe "absent" and both write.
package lock

import (
	"context"
	"sync"
)

// Unlock releases a held lock. It is safe to call more than once.
type Unlock func()

// Locker acquires exclusive access to a key.
type Locker interface {
	// Lock blocks until the key is held or ctx is done.
	Lock(ctx context.Context, key string) (Unlock, error)
}

// Local is an in-process keyed mutex. The zero value is ready to use.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

var _ Locker = (*Local)(nil)

// NewLocal returns an empty in-process locker.
func NewLocal() *Local {
	return &Local{}
}

// Lock implements Locker.
func (l *Local) Lock(ctx context.Context, key string) (Unlock, error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*slot)
	}
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.drop(key, s)
		})
	}, nil
}

func (l *Local) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

// Held returns the number of keys with a holder or waiter.
func (l *Local) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
