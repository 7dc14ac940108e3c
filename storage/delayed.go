package storage

import (
	"sync"
	"time"
)

// Delayed implements Store wrapping another store so that writes become
// visible to readers only after a propagation delay, the way an edge location
// sees writes made elsewhere. Pending writes are applied lazily, in order, by
// the first call that observes their deadline has passed.
type Delayed struct {
	mu       sync.Mutex
	delegate Store
	delay    time.Duration
	now      func() time.Time
	pending  []delayedWrite
}

type delayedWrite struct {
	visibleAt time.Time
	key       []byte
	value     []byte
	del       bool
}

type DelayedOption func(*Delayed)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) DelayedOption {
	return func(s *Delayed) {
		s.now = now
	}
}

func NewDelayed(delegate Store, delay time.Duration, opts ...DelayedOption) *Delayed {
	s := &Delayed{
		delegate: delegate,
		delay:    delay,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Delayed) Put(key, value []byte) error {
	return s.enqueue(delayedWrite{key: dup(key), value: dup(value)})
}

func (s *Delayed) Delete(key []byte) error {
	return s.enqueue(delayedWrite{key: dup(key), del: true})
}

func (s *Delayed) Get(key []byte) (value []byte, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.applyVisible(); err != nil {
		return nil, err
	}
	return s.delegate.Get(key)
}

// Pending returns the number of writes not yet visible.
func (s *Delayed) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *Delayed) enqueue(w delayedWrite) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w.visibleAt = s.now().Add(s.delay)
	s.pending = append(s.pending, w)
	return s.applyVisible()
}

// applyVisible must be called with s.mu held. On error, the failed write and
// those after it stay pending.
func (s *Delayed) applyVisible() error {
	now := s.now()
	for len(s.pending) > 0 {
		w := s.pending[0]
		if now.Before(w.visibleAt) {
			break
		}
		var err error
		if w.del {
			err = s.delegate.Delete(w.key)
		} else {
			err = s.delegate.Put(w.key, w.value)
		}
		if err != nil {
			return err
		}
		s.pending[0] = delayedWrite{}
		s.pending = s.pending[1:]
	}
	return nil
}
