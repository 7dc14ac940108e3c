package storage

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	log "github.com/sirupsen/logrus"
)

// Paired implements Store wrapping a pair of stores, one fast, one slow. It
// will handle puts storing data in the fast store and syncing that to the slow
// store in the background. It will handle gets from the fast store if possible,
// otherwise from the slow store (and in this case also propagate the data from
// the slow to the fast store, for next time that piece of data is requested).
//
// Readers of the slow store only see a write once it has been propagated, so
// a Paired store is eventually consistent from their point of view.
type Paired struct {
	fast Store
	slow Store

	wbc chan writeback

	// Keys with deletes not yet propagated to the slow store. A get that
	// misses the fast store must not resurrect them from the slow one.
	deleting *pendingDeletes
}

type pendingDeletes struct {
	sync.Mutex
	m map[string]int
}

func (p *pendingDeletes) add(key []byte, delta int) {
	p.Lock()
	defer p.Unlock()
	k := string(key)
	p.m[k] += delta
	if p.m[k] <= 0 {
		delete(p.m, k)
	}
}

func (p *pendingDeletes) has(key []byte) bool {
	p.Lock()
	defer p.Unlock()
	return p.m[string(key)] > 0
}

// ErrWritebackFull indicates that a Paired store has too many writes waiting
// to reach its slow store to accept another one.
var ErrWritebackFull = errors.New("write-back queue full")

type writeback struct {
	key   []byte
	value []byte
	del   bool
}

func NewPaired(fast, slow Store) Paired {
	p := Paired{
		fast: fast,
		slow: slow,
		wbc:  make(chan writeback, 42),
		deleting: &pendingDeletes{
			m: make(map[string]int),
		},
	}
	// Exits only when the process is terminated.
	go p.writeback()
	return p
}

func (s Paired) Get(key []byte) (value []byte, err error) {
	value, err = s.fast.Get(key)
	if err == nil {
		return
	}
	if !errors.Is(err, ErrNotFound) {
		return
	}
	if s.deleting.has(key) {
		return nil, err
	}
	value, err = s.slow.Get(key)
	if err != nil {
		return nil, err
	}
	logger := log.WithFields(log.Fields{
		"key": fmt.Sprintf("%.10x", key),
	})
	if ferr := s.fast.Put(key, value); ferr != nil {
		logger.WithField("err", ferr).Warn("Could not propagate from slow to fast")
	} else {
		logger.Debug("Propagated from slow to fast")
	}
	return value, nil
}

// Put stores the value in the fast store and queues it for the slow one. If
// the write-back queue is full, which happens when the slow store has been
// failing for a while, Put changes nothing and returns ErrWritebackFull.
func (s Paired) Put(key, value []byte) (err error) {
	if err = s.enqueue(writeback{key: dup(key), value: dup(value)}); err != nil {
		return err
	}
	// If we kill the process in the middle of propagation, we'll have
	// missing data in the slow store.
	return s.fast.Put(key, value)
}

// Delete removes the key from the fast store right away and from the slow
// store in the background. Like Put, it fails with ErrWritebackFull rather
// than wait for room in the queue.
func (s Paired) Delete(key []byte) (err error) {
	s.deleting.add(key, 1)
	if err = s.enqueue(writeback{key: dup(key), del: true}); err != nil {
		s.deleting.add(key, -1)
		return err
	}
	return s.fast.Delete(key)
}

func (s Paired) enqueue(wb writeback) error {
	select {
	case s.wbc <- wb:
		return nil
	default:
		return fmt.Errorf("%.10x: %w", wb.key, ErrWritebackFull)
	}
}

func (s Paired) writeback() {
	for wb := range s.wbc {
		s.writeback1(wb)
	}
}

func (s Paired) writeback1(wb writeback) {
	logger := log.WithFields(log.Fields{
		"key":    fmt.Sprintf("%.10x", wb.key),
		"delete": wb.del,
	})
	op := func() error {
		if wb.del {
			return s.slow.Delete(wb.key)
		}
		return s.slow.Put(wb.key, wb.value)
	}
	policy := backoff.NewExponentialBackOff()
	policy.MaxInterval = 30 * time.Second
	// Never give up.
	policy.MaxElapsedTime = 0
	_ = backoff.RetryNotify(op, policy, func(err error, next time.Duration) {
		logger.WithFields(log.Fields{
			"err":     err,
			"backoff": next,
		}).Warn("Could not propagate from fast to slow")
	})
	if wb.del {
		s.deleting.add(wb.key, -1)
	}
	logger.Debug("Propagated from fast to slow")
}
