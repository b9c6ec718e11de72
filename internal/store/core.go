// Package store holds the client-side state containers: identity,
// restaurant catalog and reservations.  Each store serializes every state
// change through one update point and publishes snapshots to subscribers.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned by an operation whose response arrived after
// a newer call of the same operation had been issued.  The stale response
// is not applied.
var ErrSuperseded = errors.New("superseded by a newer call")

// ticket identifies one in-flight call.  Calls sharing a non-empty key
// supersede each other; an empty key is never superseded.
type ticket struct {
	key string
	seq uint64
}

// core is the serialized update point embedded by every store.  D is the
// store's data; loading and error bookkeeping live beside it.
type core[D any] struct {
	mu       sync.Mutex
	data     D
	inflight int
	err      string
	seq      map[string]uint64
	subs     map[uint64]func()
	nextSub  uint64
}

func newCore[D any](data D) *core[D] {
	return &core[D]{
		data: data,
		seq:  make(map[string]uint64),
		subs: make(map[uint64]func()),
	}
}

// begin marks a call in flight and clears the previous error.
func (c *core[D]) begin(key string) ticket {
	c.mu.Lock()
	c.inflight++
	c.err = ""
	t := ticket{key: key}
	if key != "" {
		c.seq[key]++
		t.seq = c.seq[key]
	}
	c.mu.Unlock()
	c.notify()
	return t
}

// finish ends a call started with begin.
func (c *core[D]) finish(ticket) {
	c.mu.Lock()
	if c.inflight > 0 {
		c.inflight--
	}
	c.mu.Unlock()
	c.notify()
}

// commit applies the outcome of a remote call.  Nothing is written when
// ctx is done or the ticket was superseded.  A non-nil err replaces the
// stored error; otherwise apply runs under the lock.
func (c *core[D]) commit(ctx context.Context, t ticket, err error, apply func(*D)) error {
	c.mu.Lock()
	if cerr := ctx.Err(); cerr != nil {
		c.mu.Unlock()
		return cerr
	}
	if t.key != "" && c.seq[t.key] != t.seq {
		c.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		c.err = err.Error()
	} else if apply != nil {
		apply(&c.data)
	}
	c.mu.Unlock()
	c.notify()
	return err
}

// update applies a synchronous change.
func (c *core[D]) update(apply func(*D)) {
	c.mu.Lock()
	apply(&c.data)
	c.mu.Unlock()
	c.notify()
}

// fail records err without a ticket, for operations rejected before any
// remote call was made.
func (c *core[D]) fail(err error) error {
	c.mu.Lock()
	c.err = err.Error()
	c.mu.Unlock()
	c.notify()
	return err
}

// read calls fn with the current data under the lock.
func (c *core[D]) read(fn func(d *D, loading bool, err string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.data, c.inflight > 0, c.err)
}

func (c *core[D]) subscribe(fn func()) func() {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	c.subs[id] = fn
	c.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			c.mu.Unlock()
		})
	}
}

func (c *core[D]) notify() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
