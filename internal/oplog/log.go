// Package oplog holds the cookie mutations queued between commits,
// coalesced per cookie identity.
package oplog

import (
	"sync"

	"github.com/warpdl/cookiestore/pkg/cookie"
)

// Kind is the type of a pending mutation.
type Kind int

const (
	Add Kind = iota
	UpdateAccess
	Delete
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case UpdateAccess:
		return "update_access"
	case Delete:
		return "delete"
	default:
		return "unknown"
	}
}

// Operation is a queued mutation. Cookie is a private copy owned by the log
// until drained.
type Operation struct {
	Kind   Kind
	Cookie *cookie.Canonical
}

// Batch is a drained set of operations. Keys lists identities in the order
// they were first queued; Ops holds each identity's operations in enqueue
// order.
type Batch struct {
	Keys []cookie.Key
	Ops  map[cookie.Key][]Operation
	n    int
}

// Len returns the number of operations in b.
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return b.n
}

// Each calls fn for every operation, identity by identity.
func (b *Batch) Each(fn func(Operation)) {
	if b == nil {
		return
	}
	for _, k := range b.Keys {
		for _, op := range b.Ops[k] {
			fn(op)
		}
	}
}

// Log is safe for concurrent use.
type Log struct {
	mu    sync.Mutex
	keys  []cookie.Key
	ops   map[cookie.Key][]Operation
	count int
}

// New returns an empty Log.
func New() *Log {
	return &Log{ops: make(map[cookie.Key][]Operation)}
}

// Enqueue queues a mutation of c and returns the number of operations
// pending afterwards. The log stores a clone of c.
//
// Coalescing, per identity:
//   - Delete replaces everything queued before it.
//   - UpdateAccess replaces an immediately preceding UpdateAccess.
//   - Add always appends.
func (l *Log) Enqueue(kind Kind, c *cookie.Canonical) int {
	op := Operation{Kind: kind, Cookie: c.Clone()}
	key := c.Key()

	l.mu.Lock()
	defer l.mu.Unlock()

	queued, seen := l.ops[key]
	if !seen {
		l.keys = append(l.keys, key)
	}
	switch kind {
	case Delete:
		l.count -= len(queued)
		queued = queued[:0]
	case UpdateAccess:
		if n := len(queued); n > 0 && queued[n-1].Kind == UpdateAccess {
			queued = queued[:n-1]
			l.count--
		}
	}
	l.ops[key] = append(queued, op)
	l.count++
	return l.count
}

// DrainAll detaches and returns everything queued, leaving the log empty.
func (l *Log) DrainAll() *Batch {
	l.mu.Lock()
	b := &Batch{Keys: l.keys, Ops: l.ops, n: l.count}
	l.keys = nil
	l.ops = make(map[cookie.Key][]Operation)
	l.count = 0
	l.mu.Unlock()
	return b
}

// Size returns the number of pending operations.
func (l *Log) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
