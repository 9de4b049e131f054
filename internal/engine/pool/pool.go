// Package pool provides a bounded pool of reusable connections with blocking
// acquire and exclusive borrowing.
//
// Connections are opened lazily, up to the pool bound, the first time no idle
// connection is available. Released connections go back to the idle set and
// stay open until Close. A weighted semaphore caps the number of outstanding
// borrowers, so Acquire blocks once every slot is lent out.
package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxSize is the pool bound used when none is configured.
const DefaultMaxSize = 10

// Common pool errors.
var (
	ErrInvalidSize   = errors.New("pool size must be at least 1")
	ErrNilOpener     = errors.New("pool opener cannot be nil")
	ErrPoolExhausted = errors.New("no pooled connection became available")
	ErrPoolClosed    = errors.New("pool is closed")
	ErrNotBorrowed   = errors.New("connection is not borrowed from this pool")
)

// ExhaustedError is returned when Acquire gives up waiting for a slot.
// It matches ErrPoolExhausted via errors.Is and unwraps to the context error
// that ended the wait.
type ExhaustedError struct {
	MaxSize int
	Waited  time.Duration
	cause   error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("pool exhausted: all %d connections busy after waiting %s", e.MaxSize, e.Waited.Round(time.Millisecond))
}

// Is reports whether target is ErrPoolExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrPoolExhausted
}

func (e *ExhaustedError) Unwrap() error { return e.cause }

// Conn is the constraint for pooled connection handles. Handles are tracked
// by identity, so they must be comparable (typically a pointer).
type Conn interface {
	comparable
	io.Closer
}

// OpenFunc opens a fresh connection.
type OpenFunc[C Conn] func(ctx context.Context) (C, error)

// Option configures a Pool.
type Option func(*options)

type options struct {
	acquireTimeout time.Duration
}

// WithAcquireTimeout bounds how long Acquire waits for a free slot when the
// caller's context has no earlier deadline. Zero waits for the context only.
func WithAcquireTimeout(d time.Duration) Option {
	return func(o *options) {
		o.acquireTimeout = d
	}
}

// Stats is a point-in-time snapshot of pool occupancy.
type Stats struct {
	// Open is the number of connections created and not yet closed.
	Open int

	// Idle is the number of open connections waiting to be borrowed.
	Idle int

	// InUse is the number of connections currently borrowed.
	InUse int

	// MaxSize is the pool bound.
	MaxSize int
}

// Pool lends connections of type C to one borrower at a time.
// Thread-safe for concurrent access.
type Pool[C Conn] struct {
	maxSize        int
	acquireTimeout time.Duration
	open           OpenFunc[C]
	sem            *semaphore.Weighted

	// mu protects idle, borrowed and closed.
	mu       sync.Mutex
	idle     []C
	borrowed map[C]struct{}
	closed   bool
}

// New creates a pool lending at most maxSize connections opened with open.
func New[C Conn](maxSize int, open OpenFunc[C], opts ...Option) (*Pool[C], error) {
	if maxSize < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, maxSize)
	}
	if open == nil {
		return nil, ErrNilOpener
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	return &Pool[C]{
		maxSize:        maxSize,
		acquireTimeout: o.acquireTimeout,
		open:           open,
		sem:            semaphore.NewWeighted(int64(maxSize)),
		borrowed:       make(map[C]struct{}, maxSize),
	}, nil
}

// Acquire borrows a connection, opening one if none is idle and the pool is
// below its bound. It blocks while every connection is lent out and returns an
// *ExhaustedError if ctx or the pool's acquire timeout ends the wait first.
func (p *Pool[C]) Acquire(ctx context.Context) (C, error) {
	var zero C

	if p.isClosed() {
		return zero, ErrPoolClosed
	}

	waitCtx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}

	start := time.Now()
	if err := p.sem.Acquire(waitCtx, 1); err != nil {
		return zero, &ExhaustedError{MaxSize: p.maxSize, Waited: time.Since(start), cause: err}
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return zero, ErrPoolClosed
	}
	if n := len(p.idle); n > 0 {
		conn := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.borrowed[conn] = struct{}{}
		p.mu.Unlock()
		return conn, nil
	}
	p.mu.Unlock()

	// Holding a semaphore slot guarantees open+borrowed stays within maxSize.
	conn, err := p.open(ctx)
	if err != nil {
		p.sem.Release(1)
		return zero, fmt.Errorf("open pooled connection: %w", err)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		_ = conn.Close()
		return zero, ErrPoolClosed
	}
	p.borrowed[conn] = struct{}{}
	p.mu.Unlock()

	return conn, nil
}

// Release returns a borrowed connection to the idle set.
// Returns ErrNotBorrowed if conn is not currently lent out by this pool.
func (p *Pool[C]) Release(conn C) error {
	p.mu.Lock()
	if _, ok := p.borrowed[conn]; !ok {
		p.mu.Unlock()
		return ErrNotBorrowed
	}
	delete(p.borrowed, conn)

	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return conn.Close()
	}
	p.idle = append(p.idle, conn)
	p.mu.Unlock()

	p.sem.Release(1)
	return nil
}

// Discard closes a borrowed connection instead of returning it, freeing its
// slot for a fresh one. Use it when a connection is known to be broken.
func (p *Pool[C]) Discard(conn C) error {
	p.mu.Lock()
	if _, ok := p.borrowed[conn]; !ok {
		p.mu.Unlock()
		return ErrNotBorrowed
	}
	delete(p.borrowed, conn)
	p.mu.Unlock()

	p.sem.Release(1)
	return conn.Close()
}

// Stats returns the current pool occupancy.
func (p *Pool[C]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Open:    len(p.idle) + len(p.borrowed),
		Idle:    len(p.idle),
		InUse:   len(p.borrowed),
		MaxSize: p.maxSize,
	}
}

// MaxSize returns the pool bound.
func (p *Pool[C]) MaxSize() int {
	return p.maxSize
}

// Close closes every idle connection and rejects further acquires.
// Borrowed connections are closed when they are released.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	var errs []error
	for _, conn := range idle {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Pool[C]) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}
