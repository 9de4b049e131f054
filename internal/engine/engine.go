package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/Daethyra/ExecEye/internal/engine/cache"
	"github.com/Daethyra/ExecEye/internal/search"
	"github.com/Daethyra/ExecEye/internal/storage/sqlite"
)

// DefaultPersistTimeout bounds the pool acquire and write of one lookup.
const DefaultPersistTimeout = 10 * time.Second

// Provider fetches records for a request. *serpapi.Client satisfies it.
type Provider interface {
	Search(ctx context.Context, req search.Request) ([]search.Record, error)
}

// ConnPool lends exclusive database sessions. *pool.Pool[*sql.Conn]
// satisfies it.
type ConnPool interface {
	Acquire(ctx context.Context) (*sql.Conn, error)
	Release(conn *sql.Conn) error
}

// RecordStore persists records. *sqlite.Store satisfies it.
type RecordStore interface {
	EnsureSchema(ctx context.Context, sess sqlite.Session) error
	Append(ctx context.Context, sess sqlite.Session, key string, records []search.Record) (int, error)
	History(ctx context.Context, sess sqlite.Session, q sqlite.HistoryQuery) ([]sqlite.Row, error)
}

// Source tells where a Result came from.
type Source string

const (
	// SourceCache is a cache hit.
	SourceCache Source = "cache"
	// SourceProvider is a fresh provider response fetched by this caller.
	SourceProvider Source = "provider"
	// SourceShared is a provider response fetched by a concurrent caller.
	SourceShared Source = "shared"
	// SourceDegraded is an empty result standing in for a failed fetch.
	SourceDegraded Source = "degraded"
)

// Query identifies one lookup.
type Query struct {
	Subject string
	Intent  search.Intent
}

// Result is the outcome of Resolve.
type Result struct {
	Key     string
	Records []search.Record
	Source  Source

	// ProviderErr is set when Source is SourceDegraded.
	ProviderErr error

	// PersistErr is set when the records could not be stored. The lookup
	// itself still succeeded.
	PersistErr error

	// Written is the number of rows appended by this lookup's flight.
	Written int
}

// Options tunes an Engine.
type Options struct {
	// PersistTimeout bounds acquiring a connection and writing the results.
	// Zero uses DefaultPersistTimeout.
	PersistTimeout time.Duration
}

// Deps are the collaborators of an Engine. All are required except Logger.
type Deps struct {
	Provider Provider
	Cache    *cache.LRU[[]search.Record]
	Pool     ConnPool
	Store    RecordStore
	Logger   zerolog.Logger
}

// Stats are cumulative engine counters.
type Stats struct {
	Lookups         int64
	CacheHits       int64
	ProviderCalls   int64
	SharedWaits     int64
	PersistFailures int64
	Cache           cache.Stats
}

// Engine is the lookup coordinator. Safe for concurrent use.
type Engine struct {
	provider Provider
	cache    *cache.LRU[[]search.Record]
	pool     ConnPool
	store    RecordStore
	logger   zerolog.Logger

	persistTimeout time.Duration
	flights        singleflight.Group

	// mu guards closed and Add on running.
	mu      sync.Mutex
	closed  bool
	running sync.WaitGroup

	lookups         atomic.Int64
	cacheHits       atomic.Int64
	providerCalls   atomic.Int64
	sharedWaits     atomic.Int64
	persistFailures atomic.Int64
}

// New creates an Engine.
func New(opts Options, deps Deps) (*Engine, error) {
	switch {
	case deps.Provider == nil:
		return nil, fmt.Errorf("%w: provider", ErrMissingDependency)
	case deps.Cache == nil:
		return nil, fmt.Errorf("%w: cache", ErrMissingDependency)
	case deps.Pool == nil:
		return nil, fmt.Errorf("%w: pool", ErrMissingDependency)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDependency)
	}

	timeout := opts.PersistTimeout
	if timeout <= 0 {
		timeout = DefaultPersistTimeout
	}

	return &Engine{
		provider:       deps.Provider,
		cache:          deps.Cache,
		pool:           deps.Pool,
		store:          deps.Store,
		logger:         deps.Logger.With().Str("component", "engine").Logger(),
		persistTimeout: timeout,
	}, nil
}

// Lookup returns the leadership records for subject.
func (e *Engine) Lookup(ctx context.Context, subject string) ([]search.Record, error) {
	res, err := e.Resolve(ctx, Query{Subject: subject, Intent: search.IntentLeadership})
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// Resolve answers q from the cache or, on a miss, from a single provider call
// shared by every concurrent caller with the same key. Only invalid input, a
// cancelled or timed out fetch and a miss after Close are returned as errors.
//
// Storing fresh records never fails the lookup. A pool that cannot lend a
// connection within the persist timeout (pool.ErrPoolExhausted) and write
// failures are reported only on Result.PersistErr.
func (e *Engine) Resolve(ctx context.Context, q Query) (Result, error) {
	subject := strings.TrimSpace(q.Subject)
	if subject == "" {
		return Result{}, &InvalidInputError{Field: "subject", Reason: "company name cannot be empty"}
	}
	intent, err := search.ParseIntent(string(q.Intent))
	if err != nil {
		return Result{}, &InvalidInputError{Field: "intent", Reason: err.Error()}
	}

	key := cache.GenerateKey(subject, intent)
	e.lookups.Add(1)

	if records, ok := e.cache.Get(key); ok {
		e.cacheHits.Add(1)
		e.logger.Debug().Ctx(ctx).Str("key", key).Int("records", len(records)).Msg("cache hit")
		return Result{Key: key, Records: search.CloneRecords(records), Source: SourceCache}, nil
	}

	leader := false
	ch := e.flights.DoChan(key, func() (any, error) {
		leader = true
		return e.fill(ctx, key, subject, intent)
	})

	select {
	case out := <-ch:
		if out.Err != nil {
			return Result{Key: key}, out.Err
		}
		res := out.Val.(Result)
		res.Records = search.CloneRecords(res.Records)
		if !leader && res.Source != SourceCache {
			e.sharedWaits.Add(1)
			res.Source = SourceShared
		}
		return res, nil
	case <-ctx.Done():
		return Result{Key: key}, &LookupError{Key: key, Err: ctx.Err()}
	}
}

// fill runs once per in-flight key.
func (e *Engine) fill(ctx context.Context, key, subject string, intent search.Intent) (Result, error) {
	if !e.track() {
		return Result{}, &LookupError{Key: key, Err: ErrClosed}
	}
	defer e.running.Done()

	log := e.logger.With().Str("key", key).Logger()

	// A flight for this key may have completed between the caller's cache
	// miss and this flight starting.
	if records, ok := e.cache.Get(key); ok {
		e.cacheHits.Add(1)
		return Result{Key: key, Records: records, Source: SourceCache}, nil
	}

	e.providerCalls.Add(1)
	start := time.Now()
	records, err := e.provider.Search(ctx, search.NewRequest(subject, intent))
	if err != nil {
		if isContextErr(err) || ctx.Err() != nil {
			log.Warn().Ctx(ctx).Err(err).Msg("lookup abandoned")
			return Result{}, &LookupError{Key: key, Err: err}
		}
		log.Warn().Ctx(ctx).Err(err).Dur("elapsed", time.Since(start)).Msg("provider lookup failed, returning no results")
		return Result{Key: key, Records: []search.Record{}, Source: SourceDegraded, ProviderErr: err}, nil
	}

	records = search.CloneRecords(records)
	e.cache.Put(key, records)
	log.Debug().Ctx(ctx).Int("records", len(records)).Dur("elapsed", time.Since(start)).Msg("provider lookup complete")

	res := Result{Key: key, Records: records, Source: SourceProvider}
	if len(records) == 0 {
		return res, nil
	}

	res.Written, res.PersistErr = e.persist(ctx, key, records)
	if res.PersistErr != nil {
		e.persistFailures.Add(1)
		log.Warn().Ctx(ctx).Err(res.PersistErr).Msg("failed to persist results")
	}
	return res, nil
}

// persist stores records under key. It runs detached from the caller's
// cancellation, bounded by the persist timeout.
func (e *Engine) persist(ctx context.Context, key string, records []search.Record) (int, error) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.persistTimeout)
	defer cancel()

	conn, err := e.pool.Acquire(pctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer func() {
		if relErr := e.pool.Release(conn); relErr != nil {
			e.logger.Error().Ctx(ctx).Err(relErr).Msg("failed to release connection")
		}
	}()

	if err := e.store.EnsureSchema(pctx, conn); err != nil {
		return 0, err
	}
	return e.store.Append(pctx, conn, key, records)
}

// track registers a running flight unless the engine is closed.
func (e *Engine) track() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return false
	}
	e.running.Add(1)
	return true
}

// Close stops new flights and waits for running ones, including writes that
// outlived their callers, to finish. It returns ctx's error if ctx ends
// first. Cache hits are still served after Close.
func (e *Engine) Close(ctx context.Context) error {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for running lookups: %w", ctx.Err())
	}
}

// HistoryQuery filters History.
type HistoryQuery struct {
	// Subject restricts rows to one company. Empty returns every key.
	Subject string
	Intent  search.Intent
	Limit   int
}

// History returns persisted rows, newest first. Unlike lookups, a pool that
// cannot lend a connection in time is reported to the caller.
func (e *Engine) History(ctx context.Context, q HistoryQuery) ([]sqlite.Row, error) {
	var key string
	if strings.TrimSpace(q.Subject) != "" {
		intent, err := search.ParseIntent(string(q.Intent))
		if err != nil {
			return nil, &InvalidInputError{Field: "intent", Reason: err.Error()}
		}
		key = cache.GenerateKey(q.Subject, intent)
	}

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("history: acquire connection: %w", err)
	}
	defer func() {
		if relErr := e.pool.Release(conn); relErr != nil {
			e.logger.Error().Ctx(ctx).Err(relErr).Msg("failed to release connection")
		}
	}()

	if err := e.store.EnsureSchema(ctx, conn); err != nil {
		return nil, err
	}
	return e.store.History(ctx, conn, sqlite.HistoryQuery{Key: key, Limit: q.Limit})
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() Stats {
	return Stats{
		Lookups:         e.lookups.Load(),
		CacheHits:       e.cacheHits.Load(),
		ProviderCalls:   e.providerCalls.Load(),
		SharedWaits:     e.sharedWaits.Load(),
		PersistFailures: e.persistFailures.Load(),
		Cache:           e.cache.Stats(),
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
