package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Daethyra/ExecEye/internal/config"
	"github.com/Daethyra/ExecEye/internal/engine"
	"github.com/Daethyra/ExecEye/internal/engine/cache"
	"github.com/Daethyra/ExecEye/internal/engine/pool"
	"github.com/Daethyra/ExecEye/internal/logging"
	"github.com/Daethyra/ExecEye/internal/provider/serpapi"
	"github.com/Daethyra/ExecEye/internal/search"
	"github.com/Daethyra/ExecEye/internal/storage/sqlite"
)

// errSearchUnavailable is returned by the placeholder provider of commands
// that only read stored results.
var errSearchUnavailable = errors.New("search provider is not configured for this command")

type offlineProvider struct{}

func (offlineProvider) Search(context.Context, search.Request) ([]search.Record, error) {
	return nil, errSearchUnavailable
}

// app is the wired lookup stack: store, pool, cache and engine.
type app struct {
	cfg    *config.Config
	store  *sqlite.Store
	pool   *pool.Pool[*sql.Conn]
	engine *engine.Engine
}

// open validates the configuration and wires the lookup stack. needSearch
// requires a usable provider; history and other offline commands pass false.
func (s *session) open(ctx context.Context, needSearch bool) (*app, error) {
	cfg := s.cfg
	if cfg == nil {
		return nil, &config.ConfigurationError{Field: "config", Reason: "not loaded"}
	}

	validate := cfg.ValidateLocal
	if needSearch && s.opts.provider == nil {
		validate = cfg.Validate
	}
	if err := validate(); err != nil {
		return nil, err
	}

	provider, err := s.provider(needSearch)
	if err != nil {
		return nil, err
	}

	store, err := sqlite.Open(cfg.Storage.Path, cfg.Storage.PoolSize)
	if err != nil {
		return nil, fmt.Errorf("opening result store: %w", err)
	}

	connPool, err := pool.New[*sql.Conn](cfg.Storage.PoolSize, store.OpenConn,
		pool.WithAcquireTimeout(cfg.Storage.AcquireTimeout))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	lru, err := cache.NewLRU[[]search.Record](cfg.Cache.Capacity, cache.WithTTL(cfg.Cache.TTL))
	if err != nil {
		_ = connPool.Close()
		_ = store.Close()
		return nil, &config.ConfigurationError{Field: "cache", Reason: err.Error()}
	}

	eng, err := engine.New(engine.Options{PersistTimeout: cfg.Storage.PersistTimeout}, engine.Deps{
		Provider: provider,
		Cache:    lru,
		Pool:     connPool,
		Store:    store,
		Logger:   *logging.FromContext(ctx),
	})
	if err != nil {
		_ = connPool.Close()
		_ = store.Close()
		return nil, err
	}

	logging.FromContext(ctx).Debug().Ctx(ctx).
		Str("db", cfg.Storage.Path).
		Int("cache_capacity", cfg.Cache.Capacity).
		Int("pool_size", cfg.Storage.PoolSize).
		Msg("lookup stack ready")

	return &app{cfg: cfg, store: store, pool: connPool, engine: eng}, nil
}

func (s *session) provider(needSearch bool) (engine.Provider, error) {
	if s.opts.provider != nil {
		return s.opts.provider, nil
	}
	if !needSearch {
		return offlineProvider{}, nil
	}
	client, err := serpapi.New(serpapi.Config{
		APIKey:        s.cfg.Search.APIKey,
		BaseURL:       s.cfg.Search.BaseURL,
		Timeout:       s.cfg.Search.Timeout,
		RatePerSecond: s.cfg.Search.RatePerSecond,
		Results:       s.cfg.Search.Results,
	})
	if err != nil {
		return nil, &config.ConfigurationError{Field: "search", Reason: err.Error()}
	}
	return client, nil
}

// Close waits for running lookups to finish their writes, logs session
// counters and releases the pool and database. The wait survives ctx being
// cancelled by an interrupt and is bounded by the search and persist timeouts.
func (a *app) Close(ctx context.Context) error {
	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.drainTimeout())
	defer cancel()
	drainErr := a.engine.Close(drainCtx)
	if drainErr != nil {
		logging.FromContext(ctx).Warn().Ctx(ctx).Err(drainErr).Msg("closing with lookups still running")
	}

	stats := a.engine.Stats()
	logging.FromContext(ctx).Debug().Ctx(ctx).
		Int64("lookups", stats.Lookups).
		Int64("cache_hits", stats.CacheHits).
		Int64("provider_calls", stats.ProviderCalls).
		Int64("shared_waits", stats.SharedWaits).
		Int64("persist_failures", stats.PersistFailures).
		Int64("evictions", stats.Cache.Evictions).
		Msg("session finished")

	return errors.Join(drainErr, a.pool.Close(), a.store.Close())
}

// drainTimeout bounds Close's wait: one provider call plus one write.
func (a *app) drainTimeout() time.Duration {
	searchTimeout := a.cfg.Search.Timeout
	if searchTimeout <= 0 {
		searchTimeout = serpapi.DefaultTimeout
	}
	persistTimeout := a.cfg.Storage.PersistTimeout
	if persistTimeout <= 0 {
		persistTimeout = engine.DefaultPersistTimeout
	}
	return searchTimeout + persistTimeout
}
