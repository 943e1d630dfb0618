package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/viant/mediavec/config"
	"github.com/viant/mediavec/engine"
	"github.com/viant/mediavec/observability"
	"github.com/viant/mediavec/session"
	"github.com/viant/mediavec/similarity"
	"github.com/viant/mediavec/store"
)

// app holds the components built from one configuration value.
type app struct {
	cfg      *config.Config
	errOut   io.Writer
	logger   zerolog.Logger
	registry *prometheus.Registry
	metrics  *observability.Metrics
	db       *sql.DB
	store    *store.Store
	engine   *similarity.Engine
}

func newApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	logger, err := observability.NewLogger(logOut, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, errOut: logOut, logger: logger}
	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		if a.metrics, err = observability.NewMetrics(a.registry); err != nil {
			return nil, err
		}
	}

	a.db, err = engine.Open(cfg.Store.DSN,
		engine.WithBusyTimeout(cfg.Store.BusyTimeout),
		engine.WithWAL(cfg.Store.WAL),
	)
	if err != nil {
		return nil, err
	}
	a.store, err = store.New(a.db,
		store.WithTable(cfg.Store.Table),
		store.WithChangeLog(cfg.Store.ChangeLog),
		store.WithLogger(logger.With().Str("component", "store").Logger()),
	)
	if err != nil {
		_ = a.db.Close()
		return nil, err
	}
	a.engine = similarity.New(a.store,
		similarity.WithMaxN(cfg.Search.MaxN),
		similarity.WithLogger(logger.With().Str("component", "similarity").Logger()),
		similarity.WithMetrics(a.metrics),
	)
	return a, nil
}

// ensureSchema initializes the store; every command runs it so a fresh DSN
// is usable immediately.
func (a *app) ensureSchema(ctx context.Context) error {
	return a.store.Init(ctx)
}

// sessionManager builds a Manager over a store that persists between
// invocations: a table in the document database, or Redis.
func (a *app) sessionManager(ctx context.Context) (*session.Manager, error) {
	var opts []session.StoreOption
	switch driver := session.StoreType(a.cfg.Session.Driver); driver {
	case session.StoreTypeSQLite:
		opts = append(opts, session.WithSQLiteDB(a.db))
	case session.StoreTypeRedis:
		client := redis.NewClient(&redis.Options{Addr: a.cfg.Session.RedisAddr})
		opts = append(opts, session.WithRedisClient(client), session.WithRedisPrefix(a.cfg.Session.RedisPrefix))
	default:
		return nil, fmt.Errorf("session driver %q does not persist between commands; use %q or %q",
			driver, session.StoreTypeSQLite, session.StoreTypeRedis)
	}
	st, err := session.NewStore(ctx, session.StoreType(a.cfg.Session.Driver), opts...)
	if err != nil {
		return nil, err
	}
	return session.NewManager(st, a.cfg.Session.TTL,
		session.WithLogger(a.logger.With().Str("component", "session").Logger()))
}

// writeMetrics dumps collected metrics in the text exposition format.
func (a *app) writeMetrics(w io.Writer) error {
	if a.registry == nil {
		return nil
	}
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) Close() error {
	if a.registry != nil {
		if err := a.writeMetrics(a.errOut); err != nil {
			a.logger.Warn().Err(err).Msg("failed to write metrics")
		}
	}
	return a.db.Close()
}
