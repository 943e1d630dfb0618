package session

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoreType represents the type of session store.
type StoreType string

const (
	StoreTypeMemory StoreType = "memory"
	StoreTypeRedis  StoreType = "redis"
	StoreTypeSQLite StoreType = "sqlite"
)

// DefaultSQLiteTable is the sessions table used by the SQLite store.
const DefaultSQLiteTable = "sessions"

// StoreOption is a functional option for configuring a session store.
type StoreOption func(*storeConfig)

type storeConfig struct {
	redisClient *redis.Client
	redisPrefix string
	sqliteDB    *sql.DB
	sqliteTable string
	now         func() time.Time
}

// WithRedisClient sets the Redis client for the Redis store.
func WithRedisClient(client *redis.Client) StoreOption {
	return func(c *storeConfig) { c.redisClient = client }
}

// WithRedisPrefix sets the key prefix for the Redis store.
func WithRedisPrefix(prefix string) StoreOption {
	return func(c *storeConfig) { c.redisPrefix = prefix }
}

// WithSQLiteDB sets the database for the SQLite store. The store creates its
// table on construction and never closes db.
func WithSQLiteDB(db *sql.DB) StoreOption {
	return func(c *storeConfig) { c.sqliteDB = db }
}

// WithSQLiteTable overrides the SQLite sessions table name.
func WithSQLiteTable(table string) StoreOption {
	return func(c *storeConfig) { c.sqliteTable = table }
}

// NewStore creates a Store of the given type. The Redis store requires
// WithRedisClient and the SQLite store requires WithSQLiteDB.
func NewStore(ctx context.Context, storeType StoreType, opts ...StoreOption) (Store, error) {
	cfg := &storeConfig{redisPrefix: "session:", sqliteTable: DefaultSQLiteTable, now: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}
	switch storeType {
	case StoreTypeMemory:
		return newMemoryStore(), nil
	case StoreTypeRedis:
		if cfg.redisClient == nil {
			return nil, ErrInvalidConfig
		}
		return &redisStore{client: cfg.redisClient, prefix: cfg.redisPrefix, now: cfg.now}, nil
	case StoreTypeSQLite:
		if cfg.sqliteDB == nil || !validTable(cfg.sqliteTable) {
			return nil, ErrInvalidConfig
		}
		return newSQLiteStore(ctx, cfg.sqliteDB, cfg.sqliteTable)
	default:
		return nil, ErrInvalidStoreType
	}
}

func validTable(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
