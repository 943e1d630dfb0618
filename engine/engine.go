package engine

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register pure-Go SQLite driver
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// Options controls how a database handle is configured.
type Options struct {
	// BusyTimeout is how long a connection waits on a locked database before
	// failing with SQLITE_BUSY.
	BusyTimeout time.Duration

	// WAL enables write-ahead logging so readers do not block on a writer.
	WAL bool

	// ImmediateTx makes every transaction take the write reservation up
	// front, so check-then-write transactions never fail on lock upgrade.
	ImmediateTx bool
}

// Option mutates Options.
type Option func(*Options)

// WithBusyTimeout sets the SQLite busy timeout.
func WithBusyTimeout(d time.Duration) Option { return func(o *Options) { o.BusyTimeout = d } }

// WithWAL toggles journal_mode=WAL.
func WithWAL(enabled bool) Option { return func(o *Options) { o.WAL = enabled } }

// WithImmediateTx toggles BEGIN IMMEDIATE transactions.
func WithImmediateTx(enabled bool) Option { return func(o *Options) { o.ImmediateTx = enabled } }

// Open opens a SQLite database using the modernc.org/sqlite driver.
//
// For file-based databases, pass a path like "./db.sqlite". For in-memory
// databases, pass ":memory:"; the pool is then limited to a single
// connection because every connection would otherwise see its own database.
// The vec_cosine SQL function is registered before the pool is opened.
func Open(dsn string, opts ...Option) (*sql.DB, error) {
	o := Options{BusyTimeout: 5 * time.Second, WAL: true, ImmediateTx: true}
	for _, opt := range opts {
		opt(&o)
	}
	if dsn == "" {
		return nil, fmt.Errorf("engine: empty dsn")
	}
	if err := RegisterVectorFunctions(); err != nil {
		return nil, err
	}
	memory := dsn == MemoryDSN
	db, err := sql.Open("sqlite", buildDSN(dsn, memory, o))
	if err != nil {
		return nil, err
	}
	if memory {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

func buildDSN(dsn string, memory bool, o Options) string {
	var params []string
	if o.BusyTimeout > 0 {
		params = append(params, fmt.Sprintf("_pragma=busy_timeout(%d)", o.BusyTimeout.Milliseconds()))
	}
	if o.WAL && !memory {
		params = append(params, "_pragma=journal_mode(WAL)")
	}
	if o.ImmediateTx {
		params = append(params, "_txlock=immediate")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}
