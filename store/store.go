package store

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/viant/mediavec/vecsync"
	"github.com/viant/mediavec/vector"
)

// Store is a SQLite-backed document store. Each Store owns no connection
// state beyond the shared *sql.DB; several Stores may point at the same
// database file, with write conflicts arbitrated by SQLite locking.
type Store struct {
	db        *sql.DB
	table     string
	logTable  string
	changeLog bool
	logger    zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithTable overrides the documents table name. The name must be a plain SQL
// identifier.
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// WithChangeLog enables the insert/update change log.
func WithChangeLog(enabled bool) Option {
	return func(s *Store) { s.changeLog = enabled }
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over db. Call Init before first use.
func New(db *sql.DB, opts ...Option) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is nil")
	}
	s := &Store{db: db, table: DefaultTable, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	if !validIdentifier(s.table) {
		return nil, fmt.Errorf("store: invalid table name %q", s.table)
	}
	s.logTable = vecsync.LogTableName(s.table)
	return s, nil
}

// selectColumns reads a document row. The trailing flag tells an empty
// embedding apart from NULL, since drivers may scan a zero-length BLOB as nil.
const selectColumns = "id, name, text, fingerprint, embedding, embedding IS NOT NULL"

func (s *Store) upsertSQL() string {
	return fmt.Sprintf(`
INSERT INTO %s(id, name, text, fingerprint, embedding)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name,
  text = excluded.text,
  fingerprint = excluded.fingerprint,
  embedding = excluded.embedding`, s.table)
}

// Table returns the documents table name.
func (s *Store) Table() string { return s.table }

func storageErr(op string, err error) error {
	return &vector.StorageError{Op: op, Err: err}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*vector.Document, error) {
	var (
		d       vector.Document
		blob    []byte
		present bool
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Text, &d.Fingerprint, &blob, &present); err != nil {
		return nil, err
	}
	if present {
		if blob == nil {
			blob = []byte{}
		}
		emb, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, err
		}
		d.Embedding = emb
	}
	return &d, nil
}

func embeddingArg(vec []float32) any {
	if vec == nil {
		return nil
	}
	return vector.EncodeEmbedding(vec)
}
