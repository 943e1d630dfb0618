package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/viant/mediavec/vecsync"
)

// DefaultTable is the documents table used when no WithTable option is given.
const DefaultTable = "documents"

const documentsSchema = `
CREATE TABLE IF NOT EXISTS %[1]s (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    text        TEXT NOT NULL,
    fingerprint TEXT NOT NULL,
    embedding   BLOB
);`

const fingerprintIndex = `CREATE INDEX IF NOT EXISTS %[1]s_fingerprint_idx ON %[1]s(fingerprint);`

// Init creates the documents table, its fingerprint index and, when the
// change log is enabled, the log table and its triggers. It is idempotent and
// safe to call on every start.
func (s *Store) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(documentsSchema, s.table),
		fmt.Sprintf(fingerprintIndex, s.table),
	}
	if s.changeLog {
		stmts = append(stmts, vecsync.LogTableDDL(s.logTable))
		stmts = append(stmts, vecsync.SQLiteTriggers(s.table, s.logTable)...)
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("init", errors.Wrapf(err, "failed to initialize %s", s.table))
		}
	}
	s.logger.Debug().Str("table", s.table).Bool("change_log", s.changeLog).Msg("schema ready")
	return nil
}

func validIdentifier(name string) bool {
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
