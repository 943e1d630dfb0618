package session

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/pkg/errors"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS %s (
    id          TEXT PRIMARY KEY,
    subject     TEXT,
    token       TEXT,
    created_at  INTEGER NOT NULL,
    updated_at  INTEGER NOT NULL,
    expires_at  INTEGER NOT NULL
);`

// sqliteStore implements Store on a table in a shared SQLite database, so
// sessions outlive the process that created them. Times are stored as unix
// nanoseconds.
type sqliteStore struct {
	db    *sql.DB
	table string
}

func newSQLiteStore(ctx context.Context, db *sql.DB, table string) (*sqliteStore, error) {
	if _, err := db.ExecContext(ctx, fmt.Sprintf(sqliteSchema, table)); err != nil {
		return nil, errors.Wrapf(err, "failed to initialize %s", table)
	}
	return &sqliteStore{db: db, table: table}, nil
}

func (s *sqliteStore) Put(ctx context.Context, data *Session) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO `+s.table+`(id, subject, token, created_at, updated_at, expires_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  subject = excluded.subject,
  token = excluded.token,
  updated_at = excluded.updated_at,
  expires_at = excluded.expires_at`,
		data.ID, nullable(data.Subject), nullable(data.Token),
		data.CreatedAt.UnixNano(), data.UpdatedAt.UnixNano(), data.ExpiresAt.UnixNano())
	if err != nil {
		return errors.Wrapf(err, "failed to store session %s", data.ID)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*Session, error) {
	var (
		data                        Session
		subject, token              sql.NullString
		created, updated, expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, subject, token, created_at, updated_at, expires_at FROM "+s.table+" WHERE id = ?", id).
		Scan(&data.ID, &subject, &token, &created, &updated, &expiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load session %s", id)
	}
	if subject.Valid {
		data.Subject = &subject.String
	}
	if token.Valid {
		data.Token = &token.String
	}
	data.CreatedAt = time.Unix(0, created).UTC()
	data.UpdatedAt = time.Unix(0, updated).UTC()
	data.ExpiresAt = time.Unix(0, expiresAt).UTC()
	return &data, nil
}

func (s *sqliteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE id = ?", id); err != nil {
		return errors.Wrapf(err, "failed to delete session %s", id)
	}
	return nil
}

func (s *sqliteStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM "+s.table+" WHERE expires_at <= ?", now.UnixNano())
	if err != nil {
		return 0, errors.Wrap(err, "failed to delete expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count expired sessions")
	}
	return int(n), nil
}

// Close is a no-op; the database belongs to the caller.
func (s *sqliteStore) Close() error { return nil }

func nullable(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}
