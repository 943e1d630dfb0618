package store

import (
	"context"
	"database/sql"
	"strings"

	"golang.org/x/text/cases"

	"github.com/viant/mediavec/vector"
)

// Get returns the document with id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*vector.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+selectColumns+" FROM "+s.table+" WHERE id = ?", id)
	d, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("get", err)
	}
	return d, nil
}

// List returns all documents in storage order.
func (s *Store) List(ctx context.Context) ([]*vector.Document, error) {
	return s.collect(ctx, "list", "", nil)
}

// ListWithEmbedding returns all documents that carry an embedding.
func (s *Store) ListWithEmbedding(ctx context.Context) ([]*vector.Document, error) {
	return s.collect(ctx, "list embedded", "WHERE embedding IS NOT NULL", nil)
}

// ScanWithEmbedding streams every document that carries an embedding to fn,
// one row at a time. Returning an error from fn stops the scan and is passed
// through unchanged.
func (s *Store) ScanWithEmbedding(ctx context.Context, fn func(*vector.Document) error) error {
	return s.scan(ctx, "scan embedded", "WHERE embedding IS NOT NULL", fn)
}

// SearchByName returns documents whose name contains substr, ignoring case.
// An empty substr matches every document.
func (s *Store) SearchByName(ctx context.Context, substr string) ([]*vector.Document, error) {
	if substr == "" {
		return s.List(ctx)
	}
	folder := cases.Fold()
	needle := folder.String(substr)
	return s.collect(ctx, "search by name", "", func(d *vector.Document) bool {
		return strings.Contains(folder.String(d.Name), needle)
	})
}

// Count returns the number of stored documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+s.table).Scan(&n); err != nil {
		return 0, storageErr("count", err)
	}
	return n, nil
}

// Fingerprints returns the stored fingerprint of every document keyed by id.
func (s *Store) Fingerprints(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, fingerprint FROM "+s.table)
	if err != nil {
		return nil, storageErr("fingerprints", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var id, fp string
		if err := rows.Scan(&id, &fp); err != nil {
			return nil, storageErr("fingerprints", err)
		}
		out[id] = fp
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("fingerprints", err)
	}
	return out, nil
}

func (s *Store) collect(ctx context.Context, op, where string, keep func(*vector.Document) bool) ([]*vector.Document, error) {
	var out []*vector.Document
	err := s.scan(ctx, op, where, func(d *vector.Document) error {
		if keep == nil || keep(d) {
			out = append(out, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type callbackError struct{ err error }

func (c callbackError) Error() string { return c.err.Error() }

func (s *Store) scan(ctx context.Context, op, where string, fn func(*vector.Document) error) error {
	err := s.scanRows(ctx, where, fn)
	if err == nil {
		return nil
	}
	if cb, ok := err.(callbackError); ok {
		return cb.err
	}
	return storageErr(op, err)
}

func (s *Store) scanRows(ctx context.Context, where string, fn func(*vector.Document) error) error {
	query := "SELECT " + selectColumns + " FROM " + s.table
	if where != "" {
		query += " " + where
	}
	rows, err := s.db.QueryContext(ctx, query+" ORDER BY rowid")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return err
		}
		if err := fn(d); err != nil {
			return callbackError{err: err}
		}
	}
	return rows.Err()
}
