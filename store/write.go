package store

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/viant/mediavec/vector"
)

func validate(doc *vector.Document) error {
	if doc == nil {
		return errors.Wrap(vector.ErrInvalidDocument, "nil document")
	}
	if doc.ID == "" {
		return errors.Wrap(vector.ErrInvalidDocument, "empty id")
	}
	return nil
}

// Upsert writes doc unless a document with the same id and fingerprint is
// already stored. It reports whether a write happened. An empty Fingerprint
// is derived from Text before comparing.
//
// The fingerprint check and the write run in one transaction; concurrent
// writers on the same id are arbitrated by SQLite locking only.
func (s *Store) Upsert(ctx context.Context, doc *vector.Document) (bool, error) {
	if err := validate(doc); err != nil {
		return false, err
	}
	fp := doc.ContentFingerprint()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, storageErr("upsert", err)
	}
	defer func() { _ = tx.Rollback() }()

	var stored string
	err = tx.QueryRowContext(ctx, "SELECT fingerprint FROM "+s.table+" WHERE id = ?", doc.ID).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
	case err != nil:
		return false, storageErr("upsert", err)
	case stored == fp:
		s.logger.Debug().Str("id", doc.ID).Msg("unchanged, skipped")
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, s.upsertSQL(), doc.ID, doc.Name, doc.Text, fp, embeddingArg(doc.Embedding)); err != nil {
		return false, storageErr("upsert", errors.Wrapf(err, "failed to write %s", doc.ID))
	}
	if err := tx.Commit(); err != nil {
		return false, storageErr("upsert", err)
	}
	s.logger.Debug().Str("id", doc.ID).Msg("saved")
	return true, nil
}

// UpsertMany writes every document whose fingerprint differs from the stored
// one and returns how many were written. Stored fingerprints are loaded once
// up front. All writes share one transaction: if any write fails, none of
// them are kept and the error is returned.
func (s *Store) UpsertMany(ctx context.Context, docs []*vector.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	for _, d := range docs {
		if err := validate(d); err != nil {
			return 0, err
		}
	}
	existing, err := s.Fingerprints(ctx)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("upsert batch", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.upsertSQL())
	if err != nil {
		return 0, storageErr("upsert batch", err)
	}
	defer stmt.Close()

	written := 0
	for _, d := range docs {
		fp := d.ContentFingerprint()
		if prev, ok := existing[d.ID]; ok && prev == fp {
			continue
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Name, d.Text, fp, embeddingArg(d.Embedding)); err != nil {
			return 0, storageErr("upsert batch", errors.Wrapf(err, "failed to write %s", d.ID))
		}
		existing[d.ID] = fp
		written++
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("upsert batch", err)
	}
	s.logger.Debug().Int("written", written).Int("skipped", len(docs)-written).Msg("batch saved")
	return written, nil
}
