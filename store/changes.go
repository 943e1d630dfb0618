package store

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/mediavec/vecsync"
)

// Changes returns up to limit change log entries with a sequence number
// greater than afterSeq, oldest first. A limit <= 0 returns all of them.
func (s *Store) Changes(ctx context.Context, afterSeq int64, limit int) ([]vecsync.LogEntry, error) {
	if !s.changeLog {
		return nil, fmt.Errorf("store: change log is disabled for %s", s.table)
	}
	query := "SELECT seq, op, document_id, fingerprint, created_at FROM " + s.logTable + " WHERE seq > ? ORDER BY seq"
	args := []any{afterSeq}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("changes", err)
	}
	defer rows.Close()

	var out []vecsync.LogEntry
	for rows.Next() {
		var e vecsync.LogEntry
		var op string
		var created int64
		if err := rows.Scan(&e.Seq, &op, &e.DocumentID, &e.Fingerprint, &created); err != nil {
			return nil, storageErr("changes", err)
		}
		e.Op = vecsync.Op(op)
		e.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("changes", err)
	}
	return out, nil
}
