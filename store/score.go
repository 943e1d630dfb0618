package store

import (
	"context"
	"database/sql"
)

// Score returns the cosine similarity between the stored embeddings of two
// documents, computed in SQL with vec_cosine. ok is false when either
// document is missing, has no embedding, or the dimensions differ.
func (s *Store) Score(ctx context.Context, idA, idB string) (score float32, ok bool, err error) {
	query := "SELECT vec_cosine(a.embedding, b.embedding) FROM " + s.table + " a, " + s.table + " b WHERE a.id = ? AND b.id = ?"
	var v sql.NullFloat64
	err = s.db.QueryRowContext(ctx, query, idA, idB).Scan(&v)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, storageErr("score", err)
	}
	if !v.Valid {
		return 0, false, nil
	}
	return float32(v.Float64), true, nil
}
