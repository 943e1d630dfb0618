package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/mediavec/vector"
)

func TestRegisterVectorFunctionsAndUse(t *testing.T) {
	// Register globally before first connection so functions are available.
	require.NoError(t, RegisterVectorFunctions())
	require.NoError(t, RegisterVectorFunctions())

	db, err := Open(MemoryDSN)
	require.NoError(t, err)
	defer db.Close()

	a := vector.EncodeEmbedding([]float32{1, 0})
	b := vector.EncodeEmbedding([]float32{0, 1})
	c := vector.EncodeEmbedding([]float32{1, 0})

	var sim float64
	require.NoError(t, db.QueryRow(`SELECT vec_cosine(?, ?)`, a, b).Scan(&sim))
	assert.Equal(t, 0.0, sim)

	require.NoError(t, db.QueryRow(`SELECT vec_cosine(?, ?)`, a, c).Scan(&sim))
	assert.InDelta(t, 1.0, sim, 1e-6)

	var missing *float64
	require.NoError(t, db.QueryRow(`SELECT vec_cosine(NULL, ?)`, a).Scan(&missing))
	assert.Nil(t, missing)

	require.NoError(t, db.QueryRow(`SELECT vec_cosine(?, ?)`, a, vector.EncodeEmbedding([]float32{1, 0, 0})).Scan(&missing))
	assert.Nil(t, missing)
}
