package engine

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"sync"

	"github.com/viant/mediavec/vector"
	sqlite "modernc.org/sqlite"
)

var registerOnce sync.Once
var registerErr error

// RegisterVectorFunctions registers vec_cosine with the driver so it is
// available on connections opened after this call. Existing open connections
// will not see the function. Repeated calls are no-ops.
func RegisterVectorFunctions() error {
	registerOnce.Do(func() {
		err := sqlite.RegisterDeterministicScalarFunction("vec_cosine", 2, vecCosineImpl)
		if err != nil && !strings.Contains(err.Error(), "already") {
			registerErr = err
		}
	})
	return registerErr
}

func asEmbedding(arg driver.Value) ([]float32, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("vec_cosine: unsupported argument type %T for embedding; want BLOB", arg)
	}
}

func vecCosineImpl(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("vec_cosine: expected 2 arguments, got %d", len(args))
	}
	a, err := asEmbedding(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asEmbedding(args[1])
	if err != nil {
		return nil, err
	}
	if a == nil || b == nil || len(a) != len(b) {
		return nil, nil
	}
	return float64(vector.CosineSimilarity(a, b)), nil
}
