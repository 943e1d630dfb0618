package vector

import "errors"

var (
	// ErrInvalidQuery is returned when a similarity query has no usable
	// embedding or a non-positive result count.
	ErrInvalidQuery = errors.New("vector: invalid query")

	// ErrInvalidDocument is returned when a document cannot be stored, for
	// example because its id is empty.
	ErrInvalidDocument = errors.New("vector: invalid document")

	// ErrStorage matches every *StorageError via errors.Is.
	ErrStorage = errors.New("vector: storage failure")
)

// StorageError reports a failed persistence operation. Batch operations have
// already rolled back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return "vector: storage " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrStorage) hold for any StorageError.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
