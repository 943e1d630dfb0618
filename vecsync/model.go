package vecsync

import "time"

// Op names the kind of change recorded in the log.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// LogEntry mirrors a single row in the change log table.
type LogEntry struct {
	Seq         int64
	Op          Op
	DocumentID  string
	Fingerprint string
	CreatedAt   time.Time
}
