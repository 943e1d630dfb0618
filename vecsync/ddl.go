package vecsync

import (
	"fmt"
	"strings"
)

// DefaultLogSuffix is appended to the documents table name to derive the
// change log table name.
const DefaultLogSuffix = "_log"

// LogTableName derives the change log table for a documents table.
func LogTableName(docTable string) string {
	return docTable + DefaultLogSuffix
}

// LogTableDDL returns the DDL for the change log table.
func LogTableDDL(logTable string) string {
	return `CREATE TABLE IF NOT EXISTS ` + logTable + ` (
    seq          INTEGER PRIMARY KEY AUTOINCREMENT,
    op           TEXT NOT NULL,
    document_id  TEXT NOT NULL,
    fingerprint  TEXT NOT NULL,
    created_at   INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);`
}

// SQLiteTriggers returns the trigger DDL statements that capture inserts and
// updates against docTable into logTable. Deletion is not tracked because
// documents are never deleted.
func SQLiteTriggers(docTable, logTable string) []string {
	if logTable == "" {
		logTable = LogTableName(docTable)
	}
	base := sanitizeIdentifier(docTable)
	trigger := func(suffix, event string, op Op) string {
		return fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %s_%s AFTER %s ON %s
BEGIN
    INSERT INTO %s(op, document_id, fingerprint)
    VALUES ('%s', NEW.id, NEW.fingerprint);
END;`, base, suffix, event, docTable, logTable, op)
	}
	return []string{
		trigger("ai", "INSERT", OpInsert),
		trigger("au", "UPDATE", OpUpdate),
	}
}

func sanitizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	replacer := strings.NewReplacer(".", "_", "-", "_")
	return replacer.Replace(name)
}
