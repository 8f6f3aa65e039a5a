package models

import (
	"time"

	"github.com/google/uuid"
)

// Import is the persisted summary of one normalized input file.
//
// Fields:
//   - ID:           import identifier.
//   - Checksum:     hex SHA-256 of the raw file; used for idempotent re-imports.
//   - Filename:     original file name.
//   - SourceName:   format source that matched the header (e.g. "Coinbase").
//   - Grouping:     output grouping label of the matched format.
//   - RecordCount:  number of canonical records produced.
//   - FailureCount: number of rows that failed classification.
//   - WarningCount: number of non-fatal advisories.
//   - ImportedAt:   time the import was stored.
type Import struct {
	ID           uuid.UUID
	Checksum     string
	Filename     string
	SourceName   string
	Grouping     string
	RecordCount  int
	FailureCount int
	WarningCount int
	ImportedAt   time.Time
}

// StoredFailure is a row failure as kept in the row_failures table.
type StoredFailure struct {
	Line   int
	Kind   string
	Column string
	Value  string
	Detail string
}

// StoredAdvisory is a non-fatal row advisory as kept in the row_advisories
// table.
type StoredAdvisory struct {
	Line   int
	Kind   string
	Column string
	Value  string
	Detail string
}
