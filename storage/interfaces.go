package storage

import (
	"errors"

	"olx-dacha-scraper/models"
)

// ErrRateLimited marks a transient quota/rate-limit failure on the remote
// dataset. Callers retry these with backoff; everything else is terminal.
var ErrRateLimited = errors.New("remote dataset rate limited")

// RangeUpdate replaces the cells of one A1-style range with the given rows.
type RangeUpdate struct {
	Range string
	Rows  [][]string
}

// TableStore is the narrow capability the reconciler needs from the remote
// dataset: read everything, append rows, patch ranges in place. Rows are
// never deleted through this interface.
type TableStore interface {
	// ReadAll returns the header row and all data rows below it.
	ReadAll() (header []string, rows [][]string, err error)
	AppendRows(rows [][]string) error
	// WriteRanges applies a batch of in-place updates in one remote call.
	WriteRanges(updates []RangeUpdate) error
}

// RecordWriter is the interface any local storage backend must satisfy.
type RecordWriter interface {
	WriteRecords(records []*models.ListingRecord) error
	Close() error
}
