package services

import (
	"errors"
	"fmt"
	"time"

	"olx-dacha-scraper/models"
	"olx-dacha-scraper/storage"
	"olx-dacha-scraper/utils"
)

// Reconciler merges a batch of freshly extracted records into the remote
// dataset with the minimum number of writes: new listing ids are appended,
// rows whose watched fields changed are replaced in place, everything else
// is left untouched to preserve write quota.
type Reconciler struct {
	store       storage.TableStore
	logger      *utils.Logger
	retry       *utils.RetryConfig
	maxBatchOps int
	chunkDelay  time.Duration
}

// SyncStats summarizes one reconcile pass.
type SyncStats struct {
	Inserted int
	Updated  int
	Skipped  int
}

// NewReconciler builds a Reconciler. maxBatchOps bounds both the rows per
// append chunk and the range writes per batch call; chunkDelay is an
// optional pause between chunks to stay under steady-state quota.
func NewReconciler(store storage.TableStore, logger *utils.Logger, maxRetries, maxBatchOps int, chunkDelay time.Duration) *Reconciler {
	return &Reconciler{
		store:       store,
		logger:      logger,
		maxBatchOps: maxBatchOps,
		chunkDelay:  chunkDelay,
		retry: &utils.RetryConfig{
			MaxAttempts: maxRetries,
			BaseDelay:   2 * time.Second,
			MaxDelay:    60 * time.Second,
			Jitter:      500 * time.Millisecond,
			Retryable: func(err error) bool {
				return errors.Is(err, storage.ErrRateLimited)
			},
			Logger: logger,
		},
	}
}

// DedupeRecords collapses duplicate listing ids within one batch. URL
// variants (tracking query strings, reveal redirects) can resolve to the
// same listing; the later record wins and keeps the position of the first
// occurrence.
func DedupeRecords(records []*models.ListingRecord) []*models.ListingRecord {
	index := make(map[string]int, len(records))
	out := make([]*models.ListingRecord, 0, len(records))
	for _, rec := range records {
		if i, dup := index[rec.ListingID]; dup {
			out[i] = rec
			continue
		}
		index[rec.ListingID] = len(out)
		out = append(out, rec)
	}
	return out
}

// Sync diffs the batch against the remote dataset and applies inserts and
// updates. The batch is deduplicated by listing id first so one id never
// produces two remote rows. A failed remote read degrades to an empty
// baseline (everything becomes an insert) so a run still lands its data;
// write failures after retry exhaustion are fatal.
func (r *Reconciler) Sync(records []*models.ListingRecord) (*SyncStats, error) {
	stats := &SyncStats{}
	if len(records) == 0 {
		return stats, nil
	}
	records = DedupeRecords(records)
	header := models.Header()

	remoteHeader, remoteRows, err := r.store.ReadAll()
	if err != nil {
		r.logger.Warn("[sync] remote read failed, treating dataset as empty: %v", err)
		remoteHeader, remoteRows = nil, nil
	}
	if len(remoteHeader) == 0 {
		if err := r.withRetry("write header", func() error {
			return r.store.AppendRows([][]string{header})
		}); err != nil {
			return stats, err
		}
	}

	// Index remote rows by primary key; first occurrence wins.
	index := make(map[string]int, len(remoteRows))
	for i, row := range remoteRows {
		if len(row) <= models.PKColumn {
			continue
		}
		pk := row[models.PKColumn]
		if _, dup := index[pk]; !dup {
			index[pk] = i
		}
	}

	watched := make([]int, 0, len(models.WatchedColumns))
	for _, name := range models.WatchedColumns {
		watched = append(watched, columnIndex(header, name))
	}

	var inserts [][]string
	var updates []storage.RangeUpdate
	lastCol := colLabel(len(header))

	for _, rec := range records {
		row := rec.Row()
		idx, exists := index[rec.ListingID]
		if !exists {
			inserts = append(inserts, row)
			continue
		}

		if watchedChanged(remoteRows[idx], row, watched) {
			// +2: one for the header row, one for 1-based addressing
			rowNum := idx + 2
			updates = append(updates, storage.RangeUpdate{
				Range: fmt.Sprintf("A%d:%s%d", rowNum, lastCol, rowNum),
				Rows:  [][]string{row},
			})
		} else {
			stats.Skipped++
		}
	}

	for start := 0; start < len(inserts); start += r.maxBatchOps {
		chunk := inserts[start:min(start+r.maxBatchOps, len(inserts))]
		if err := r.withRetry("append rows", func() error {
			return r.store.AppendRows(chunk)
		}); err != nil {
			return stats, err
		}
		stats.Inserted += len(chunk)
		r.pause(start+r.maxBatchOps < len(inserts))
	}

	for start := 0; start < len(updates); start += r.maxBatchOps {
		chunk := updates[start:min(start+r.maxBatchOps, len(updates))]
		if err := r.withRetry("update rows", func() error {
			return r.store.WriteRanges(chunk)
		}); err != nil {
			return stats, err
		}
		stats.Updated += len(chunk)
		r.pause(start+r.maxBatchOps < len(updates))
	}

	r.logger.Info("[sync] inserted=%d updated=%d unchanged=%d",
		stats.Inserted, stats.Updated, stats.Skipped)
	return stats, nil
}

func (r *Reconciler) withRetry(name string, fn func() error) error {
	return r.retry.Do(name, fn)
}

func (r *Reconciler) pause(more bool) {
	if more && r.chunkDelay > 0 {
		time.Sleep(r.chunkDelay)
	}
}

// watchedChanged compares only the watched columns, as strings. A remote
// row shorter than the schema counts as changed.
func watchedChanged(remote, incoming []string, watched []int) bool {
	for _, col := range watched {
		if col < 0 {
			continue
		}
		var old string
		if col < len(remote) {
			old = remote[col]
		} else {
			return true
		}
		if old != incoming[col] {
			return true
		}
	}
	return false
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// colLabel converts a 1-based column number to its A1 letter label
// (1 -> A, 26 -> Z, 27 -> AA).
func colLabel(n int) string {
	label := ""
	for n > 0 {
		n--
		label = string(rune('A'+n%26)) + label
		n /= 26
	}
	return label
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
