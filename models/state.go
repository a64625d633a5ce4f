package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// CrawlState is the on-disk checkpoint carried between runs: every listing
// id ever observed, plus bookkeeping about the previous run. It is loaded
// once at startup and written back exactly once after a successful run.
type CrawlState struct {
	ListingIDs      []string `json:"listing_ids"`
	LastRunTS       string   `json:"last_run_ts"`
	LastScrapeCount int      `json:"last_scrape_count"`

	seen map[string]struct{}
}

// LoadState reads the checkpoint file. A missing or unreadable file yields
// an empty state (first-run behavior), never an error.
func LoadState(path string) *CrawlState {
	s := &CrawlState{seen: make(map[string]struct{})}

	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	if err := json.Unmarshal(data, s); err != nil {
		return &CrawlState{seen: make(map[string]struct{})}
	}

	s.seen = make(map[string]struct{}, len(s.ListingIDs))
	for _, id := range s.ListingIDs {
		s.seen[id] = struct{}{}
	}
	return s
}

// Seen reports whether the listing id was recorded in a previous run or
// earlier in this one.
func (s *CrawlState) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// Add records a newly observed listing id.
func (s *CrawlState) Add(id string) {
	if s.Seen(id) {
		return
	}
	s.seen[id] = struct{}{}
	s.ListingIDs = append(s.ListingIDs, id)
}

// Save writes the checkpoint atomically: the previous file stays intact
// unless the new one is fully written.
func (s *CrawlState) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("state: marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("state: create dir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("state: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("state: rename: %w", err)
	}
	return nil
}
