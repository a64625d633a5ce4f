package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadStateMissingFile(t *testing.T) {
	s := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	if len(s.ListingIDs) != 0 {
		t.Errorf("missing file should load as empty state, got %v", s.ListingIDs)
	}
	if s.Seen("anything") {
		t.Error("empty state should not report ids as seen")
	}
}

func TestLoadStateCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	s := LoadState(path)
	if len(s.ListingIDs) != 0 {
		t.Errorf("corrupt file should load as empty state, got %v", s.ListingIDs)
	}
}

func TestStateAddAndSeen(t *testing.T) {
	s := LoadState(filepath.Join(t.TempDir(), "absent.json"))
	s.Add("a1")
	s.Add("a1")
	s.Add("b2")
	if len(s.ListingIDs) != 2 {
		t.Errorf("ListingIDs = %v, want a1 and b2 once each", s.ListingIDs)
	}
	if !s.Seen("a1") || !s.Seen("b2") || s.Seen("c3") {
		t.Error("Seen answers are wrong")
	}
}

func TestStateSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "state.json")

	s := LoadState(path)
	s.Add("a1")
	s.Add("b2")
	s.LastRunTS = "2026-08-25T09:00:00+05:00"
	s.LastScrapeCount = 2
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded := LoadState(path)
	if !loaded.Seen("a1") || !loaded.Seen("b2") {
		t.Error("reloaded state lost ids")
	}
	if loaded.LastRunTS != s.LastRunTS || loaded.LastScrapeCount != 2 {
		t.Errorf("bookkeeping lost: %+v", loaded)
	}

	// no temp file should survive a successful save
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind")
	}
}
