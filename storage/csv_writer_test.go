package storage

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"olx-dacha-scraper/models"
)

func sampleRecords() []*models.ListingRecord {
	price := int64(1500000)
	views := 245
	posted := time.Date(2025, 8, 17, 0, 0, 0, 0, time.FixedZone("UZT", 5*3600))
	return []*models.ListingRecord{
		{
			ObservedAt:    time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC),
			ListingID:     "dacha-IDaaa",
			URL:           "https://www.olx.uz/d/obyavlenie/dacha-IDaaa.html",
			Title:         "Дача, бассейн, \"люкс\"",
			Description:   "Описание с запятой, и\nпереносом строки",
			PriceUZS:      &price,
			Region:        "Ташкентская область",
			PostedAtLocal: &posted,
			ViewsCount:    &views,
			Amenities:     []models.Amenity{models.AmenityPool, models.AmenitySauna},
			Rules:         []models.Rule{models.RuleKidsOK},
			PhotoCount:    3,
			Script:        models.ScriptCyrillicRu,
		},
		{
			ObservedAt: time.Date(2026, 8, 25, 9, 1, 0, 0, time.UTC),
			ListingID:  "hovli-IDbbb",
			URL:        "https://www.olx.uz/d/obyavlenie/hovli-IDbbb.html",
			Title:      "Hovli ijaraga",
			Negotiable: true,
			Script:     models.ScriptLatin,
		},
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "export.csv")

	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	records := sampleRecords()
	if err := w.WriteRecords(records); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	back, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(back) != len(records) {
		t.Fatalf("read %d records, wrote %d", len(back), len(records))
	}
	for i := range records {
		if !reflect.DeepEqual(back[i].Row(), records[i].Row()) {
			t.Errorf("record %d did not round trip:\n got %v\nwant %v", i, back[i].Row(), records[i].Row())
		}
	}
}

func TestCSVHeaderOnlyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	w, err := NewCSVWriter(path)
	if err != nil {
		t.Fatalf("NewCSVWriter: %v", err)
	}
	if err := w.WriteRecords(nil); err != nil {
		t.Fatalf("WriteRecords: %v", err)
	}
	w.Close()

	back, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if len(back) != 0 {
		t.Errorf("expected no records, got %d", len(back))
	}
}
