package models

import (
	"reflect"
	"testing"
	"time"
)

func fullRecord() *ListingRecord {
	price := int64(1500000)
	rooms, beds, area, views := 4, 8, 200, 245
	posted := time.Date(2025, 8, 17, 0, 0, 0, 0, time.FixedZone("UZT", 5*3600))
	return &ListingRecord{
		ObservedAt:      time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC),
		ListingID:       "dacha-charvak-ID1a2b3",
		URL:             "https://www.olx.uz/d/obyavlenie/dacha-charvak-ID1a2b3.html",
		AdID:            "123456789",
		Title:           "Сдается дача в Чарваке",
		Description:     "Бассейн, мангал, wifi",
		PriceUZS:        &price,
		Region:          "Ташкентская область",
		District:        "Бостанлыкский район",
		Rooms:           &rooms,
		CapacityBeds:    &beds,
		AreaM2:          &area,
		PostedAtLocal:   &posted,
		SellerName:      "Баходир",
		SellerType:      "Частное лицо",
		SellerPhone:     "+998901234567",
		SellerPhoneHash: "aa11bb22",
		ViewsCount:      &views,
		Amenities:       []Amenity{AmenityWifi, AmenityPool, AmenityGardenBBQ},
		Rules:           []Rule{RuleFamiliesOnly},
		PhotoCount:      6,
		Script:          ScriptMixed,
	}
}

func TestRowMatchesHeader(t *testing.T) {
	if got, want := len(fullRecord().Row()), len(Header()); got != want {
		t.Errorf("Row has %d cells, header has %d columns", got, want)
	}
	if got, want := len((&ListingRecord{}).Row()), len(Header()); got != want {
		t.Errorf("zero-value Row has %d cells, header has %d columns", got, want)
	}
}

func TestRowEncodesSetsSorted(t *testing.T) {
	row := fullRecord().Row()
	if row[18] != "garden_bbq|pool|wifi" {
		t.Errorf("amenities cell = %q, want sorted pipe-joined set", row[18])
	}
	if row[21] != "true" { // has_pool
		t.Errorf("has_pool = %q, want true", row[21])
	}
	if row[22] != "false" { // has_billiards
		t.Errorf("has_billiards = %q, want false", row[22])
	}
}

func TestRowFromRowRoundTrip(t *testing.T) {
	for _, rec := range []*ListingRecord{
		fullRecord(),
		{ObservedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), ListingID: "min", Negotiable: true, Script: ScriptUnknown},
	} {
		row := rec.Row()
		back, err := FromRow(row)
		if err != nil {
			t.Fatalf("FromRow(%q): %v", rec.ListingID, err)
		}
		if !reflect.DeepEqual(back.Row(), row) {
			t.Errorf("round trip mismatch for %q:\n got %v\nwant %v", rec.ListingID, back.Row(), row)
		}
	}
}

func TestFromRowRejectsMalformed(t *testing.T) {
	if _, err := FromRow([]string{"too", "short"}); err == nil {
		t.Error("short row should fail")
	}

	row := fullRecord().Row()
	row[5] = "not-a-number"
	if _, err := FromRow(row); err == nil {
		t.Error("bad price cell should fail")
	}
}

func TestHasAmenity(t *testing.T) {
	rec := fullRecord()
	if !rec.HasAmenity(AmenityPool) {
		t.Error("expected pool")
	}
	if rec.HasAmenity(AmenityKaraoke) {
		t.Error("unexpected karaoke")
	}
}
