package models

import (
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Script identifies which writing system a listing's text uses.
// The values match the lang_detect column of the export schema.
type Script string

const (
	ScriptLatin      Script = "uz_lat"
	ScriptCyrillicRu Script = "ru"
	ScriptCyrillicUz Script = "uz_cyr"
	ScriptMixed      Script = "mixed"
	ScriptUnknown    Script = "unknown"
)

// Amenity is a fixed vocabulary flag extracted from listing text.
type Amenity string

const (
	AmenityPool        Amenity = "pool"
	AmenityBilliards   Amenity = "billiards"
	AmenityKaraoke     Amenity = "karaoke"
	AmenityTableTennis Amenity = "table_tennis"
	AmenitySauna       Amenity = "sauna"
	AmenityWifi        Amenity = "wifi"
	AmenityAC          Amenity = "ac"
	AmenityParking     Amenity = "parking"
	AmenityTerrace     Amenity = "terrace"
	AmenityGardenBBQ   Amenity = "garden_bbq"
)

// AllAmenities lists every amenity in export-column order (has_* columns).
var AllAmenities = []Amenity{
	AmenityPool, AmenityBilliards, AmenityKaraoke, AmenityTableTennis,
	AmenitySauna, AmenityWifi, AmenityAC, AmenityParking,
	AmenityTerrace, AmenityGardenBBQ,
}

// Rule is a fixed vocabulary house-rule flag extracted from listing text.
type Rule string

const (
	RuleFamiliesOnly Rule = "families_only"
	RuleNoParties    Rule = "no_parties"
	RuleNoUnmarried  Rule = "no_unmarried"
	RuleKidsOK       Rule = "kids_ok"
	RulePets         Rule = "pets"
)

// ListingRecord is one observed advertisement at one point in time.
// It is constructed once by the extractor and never mutated downstream.
type ListingRecord struct {
	ObservedAt      time.Time
	ListingID       string
	URL             string
	AdID            string
	Title           string
	Description     string
	PriceUZS        *int64 // nil when absent or negotiable
	Negotiable      bool
	Region          string
	District        string
	Rooms           *int
	CapacityBeds    *int
	AreaM2          *int
	PostedAtLocal   *time.Time
	SellerName      string
	SellerType      string
	SellerPhone     string // E.164-like +998XXXXXXXXX, empty when not revealed
	SellerPhoneHash string // sha256 hex of SellerPhone, set iff phone is set
	ViewsCount      *int
	Amenities       []Amenity
	Rules           []Rule
	PhotoCount      int
	Script          Script
}

// HasAmenity reports whether the record carries the given flag.
func (r *ListingRecord) HasAmenity(a Amenity) bool {
	for _, x := range r.Amenities {
		if x == a {
			return true
		}
	}
	return false
}

// Header is the fixed ordered column list shared by the local CSV export
// and the remote worksheet. Changing it breaks downstream consumers.
func Header() []string {
	return []string{
		"scrape_ts", "listing_id", "url", "title", "description",
		"price_uzs", "negotiable", "region", "district",
		"rooms", "capacity_beds", "area_m2", "posted_dt_local",
		"seller_name", "seller_type", "seller_phone", "seller_phone_hash",
		"views_count", "amenities", "rules", "photo_count",
		"has_pool", "has_billiards", "has_karaoke", "has_table_tennis",
		"has_sauna", "has_wifi", "has_ac", "has_parking",
		"has_terrace", "has_garden", "lang_detect", "ad_id",
	}
}

// PKColumn is the zero-based index of listing_id in Header.
const PKColumn = 1

// WatchedColumns are the fields whose change triggers an in-place remote
// update; everything else is treated as immutable after first observation.
var WatchedColumns = []string{"price_uzs", "negotiable", "seller_phone", "views_count"}

// Row serializes the record into the Header column order. The encoding is
// string-exact: parsing a row back with FromRow and re-serializing yields
// the same strings.
func (r *ListingRecord) Row() []string {
	amenities := make([]string, 0, len(r.Amenities))
	for _, a := range r.Amenities {
		amenities = append(amenities, string(a))
	}
	sort.Strings(amenities)

	rules := make([]string, 0, len(r.Rules))
	for _, x := range r.Rules {
		rules = append(rules, string(x))
	}
	sort.Strings(rules)

	row := []string{
		r.ObservedAt.Format(time.RFC3339),
		r.ListingID,
		r.URL,
		r.Title,
		r.Description,
		formatInt64(r.PriceUZS),
		strconv.FormatBool(r.Negotiable),
		r.Region,
		r.District,
		formatInt(r.Rooms),
		formatInt(r.CapacityBeds),
		formatInt(r.AreaM2),
		formatTime(r.PostedAtLocal),
		r.SellerName,
		r.SellerType,
		r.SellerPhone,
		r.SellerPhoneHash,
		formatInt(r.ViewsCount),
		joinPipe(amenities),
		joinPipe(rules),
		strconv.Itoa(r.PhotoCount),
	}
	for _, a := range AllAmenities {
		row = append(row, strconv.FormatBool(r.HasAmenity(a)))
	}
	return append(row, string(r.Script), r.AdID)
}

// FromRow rebuilds a record from an export row. It is the inverse of Row
// for every well-formed row; malformed cells produce an error rather than
// a silently coerced value.
func FromRow(row []string) (*ListingRecord, error) {
	if len(row) != len(Header()) {
		return nil, fmt.Errorf("row has %d columns, want %d", len(row), len(Header()))
	}

	observed, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return nil, fmt.Errorf("scrape_ts: %w", err)
	}
	negotiable, err := strconv.ParseBool(row[6])
	if err != nil {
		return nil, fmt.Errorf("negotiable: %w", err)
	}
	price, err := parseInt64(row[5])
	if err != nil {
		return nil, fmt.Errorf("price_uzs: %w", err)
	}
	posted, err := parseTime(row[12])
	if err != nil {
		return nil, fmt.Errorf("posted_dt_local: %w", err)
	}
	rooms, err := parseInt(row[9])
	if err != nil {
		return nil, fmt.Errorf("rooms: %w", err)
	}
	beds, err := parseInt(row[10])
	if err != nil {
		return nil, fmt.Errorf("capacity_beds: %w", err)
	}
	area, err := parseInt(row[11])
	if err != nil {
		return nil, fmt.Errorf("area_m2: %w", err)
	}
	views, err := parseInt(row[17])
	if err != nil {
		return nil, fmt.Errorf("views_count: %w", err)
	}
	photos, err := strconv.Atoi(row[20])
	if err != nil {
		return nil, fmt.Errorf("photo_count: %w", err)
	}

	rec := &ListingRecord{
		ObservedAt:      observed,
		ListingID:       row[1],
		URL:             row[2],
		Title:           row[3],
		Description:     row[4],
		PriceUZS:        price,
		Negotiable:      negotiable,
		Region:          row[7],
		District:        row[8],
		Rooms:           rooms,
		CapacityBeds:    beds,
		AreaM2:          area,
		PostedAtLocal:   posted,
		SellerName:      row[13],
		SellerType:      row[14],
		SellerPhone:     row[15],
		SellerPhoneHash: row[16],
		ViewsCount:      views,
		PhotoCount:      photos,
		Script:          Script(row[31]),
		AdID:            row[32],
	}
	for _, a := range splitPipe(row[18]) {
		rec.Amenities = append(rec.Amenities, Amenity(a))
	}
	for _, x := range splitPipe(row[19]) {
		rec.Rules = append(rec.Rules, Rule(x))
	}
	return rec, nil
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatInt64(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func parseInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseInt64(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func joinPipe(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "|"
		}
		out += p
	}
	return out
}

func splitPipe(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == '|' {
			if i > start {
				parts = append(parts, s[start:i])
			}
			start = i + 1
		}
	}
	return parts
}
