package services

import (
	"testing"

	"olx-dacha-scraper/models"
	"olx-dacha-scraper/utils"
)

func price(v int64) *int64 { return &v }

func sampleRecords() []*models.ListingRecord {
	return []*models.ListingRecord{
		{ListingID: "a1", Title: "Дача в Чарваке", Region: "Ташкентская область", District: "Бостанлыкский район",
			PriceUZS: price(200000), SellerPhone: "+998901234567",
			Amenities: []models.Amenity{models.AmenityPool, models.AmenitySauna}},
		{ListingID: "b2", Title: "Коттедж недорого", Region: "Ташкентская область",
			PriceUZS:  price(50000),
			Amenities: []models.Amenity{models.AmenityPool}},
		{ListingID: "c3", Title: "Kottej Chimgan tog‘ida", Region: "Ташкент",
			PriceUZS: price(120000)},
		{ListingID: "d4", Title: "Дача, цена договорная", Region: "Ташкент",
			Negotiable: true},
		{ListingID: "e5", Title: "Загородный дом"},
	}
}

func TestInsightCounts(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleRecords())
	if r.TotalListings != 5 {
		t.Errorf("TotalListings: got %d, want 5", r.TotalListings)
	}
	if r.NegotiableCount != 1 {
		t.Errorf("NegotiableCount: got %d, want 1", r.NegotiableCount)
	}
	if r.WithPhoneCount != 1 {
		t.Errorf("WithPhoneCount: got %d, want 1", r.WithPhoneCount)
	}
}

func TestInsightPrices(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleRecords())
	if r.AveragePrice != 123333 {
		t.Errorf("AveragePrice: got %d, want 123333", r.AveragePrice)
	}
	if r.MinPrice != 50000 {
		t.Errorf("MinPrice: got %d, want 50000", r.MinPrice)
	}
	if r.MaxPrice != 200000 {
		t.Errorf("MaxPrice: got %d, want 200000", r.MaxPrice)
	}
}

func TestInsightMostExpensive(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleRecords())
	if r.MostExpensive == nil {
		t.Fatal("MostExpensive should not be nil")
	}
	if r.MostExpensive.ListingID != "a1" {
		t.Errorf("MostExpensive: got %q, want %q", r.MostExpensive.ListingID, "a1")
	}
}

func TestInsightGrouping(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(sampleRecords())
	if r.ListingsByRegion["Ташкентская область"] != 2 {
		t.Errorf("region count: got %d, want 2", r.ListingsByRegion["Ташкентская область"])
	}
	if r.AmenityCounts[models.AmenityPool] != 2 {
		t.Errorf("pool count: got %d, want 2", r.AmenityCounts[models.AmenityPool])
	}
	if r.ListingsByZone["Чарвак"] != 1 {
		t.Errorf("Чарвак zone count: got %d, want 1", r.ListingsByZone["Чарвак"])
	}
	if r.ListingsByZone["Chimgan"] != 1 {
		t.Errorf("Chimgan zone count: got %d, want 1", r.ListingsByZone["Chimgan"])
	}
}

func TestInsightEmptyInput(t *testing.T) {
	svc := NewInsightService(utils.NewLogger())
	r := svc.Generate(nil)
	if r.TotalListings != 0 {
		t.Errorf("expected 0 total listings for empty input")
	}
	if r.MostExpensive != nil {
		t.Errorf("expected nil MostExpensive for empty input")
	}
}
