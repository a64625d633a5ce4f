package models

// InsightReport holds the computed analytics over one run's dataset.
type InsightReport struct {
	TotalListings    int
	NegotiableCount  int
	WithPhoneCount   int
	AveragePrice     int64
	MinPrice         int64
	MaxPrice         int64
	MostExpensive    *ListingRecord
	ListingsByRegion map[string]int
	AmenityCounts    map[Amenity]int
	ListingsByZone   map[string]int
}
