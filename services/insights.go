package services

import (
	"fmt"
	"sort"
	"strings"

	"olx-dacha-scraper/models"
	"olx-dacha-scraper/utils"
)

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

func (s *InsightService) Generate(records []*models.ListingRecord) *models.InsightReport {
	report := &models.InsightReport{
		ListingsByRegion: make(map[string]int),
		AmenityCounts:    make(map[models.Amenity]int),
		ListingsByZone:   make(map[string]int),
	}

	if len(records) == 0 {
		return report
	}

	report.TotalListings = len(records)

	var priced []*models.ListingRecord
	for _, r := range records {
		if r.Negotiable {
			report.NegotiableCount++
		}
		if r.SellerPhone != "" {
			report.WithPhoneCount++
		}
		if r.PriceUZS != nil && *r.PriceUZS > 0 {
			priced = append(priced, r)
		}
		if r.Region != "" {
			report.ListingsByRegion[r.Region]++
		}
		for _, a := range r.Amenities {
			report.AmenityCounts[a]++
		}
		text := r.Title + " " + r.Description
		for _, zone := range RegionKeywords {
			if strings.Contains(strings.ToLower(text), strings.ToLower(zone)) {
				report.ListingsByZone[zone]++
				break
			}
		}
	}

	if len(priced) > 0 {
		report.MinPrice = *priced[0].PriceUZS
		report.MaxPrice = *priced[0].PriceUZS
		report.MostExpensive = priced[0]
		var total int64
		for _, r := range priced {
			p := *r.PriceUZS
			total += p
			if p < report.MinPrice {
				report.MinPrice = p
			}
			if p > report.MaxPrice {
				report.MaxPrice = p
				report.MostExpensive = r
			}
		}
		report.AveragePrice = total / int64(len(priced))
	}

	return report
}

func (s *InsightService) Print(r *models.InsightReport) {
	sep := strings.Repeat("═", 54)
	thin := strings.Repeat("─", 54)

	fmt.Printf("\n\033[1;35m%s\033[0m\n", sep)
	fmt.Printf("\033[1;35m  📊 DACHA SCRAPE INSIGHTS\033[0m\n")
	fmt.Printf("\033[1;35m%s\033[0m\n\n", sep)

	fmt.Printf("\033[1;33m  Overview\033[0m\n")
	fmt.Printf("  %s\n", thin)
	fmt.Printf("  Listings this run   : \033[1m%d\033[0m\n", r.TotalListings)
	fmt.Printf("  Negotiable price    : \033[1m%d\033[0m\n", r.NegotiableCount)
	fmt.Printf("  With seller phone   : \033[1m%d\033[0m\n", r.WithPhoneCount)
	fmt.Println()

	fmt.Printf("\033[1;33m  Price Statistics (UZS per day)\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if r.AveragePrice > 0 {
		fmt.Printf("  Average price : \033[1;32m%d\033[0m\n", r.AveragePrice)
		fmt.Printf("  Minimum price : \033[1;32m%d\033[0m\n", r.MinPrice)
		fmt.Printf("  Maximum price : \033[1;32m%d\033[0m\n", r.MaxPrice)
	} else {
		fmt.Printf("  No price data available\n")
	}
	fmt.Println()

	if r.MostExpensive != nil {
		fmt.Printf("\033[1;33m  Most Expensive Listing\033[0m\n")
		fmt.Printf("  %s\n", thin)
		fmt.Printf("  %s\n", truncate(r.MostExpensive.Title, 50))
		fmt.Printf("  District : %s\n", r.MostExpensive.District)
		fmt.Printf("  Price    : \033[1;31m%d UZS/day\033[0m\n", *r.MostExpensive.PriceUZS)
		fmt.Println()
	}

	fmt.Printf("\033[1;33m  Amenities\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.AmenityCounts) == 0 {
		fmt.Printf("  No amenity data\n")
	} else {
		for _, a := range models.AllAmenities {
			if cnt := r.AmenityCounts[a]; cnt > 0 {
				bar := strings.Repeat("█", cnt)
				fmt.Printf("  %-14s %s (%d)\n", a, bar, cnt)
			}
		}
	}
	fmt.Println()

	fmt.Printf("\033[1;33m  Recreation Zones\033[0m\n")
	fmt.Printf("  %s\n", thin)
	if len(r.ListingsByZone) == 0 {
		fmt.Printf("  No zone mentions found\n")
	} else {
		type zoneCount struct {
			zone  string
			count int
		}
		var zones []zoneCount
		for z, cnt := range r.ListingsByZone {
			zones = append(zones, zoneCount{z, cnt})
		}
		sort.Slice(zones, func(i, j int) bool {
			return zones[i].count > zones[j].count
		})
		for _, zc := range zones {
			fmt.Printf("  %-30s %d\n", truncate(zc.zone, 28), zc.count)
		}
	}

	fmt.Printf("\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
