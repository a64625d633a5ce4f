package olx

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"olx-dacha-scraper/models"
	"olx-dacha-scraper/services"
)

// ParseIndexPages derives minimal records straight from the already
// fetched index pages. This is the degraded path used when a full pass
// yields nothing despite a non-empty candidate set, which usually means a
// detail-page layout change broke the primary selectors. It trades
// completeness (no description, seller or phone) for resilience.
func (e *Extractor) ParseIndexPages(pages []string, origin string, observedAt time.Time) []*models.ListingRecord {
	seen := make(map[string]struct{})
	var records []*models.ListingRecord

	for _, html := range pages {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			e.logger.Warn("[fallback] Index page parse failed: %v", err)
			continue
		}

		doc.Find(`div[data-cy="l-card"]`).Each(func(_ int, card *goquery.Selection) {
			href, _ := card.Find("a").First().Attr("href")
			if href == "" {
				return
			}
			if strings.HasPrefix(href, "/") {
				href = origin + href
			}

			id, _ := card.Attr("id")
			if id == "" {
				id = ListingIDFromURL(href)
			}
			if _, dup := seen[id]; dup {
				return
			}

			title := strings.TrimSpace(card.Find("h6").First().Text())
			if title == "" {
				title = strings.TrimSpace(card.Find("h4").First().Text())
			}
			if !e.classifier.Relevant(title) {
				return
			}
			seen[id] = struct{}{}

			rec := &models.ListingRecord{
				ObservedAt: observedAt,
				ListingID:  id,
				URL:        href,
				Title:      title,
				Script:     services.DetectScript(title),
			}

			priceText := strings.TrimSpace(card.Find(`p[data-testid="ad-price"]`).First().Text())
			if priceText != "" {
				lower := strings.ToLower(priceText)
				for _, marker := range negotiableMarkers {
					if strings.Contains(lower, marker) {
						rec.Negotiable = true
						break
					}
				}
				if !rec.Negotiable {
					rec.PriceUZS = parseInt64Digits(priceText)
				}
			}

			// "Ташкент, Сергелийский район - Сегодня ...": location before
			// the dash, region before the comma.
			locText := strings.TrimSpace(card.Find(`p[data-testid="location-date"]`).First().Text())
			if locText != "" {
				if i := strings.Index(locText, " - "); i >= 0 {
					locText = locText[:i]
				}
				parts := strings.SplitN(locText, ",", 2)
				rec.Region = strings.TrimSpace(parts[0])
				if len(parts) == 2 {
					rec.District = strings.TrimSpace(parts[1])
				}
			}

			canon := services.Canonicalize(title)
			rec.Amenities, rec.Rules = e.classifier.ExtractFlags(title + " " + canon)

			records = append(records, rec)
		})
	}

	return records
}
