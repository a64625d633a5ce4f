package olx

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"olx-dacha-scraper/models"
	"olx-dacha-scraper/services"
	"olx-dacha-scraper/utils"
)

var (
	listingIDRe = regexp.MustCompile(`/obyavlenie/([a-zA-Z0-9\-]+)`)
	digitsRe    = regexp.MustCompile(`[^\d]`)
	hasDigitRe  = regexp.MustCompile(`\d`)
	adIDRe      = regexp.MustCompile(`(?i)\bID:?\s*([A-Za-z0-9]{5,})`)
	phoneRe     = regexp.MustCompile(`^\+998\d{9}$`)
)

// negotiableMarkers are the "price on request" phrases in both languages.
var negotiableMarkers = []string{"договорная", "kelishiladi"}

// postedMarkers precede the publication date on the detail page.
var postedMarkers = []string{"Опубликовано", "E'lon qilingan"}

// monthNames maps Russian genitive and Uzbek month names to English so the
// free-form date parser can handle them. Parsing is day-first.
var monthNames = []struct {
	re      *regexp.Regexp
	english string
}{
	{regexp.MustCompile(`(?i)января|yanvar`), "January"},
	{regexp.MustCompile(`(?i)февраля|fevral`), "February"},
	{regexp.MustCompile(`(?i)марта|mart`), "March"},
	{regexp.MustCompile(`(?i)апреля|aprel`), "April"},
	{regexp.MustCompile(`(?i)мая`), "May"},
	{regexp.MustCompile(`(?i)июня|iyun`), "June"},
	{regexp.MustCompile(`(?i)июля|iyul`), "July"},
	{regexp.MustCompile(`(?i)августа|avgust`), "August"},
	{regexp.MustCompile(`(?i)сентября|sentabr`), "September"},
	{regexp.MustCompile(`(?i)октября|oktabr`), "October"},
	{regexp.MustCompile(`(?i)ноября|noyabr`), "November"},
	{regexp.MustCompile(`(?i)декабря|dekabr`), "December"},
}

var clockRe = regexp.MustCompile(`(\d{1,2}):(\d{2})`)

// Extractor maps one rendered detail page into a structured record.
// Every field is extracted independently: a failed field becomes null and
// never aborts the record.
type Extractor struct {
	classifier *services.Classifier
	logger     *utils.Logger
	loc        *time.Location
}

// NewExtractor creates an Extractor converting timestamps into loc.
func NewExtractor(classifier *services.Classifier, logger *utils.Logger, loc *time.Location) *Extractor {
	return &Extractor{classifier: classifier, logger: logger, loc: loc}
}

// Parse turns a fetched detail page into a record. The second return value
// is false when the page is unparseable or the listing fails the relevance
// gate; that is an expected outcome, not an error.
func (e *Extractor) Parse(page *DetailPage, observedAt time.Time) (*models.ListingRecord, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		e.logger.Warn("[extract] Markup parse failed for %s: %v", page.URL, err)
		return nil, false
	}

	title := strings.TrimSpace(doc.Find("h1").First().Text())
	description := strings.TrimSpace(doc.Find(`div[data-testid="ad-description"]`).First().Text())
	fullText := title + " " + description

	if !e.classifier.Relevant(fullText) {
		return nil, false
	}

	rec := &models.ListingRecord{
		ObservedAt:  observedAt,
		ListingID:   ListingIDFromURL(page.URL),
		URL:         page.URL,
		Title:       title,
		Description: description,
		Script:      services.DetectScript(fullText),
	}

	rec.PriceUZS, rec.Negotiable = parsePrice(doc)
	rec.Region, rec.District = parseBreadcrumbs(doc)
	rec.Rooms, rec.CapacityBeds, rec.AreaM2 = parseAttributes(doc)
	rec.PostedAtLocal = e.parsePostedAt(doc)
	rec.SellerName, rec.SellerType = parseSeller(doc)
	rec.ViewsCount = parseViews(doc)
	rec.PhotoCount = doc.Find(`img[data-testid="image-gallery-photo"]`).Length()
	rec.AdID = parseAdID(doc)

	canon := services.Canonicalize(fullText)
	rec.Amenities, rec.Rules = e.classifier.ExtractFlags(fullText + " " + canon)

	if phone := NormalizePhone(page.RawPhone); phone != "" {
		rec.SellerPhone = phone
		rec.SellerPhoneHash = PhoneHash(phone)
	}

	return rec, true
}

// ListingIDFromURL extracts the stable listing id from a detail URL. The
// fallback is the last non-empty path segment.
func ListingIDFromURL(adURL string) string {
	if m := listingIDRe.FindStringSubmatch(adURL); m != nil {
		return m[1]
	}
	trimmed := strings.TrimRight(adURL, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// NormalizePhone canonicalizes a revealed phone into +998XXXXXXXXX form.
// Anything that does not validate returns the empty string.
func NormalizePhone(raw string) string {
	digits := digitsRe.ReplaceAllString(raw, "")
	var phone string
	switch {
	case strings.HasPrefix(digits, "998"):
		phone = "+" + digits
	case strings.HasPrefix(digits, "8") && len(digits) == 12:
		phone = "+998" + digits[1:]
	case (strings.HasPrefix(digits, "0") || strings.HasPrefix(digits, "8")) && len(digits) == 10:
		// local short forms: a dialing prefix before the 9 significant digits
		phone = "+998" + digits[1:]
	default:
		phone = digits
	}
	if phoneRe.MatchString(phone) {
		return phone
	}
	return ""
}

// PhoneHash returns the sha256 hex digest of a normalized phone, the
// privacy-preserving join key stored instead of raw numbers downstream.
func PhoneHash(phone string) string {
	sum := sha256.Sum256([]byte(phone))
	return hex.EncodeToString(sum[:])
}

func parsePrice(doc *goquery.Document) (*int64, bool) {
	text := strings.TrimSpace(doc.Find(`h3[data-testid="ad-price"]`).First().Text())
	if text == "" {
		return nil, false
	}
	lower := strings.ToLower(text)
	for _, marker := range negotiableMarkers {
		if strings.Contains(lower, marker) {
			return nil, true
		}
	}
	return parseInt64Digits(text), false
}

func parseBreadcrumbs(doc *goquery.Document) (region, district string) {
	links := doc.Find(`a[data-testid="location-link"]`)
	if links.Length() >= 1 {
		region = strings.TrimSpace(links.First().Text())
	}
	if links.Length() >= 2 {
		district = strings.TrimSpace(links.Last().Text())
	}
	return region, district
}

func parseAttributes(doc *goquery.Document) (rooms, beds, area *int) {
	doc.Find(`li[data-testid="ad-attribute-value"]`).Each(func(_ int, sel *goquery.Selection) {
		txt := strings.ToLower(strings.TrimSpace(sel.Text()))
		switch {
		case strings.Contains(txt, "комнат") || strings.Contains(txt, "xona"):
			if rooms == nil {
				rooms = parseIntDigits(txt)
			}
		case strings.Contains(txt, "спальных мест") || strings.Contains(txt, "o‘rin"):
			if beds == nil {
				beds = parseIntDigits(txt)
			}
		case strings.Contains(txt, "м²") || strings.Contains(txt, "kv") || strings.Contains(txt, "м2"):
			if area == nil {
				area = parseIntDigits(txt)
			}
		}
	})
	return rooms, beds, area
}

func (e *Extractor) parsePostedAt(doc *goquery.Document) *time.Time {
	var postedText string
	doc.Find("span").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		txt := strings.TrimSpace(sel.Text())
		for _, marker := range postedMarkers {
			if strings.Contains(txt, marker) {
				postedText = txt
				return false
			}
		}
		return true
	})
	if postedText == "" {
		return nil
	}
	return e.ParsePostedDate(postedText)
}

// ParsePostedDate parses a localized "published at" phrase into a timestamp
// in the configured civil timezone. Unparseable input yields nil.
func (e *Extractor) ParsePostedDate(text string) *time.Time {
	for _, marker := range postedMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "г."))

	// "Сегодня в 14:30" / "Bugun 14:30"
	lower := strings.ToLower(text)
	if strings.Contains(lower, "сегодня") || strings.Contains(lower, "bugun") {
		if m := clockRe.FindStringSubmatch(lower); m != nil {
			h, _ := strconv.Atoi(m[1])
			min, _ := strconv.Atoi(m[2])
			now := time.Now().In(e.loc)
			t := time.Date(now.Year(), now.Month(), now.Day(), h, min, 0, 0, e.loc)
			return &t
		}
		return nil
	}

	for _, m := range monthNames {
		if m.re.MatchString(text) {
			text = m.re.ReplaceAllString(text, m.english)
			break
		}
	}
	text = strings.Join(strings.Fields(text), " ")

	layouts := []string{"2 January 2006", "2 January 2006 15:04", "02.01.2006", "02.01.2006 15:04"}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, text, e.loc); err == nil {
			return &t
		}
	}

	t, err := dateparse.ParseIn(text, e.loc, dateparse.PreferMonthFirst(false))
	if err != nil {
		return nil
	}
	t = t.In(e.loc)
	return &t
}

func parseSeller(doc *goquery.Document) (name, sellerType string) {
	box := doc.Find(`div[data-testid="seller-profile"]`).First()
	if box.Length() == 0 {
		return "", ""
	}
	name = strings.TrimSpace(box.Find("h4").First().Text())
	sellerType = strings.TrimSpace(box.Find("span").First().Text())
	return name, sellerType
}

func parseViews(doc *goquery.Document) *int {
	txt := strings.TrimSpace(doc.Find(`span[data-testid="views-count"]`).First().Text())
	if txt == "" {
		return nil
	}
	return parseIntDigits(txt)
}

// parseAdID looks for the site's own ad number: dedicated footer nodes
// first, then a bounded scan of the page text for an "ID" token.
func parseAdID(doc *goquery.Document) string {
	var id string
	doc.Find(`span[data-testid="ad-footer-bar-section"], div[data-cy="ad-footer-bar-section"] span`).
		EachWithBreak(func(_ int, sel *goquery.Selection) bool {
			if m := adIDRe.FindStringSubmatch(sel.Text()); m != nil {
				id = m[1]
				return false
			}
			return true
		})
	if id != "" {
		return id
	}

	text := doc.Text()
	if len(text) > 4000 {
		text = text[:4000]
	}
	if m := adIDRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return ""
}

func parseIntDigits(s string) *int {
	if !hasDigitRe.MatchString(s) {
		return nil
	}
	n, err := strconv.Atoi(digitsRe.ReplaceAllString(s, ""))
	if err != nil {
		return nil
	}
	return &n
}

func parseInt64Digits(s string) *int64 {
	if !hasDigitRe.MatchString(s) {
		return nil
	}
	n, err := strconv.ParseInt(digitsRe.ReplaceAllString(s, ""), 10, 64)
	if err != nil {
		return nil
	}
	return &n
}
