package services

import (
	"regexp"
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"

	"olx-dacha-scraper/models"
)

// dachaStems are deliberately shorter than full words so that substring
// checks match inflected forms (дача, дачи, дачный all contain "дач").
var dachaStems = []string{
	"дач", "коттед", "загородн", "дом отдых", "вилл",
	"hovli", "dacha", "ijaraga", "villa", "cottej", "dam olish", "dam",
	"ферм", "farm",
}

// RegionKeywords are the recreation zones around Tashkent the listings
// cluster in, in both scripts. Used for report grouping.
var RegionKeywords = []string{
	"Чарвак", "Charvak", "Chorvoq", "Чимган", "Chimgan", "Chimyon",
	"Бельдерсай", "Beldersay", "Bo‘stonliq", "Parkent", "Qibray",
	"Зангиота", "Zangiota",
}

// boundary builds a case-insensitive pattern anchored on Unicode word
// boundaries. Go's \b is ASCII-only, which silently breaks Cyrillic
// alternations, so boundaries are spelled out.
func boundary(alts string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:` + alts + `)(?:$|[^\p{L}\p{N}_])`)
}

// Cyrillic noun stems carry a \p{L}* tail so case endings still match
// (бассейн, бассейном, бассейна).
var amenityPatterns = map[models.Amenity]*regexp.Regexp{
	models.AmenityPool:        boundary(`бассейн\p{L}*|hovuz\p{L}*|hovz|pool`),
	models.AmenityBilliards:   boundary(`бильярд\p{L}*|bilyard`),
	models.AmenityKaraoke:     boundary(`караоке|karaoke`),
	models.AmenityTableTennis: boundary(`настольн\p{L}*\s*теннис\p{L}*|stol\s*tennisi|ping\s*pong`),
	models.AmenitySauna:       boundary(`саун\p{L}*|sauna|бан(?:я|и|е|ей|ю)|banya`),
	models.AmenityWifi:        boundary(`wi[- ]?fi|вай[- ]?фай`),
	models.AmenityAC:          boundary(`кондиционер\p{L}*|konditsioner`),
	models.AmenityParking:     boundary(`парковк\p{L}*|автостоянк\p{L}*|parking`),
	models.AmenityTerrace:     boundary(`террас\p{L}*`),
	models.AmenityGardenBBQ:   boundary(`сад\p{L}*|мангал\p{L}*|barbekyu|barbecue|bbq`),
}

var rulePatterns = map[models.Rule]*regexp.Regexp{
	models.RuleFamiliesOnly: regexp.MustCompile(`(?i)только\s*семей|семьям|oilalarga`),
	models.RuleNoParties:    regexp.MustCompile(`(?i)без\s*(?:шум|вечерин)|party.*(?:запрет|нельзя)`),
	models.RuleNoUnmarried:  regexp.MustCompile(`(?i)свидетельство|nikoh|паспорт.*сем`),
	models.RuleKidsOK:       regexp.MustCompile(`(?i)с\s*детьми|bolalar`),
	models.RulePets:         regexp.MustCompile(`(?i)с\s*животн|pets|hayvon`),
}

// Classifier decides whether free text refers to a dacha-style rental and
// extracts the fixed amenity/rule vocabulary from it.
type Classifier struct {
	enabled   bool
	threshold int
}

// NewClassifier creates a Classifier. When enabled is false the relevance
// gate is bypassed entirely (used when an upstream category filter is
// already trusted). threshold is the 0–100 partial-ratio score counted as
// a fuzzy keyword hit.
func NewClassifier(enabled bool, threshold int) *Classifier {
	return &Classifier{enabled: enabled, threshold: threshold}
}

// KeywordMatch reports whether any dacha stem occurs in the text, first as
// a plain substring and then by fuzzy partial-ratio to absorb spelling
// noise. Text carrying Uzbek-specific Cyrillic letters is additionally
// checked in Latin transliteration; transliterating plain Russian would
// make "продам" match the Latin stem "dam", so it is gated.
func (c *Classifier) KeywordMatch(text string) bool {
	canon := Canonicalize(text)
	if canon == "" {
		return false
	}
	candidates := []string{canon}
	if uzCyrillicRe.MatchString(canon) {
		candidates = append(candidates, Transliterate(canon))
	}

	for _, stem := range dachaStems {
		for _, cand := range candidates {
			if strings.Contains(cand, stem) || fuzzy.PartialRatio(stem, cand) >= c.threshold {
				return true
			}
		}
	}
	return false
}

// ExtractFlags returns the amenity and rule flags whose patterns match the
// supplied text. Callers pass raw text concatenated with its canonical form
// so punctuation-sensitive and punctuation-stripped patterns both get a
// fair chance.
func (c *Classifier) ExtractFlags(text string) ([]models.Amenity, []models.Rule) {
	var amenities []models.Amenity
	for _, a := range models.AllAmenities {
		if amenityPatterns[a].MatchString(text) {
			amenities = append(amenities, a)
		}
	}
	var rules []models.Rule
	for r, p := range rulePatterns {
		if p.MatchString(text) {
			rules = append(rules, r)
		}
	}
	return amenities, rules
}

// Relevant is the full gate applied to a candidate listing's text.
// Apartments are a disqualifying category, but explicit keyword relevance
// overrides the disqualification. A disabled classifier passes everything.
func (c *Classifier) Relevant(text string) bool {
	if !c.enabled {
		return true
	}
	matched := c.KeywordMatch(text)
	canon := Canonicalize(text)
	if (strings.Contains(canon, "квартира") || strings.Contains(canon, "kvartira")) && !matched {
		return false
	}
	return matched
}
