package olx

import (
	"strings"
	"testing"
	"time"

	"olx-dacha-scraper/models"
	"olx-dacha-scraper/services"
	"olx-dacha-scraper/utils"
)

const detailHTML = `<html><body>
<h1>Сдается дача в Чарваке</h1>
<h3 data-testid="ad-price">1 500 000 сум</h3>
<a data-testid="location-link" href="#">Ташкентская область</a>
<a data-testid="location-link" href="#">Бостанлыкский район</a>
<ul>
<li data-testid="ad-attribute-value">Комнат: 4</li>
<li data-testid="ad-attribute-value">Спальных мест: 8</li>
<li data-testid="ad-attribute-value">Площадь: 200 м²</li>
</ul>
<span>Опубликовано 17 августа 2025 г.</span>
<div data-testid="seller-profile"><h4>Баходир</h4><span>Частное лицо</span></div>
<span data-testid="views-count">Просмотры: 245</span>
<div data-testid="ad-description">Уютная дача с бассейном и wifi. Только семейным.</div>
<img data-testid="image-gallery-photo" src="1.jpg"/>
<img data-testid="image-gallery-photo" src="2.jpg"/>
<span data-testid="ad-footer-bar-section">ID: 123456789</span>
</body></html>`

func testExtractor() *Extractor {
	loc := time.FixedZone("UZT", 5*3600)
	return NewExtractor(services.NewClassifier(true, 80), utils.NewLogger(), loc)
}

func TestParseDetailPage(t *testing.T) {
	e := testExtractor()
	page := &DetailPage{
		URL:      "https://www.olx.uz/d/obyavlenie/sdaetsya-dacha-v-charvake-ID1a2b3.html",
		HTML:     detailHTML,
		RawPhone: "+998 90 123-45-67",
	}
	observed := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)

	rec, ok := e.Parse(page, observed)
	if !ok {
		t.Fatal("Parse rejected a valid dacha page")
	}

	if rec.ListingID != "sdaetsya-dacha-v-charvake-ID1a2b3" {
		t.Errorf("ListingID = %q", rec.ListingID)
	}
	if rec.Title != "Сдается дача в Чарваке" {
		t.Errorf("Title = %q", rec.Title)
	}
	if rec.PriceUZS == nil || *rec.PriceUZS != 1500000 {
		t.Errorf("PriceUZS = %v, want 1500000", rec.PriceUZS)
	}
	if rec.Negotiable {
		t.Errorf("Negotiable should be false for a priced ad")
	}
	if rec.Region != "Ташкентская область" || rec.District != "Бостанлыкский район" {
		t.Errorf("location = %q / %q", rec.Region, rec.District)
	}
	if rec.Rooms == nil || *rec.Rooms != 4 {
		t.Errorf("Rooms = %v, want 4", rec.Rooms)
	}
	if rec.CapacityBeds == nil || *rec.CapacityBeds != 8 {
		t.Errorf("CapacityBeds = %v, want 8", rec.CapacityBeds)
	}
	if rec.AreaM2 == nil || *rec.AreaM2 != 200 {
		t.Errorf("AreaM2 = %v, want 200", rec.AreaM2)
	}
	if rec.PostedAtLocal == nil {
		t.Fatal("PostedAtLocal is nil")
	}
	if y, m, d := rec.PostedAtLocal.Date(); y != 2025 || m != time.August || d != 17 {
		t.Errorf("PostedAtLocal = %v, want 2025-08-17", rec.PostedAtLocal)
	}
	if rec.SellerName != "Баходир" || rec.SellerType != "Частное лицо" {
		t.Errorf("seller = %q / %q", rec.SellerName, rec.SellerType)
	}
	if rec.ViewsCount == nil || *rec.ViewsCount != 245 {
		t.Errorf("ViewsCount = %v, want 245", rec.ViewsCount)
	}
	if rec.PhotoCount != 2 {
		t.Errorf("PhotoCount = %d, want 2", rec.PhotoCount)
	}
	if rec.AdID != "123456789" {
		t.Errorf("AdID = %q", rec.AdID)
	}
	if !rec.HasAmenity(models.AmenityPool) || !rec.HasAmenity(models.AmenityWifi) {
		t.Errorf("Amenities = %v, want pool and wifi", rec.Amenities)
	}
	if len(rec.Rules) != 1 || rec.Rules[0] != models.RuleFamiliesOnly {
		t.Errorf("Rules = %v, want [families_only]", rec.Rules)
	}
	if rec.Script != models.ScriptMixed {
		t.Errorf("Script = %q, want mixed", rec.Script)
	}
	if rec.SellerPhone != "+998901234567" {
		t.Errorf("SellerPhone = %q", rec.SellerPhone)
	}
	if len(rec.SellerPhoneHash) != 64 {
		t.Errorf("SellerPhoneHash = %q, want sha256 hex", rec.SellerPhoneHash)
	}
}

func TestParseRejectsIrrelevant(t *testing.T) {
	e := testExtractor()
	page := &DetailPage{
		URL:  "https://www.olx.uz/d/obyavlenie/kvartira-IDzzz.html",
		HTML: "<html><h1>Сдается квартира в центре</h1></html>",
	}
	if _, ok := e.Parse(page, time.Now()); ok {
		t.Error("apartment listing must not pass the relevance gate")
	}
}

func TestParseNegotiablePrice(t *testing.T) {
	e := testExtractor()
	page := &DetailPage{
		URL:  "https://www.olx.uz/d/obyavlenie/dacha-IDn1.html",
		HTML: `<html><h1>Дача на выходные</h1><h3 data-testid="ad-price">Договорная</h3></html>`,
	}
	rec, ok := e.Parse(page, time.Now())
	if !ok {
		t.Fatal("Parse rejected the page")
	}
	if !rec.Negotiable {
		t.Error("Negotiable should be true")
	}
	if rec.PriceUZS != nil {
		t.Errorf("PriceUZS = %v, want nil for negotiable ads", *rec.PriceUZS)
	}
}

func TestParseMissingFieldsAreNil(t *testing.T) {
	e := testExtractor()
	page := &DetailPage{
		URL:  "https://www.olx.uz/d/obyavlenie/dacha-IDm1.html",
		HTML: "<html><h1>Дача без подробностей</h1></html>",
	}
	rec, ok := e.Parse(page, time.Now())
	if !ok {
		t.Fatal("Parse rejected the page")
	}
	if rec.PriceUZS != nil || rec.Rooms != nil || rec.ViewsCount != nil || rec.PostedAtLocal != nil {
		t.Error("absent fields must stay nil")
	}
	if rec.SellerPhone != "" || rec.SellerPhoneHash != "" {
		t.Error("phone and hash must be empty when no phone was revealed")
	}
}

func TestListingIDFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.olx.uz/d/obyavlenie/dacha-charvak-ID1a2b3.html", "dacha-charvak-ID1a2b3"},
		{"https://www.olx.uz/d/obyavlenie/x-IDq.html?reason=seller", "x-IDq"},
		{"https://example.com/foo/bar", "bar"},
	}
	for _, tt := range tests {
		if got := ListingIDFromURL(tt.in); got != tt.want {
			t.Errorf("ListingIDFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+998 90 123-45-67", "+998901234567"},
		{"998901234567", "+998901234567"},
		{"8901234567", "+998901234567"},
		{"0901234567", "+998901234567"},
		{"+998901234567", "+998901234567"},
		{"12345", ""},
		{"", ""},
		{"not a phone", ""},
		{"+7 915 123 45 67", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizePhoneVariantsAgree(t *testing.T) {
	variants := []string{"+998901234567", "998901234567", "8901234567", "+998 (90) 123-45-67"}
	want := NormalizePhone(variants[0])
	for _, v := range variants {
		if got := NormalizePhone(v); got != want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", v, got, want)
		}
	}
	if h := PhoneHash(want); len(h) != 64 || strings.ToLower(h) != h {
		t.Errorf("PhoneHash = %q, want lowercase sha256 hex", h)
	}
}

func TestParsePostedDate(t *testing.T) {
	e := testExtractor()

	tests := []struct {
		name string
		in   string
		want time.Time
	}{
		{"russian", "Опубликовано 17 августа 2025 г.", time.Date(2025, 8, 17, 0, 0, 0, 0, e.loc)},
		{"uzbek", "E'lon qilingan 12 iyun 2025", time.Date(2025, 6, 12, 0, 0, 0, 0, e.loc)},
		{"numeric", "Опубликовано 03.02.2025", time.Date(2025, 2, 3, 0, 0, 0, 0, e.loc)},
	}
	for _, tt := range tests {
		got := e.ParsePostedDate(tt.in)
		if got == nil {
			t.Errorf("%s: ParsePostedDate(%q) = nil", tt.name, tt.in)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("%s: ParsePostedDate(%q) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}

	if got := e.ParsePostedDate("Опубликовано когда-то"); got != nil {
		t.Errorf("gibberish date should be nil, got %v", got)
	}
}

func TestParsePostedDateToday(t *testing.T) {
	e := testExtractor()
	got := e.ParsePostedDate("Сегодня в 14:30")
	if got == nil {
		t.Fatal("today-phrase should parse")
	}
	now := time.Now().In(e.loc)
	if got.Hour() != 14 || got.Minute() != 30 {
		t.Errorf("time = %02d:%02d, want 14:30", got.Hour(), got.Minute())
	}
	if got.Day() != now.Day() {
		t.Errorf("day = %d, want today (%d)", got.Day(), now.Day())
	}
}
