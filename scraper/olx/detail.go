package olx

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (Linux; Android 13; SM-G991B) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Mobile Safari/537.36",
}

const (
	phoneRevealButton = `[data-testid="phone-reveal-button"]`
	phoneRevealText   = `[data-testid="phone-reveal-phone"]`
)

// challengePhrases mark bot-verification interstitials. A page containing
// any of them yields no record.
var challengePhrases = []string{
	"verify", "captcha", "access denied",
	"пожалуйста, подтвердите", "robot", "are you human",
}

// DetailPage is one rendered detail page plus whatever the phone reveal
// produced. RawPhone is the un-normalized on-screen text, empty when the
// reveal control was absent or failed.
type DetailPage struct {
	URL      string
	HTML     string
	RawPhone string
}

// FetchDetail renders one ad page and attempts the phone reveal. A render
// timeout or a challenge interstitial returns (nil, nil): no record, not
// an error. Challenge pages leave an HTML snapshot for offline inspection.
func (s *Scraper) FetchDetail(ctx context.Context, adURL string) (*DetailPage, error) {
	pageCtx, cancel := chromedp.NewContext(s.allocCtx)
	defer cancel()

	tctx, cancelTimeout := context.WithTimeout(pageCtx, time.Duration(s.cfg.PageTimeoutSec)*time.Second)
	defer cancelTimeout()

	ua := userAgents[rand.Intn(len(userAgents))]

	var html string
	err := chromedp.Run(tctx,
		emulation.SetUserAgentOverride(ua),
		chromedp.Navigate(adURL),
		chromedp.Sleep(3*time.Second),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		if isUnreachable(err) {
			return nil, fmt.Errorf("olx: target unreachable: %w", err)
		}
		s.logger.Warn("[olx] Detail page failed for %s: %v", adURL, err)
		return nil, nil
	}

	if IsChallenge(html) {
		s.logger.Warn("[olx] Challenge page detected for %s", adURL)
		s.saveChallengeSnapshot(adURL, html)
		return nil, nil
	}

	page := &DetailPage{URL: adURL, HTML: html}

	// Phone reveal is best effort: any failure leaves the phone empty and
	// never blocks the rest of the record. The click is only attempted when
	// the control is actually visible; most ads without a reveal button
	// would otherwise wait out the full click timeout.
	var revealVisible bool
	if err := chromedp.Run(tctx, chromedp.Evaluate(phoneRevealVisibleJS(), &revealVisible)); err != nil {
		s.logger.Debug("[olx] Reveal visibility check failed for %s: %v", adURL, err)
	}
	if !revealVisible {
		return page, nil
	}

	revealCtx, cancelReveal := context.WithTimeout(tctx, 12*time.Second)
	var phone string
	revealErr := chromedp.Run(revealCtx,
		chromedp.Click(phoneRevealButton, chromedp.ByQuery, chromedp.NodeVisible),
		chromedp.Sleep(1500*time.Millisecond),
		chromedp.Text(phoneRevealText, &phone, chromedp.ByQuery),
	)
	cancelReveal()
	if revealErr != nil {
		s.logger.Debug("[olx] Phone reveal unavailable for %s: %v", adURL, revealErr)
	} else {
		page.RawPhone = strings.TrimSpace(phone)
	}

	return page, nil
}

// phoneRevealVisibleJS reports whether the reveal control exists and takes
// part in layout (hidden elements have no offsetParent).
func phoneRevealVisibleJS() string {
	return fmt.Sprintf(`(function() {
		var el = document.querySelector(%q);
		return !!(el && el.offsetParent !== null);
	})()`, phoneRevealButton)
}

// IsChallenge scans rendered markup for bot-verification phrases.
func IsChallenge(html string) bool {
	lower := strings.ToLower(html)
	for _, phrase := range challengePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

func (s *Scraper) saveChallengeSnapshot(adURL, html string) {
	if err := os.MkdirAll(s.cfg.SnapshotDir, 0755); err != nil {
		s.logger.Warn("[olx] Cannot create snapshot dir: %v", err)
		return
	}
	path := filepath.Join(s.cfg.SnapshotDir,
		fmt.Sprintf("ad_challenge_%s.html", ListingIDFromURL(adURL)))
	if err := os.WriteFile(path, []byte(html), 0644); err != nil {
		s.logger.Warn("[olx] Cannot write challenge snapshot: %v", err)
		return
	}
	s.logger.Info("[olx] Challenge snapshot saved: %s", path)
}
