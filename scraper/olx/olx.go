package olx

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"

	"olx-dacha-scraper/config"
	"olx-dacha-scraper/utils"
)

const adLinkSelector = `a[href*="/d/obyavlenie/"]`

// cookieButtonLabels are tried in order; the first button whose text
// matches is clicked. Absence of all of them is not an error.
var cookieButtonLabels = []string{"Принять", "Qabul qilish", "Accept"}

// Scraper drives discovery and detail fetching against the OLX site
// through a headless browser. One run is strictly sequential.
type Scraper struct {
	cfg    *config.Config
	logger *utils.Logger
	retry  *utils.RetryConfig
	seen   *utils.URLSet

	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
}

// New creates a ready-to-use OLX Scraper.
func New(cfg *config.Config, logger *utils.Logger) *Scraper {
	return &Scraper{
		cfg:    cfg,
		logger: logger,
		seen:   utils.NewURLSet(),
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   2 * time.Second,
			Retryable: func(err error) bool {
				return !isUnreachable(err)
			},
			Logger: logger,
		},
	}
}

// Start launches the browser allocator. Stop must be called afterwards.
func (s *Scraper) Start(ctx context.Context) error {
	chromeBin := findChromeBinary(s.cfg.ChromeBin)
	s.logger.Info("[olx] Using browser binary: %s", chromeBin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.UserAgent(userAgents[0]),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	s.allocCtx = silentCtx
	s.cancelAlloc = cancelAlloc
	s.cancelCtx = cancelSilent
	return nil
}

// Stop releases the browser.
func (s *Scraper) Stop() {
	if s.cancelCtx != nil {
		s.cancelCtx()
	}
	if s.cancelAlloc != nil {
		s.cancelAlloc()
	}
}

// DiscoveryResult carries everything discovery produced: the deduplicated
// sorted detail URLs and the raw markup of every fetched index page, kept
// for the degraded extraction path.
type DiscoveryResult struct {
	URLs     []string
	PageHTML []string
}

// Discover walks result pages until the configured number of consecutive
// empty pages or the page cap, whichever comes first.
func (s *Scraper) Discover(ctx context.Context) (*DiscoveryResult, error) {
	return s.discover(func(page int) (string, error) {
		var html string
		err := s.retry.Do(fmt.Sprintf("fetch-page-%d", page), func() error {
			var ferr error
			html, ferr = s.fetchIndexPage(ctx, s.pageURL(page))
			return ferr
		})
		return html, err
	})
}

// discover contains the stopping state machine, separated from chromedp so
// the heuristic is testable with a plain fetch function.
func (s *Scraper) discover(fetch func(page int) (string, error)) (*DiscoveryResult, error) {
	result := &DiscoveryResult{}
	emptyStreak := 0

	for page := 1; page <= s.cfg.MaxPages; page++ {
		html, err := fetch(page)
		if err != nil {
			if isUnreachable(err) {
				return nil, fmt.Errorf("olx: target unreachable on page %d: %w", page, err)
			}
			s.logger.Warn("[olx] Page %d failed, counting as empty: %v", page, err)
			html = ""
		}

		links := s.extractAdLinks(html)
		if html != "" {
			result.PageHTML = append(result.PageHTML, html)
		}

		if len(links) == 0 {
			emptyStreak++
			s.logger.Info("[olx] Page %d: no ad links (empty streak %d/%d)",
				page, emptyStreak, s.cfg.EmptyPageThreshold)
			if emptyStreak >= s.cfg.EmptyPageThreshold {
				s.logger.Info("[olx] Stopping after %d consecutive empty pages", emptyStreak)
				break
			}
			continue
		}

		emptyStreak = 0
		added := 0
		for _, link := range links {
			if s.seen.Add(link) {
				result.URLs = append(result.URLs, link)
				added++
			}
		}
		s.logger.Info("[olx] Page %d: %d ad links (%d new, %d total)",
			page, len(links), added, len(result.URLs))
	}

	sort.Strings(result.URLs)
	return result, nil
}

// pageURL builds the URL of result page n from the start URL.
func (s *Scraper) pageURL(n int) string {
	if n <= 1 {
		return s.cfg.StartURL
	}
	sep := "?"
	if strings.Contains(s.cfg.StartURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", s.cfg.StartURL, sep, n)
}

// extractAdLinks collects detail-page references from one index page,
// deduplicated within the page and absolutized against the site origin.
func (s *Scraper) extractAdLinks(html string) []string {
	if html == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		s.logger.Warn("[olx] Index page parse failed: %v", err)
		return nil
	}

	origin := SiteOrigin(s.cfg.StartURL)
	inPage := make(map[string]struct{})
	var links []string

	doc.Find(adLinkSelector).Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		if strings.HasPrefix(href, "/") {
			href = origin + href
		}
		if _, dup := inPage[href]; dup {
			return
		}
		inPage[href] = struct{}{}
		links = append(links, href)
	})

	return links
}

// fetchIndexPage renders one result page: navigate, dismiss the cookie
// banner if present, wait briefly for ad links, return the rendered markup.
func (s *Scraper) fetchIndexPage(ctx context.Context, pageURL string) (string, error) {
	pageCtx, cancel := chromedp.NewContext(s.allocCtx)
	defer cancel()

	tctx, cancelTimeout := context.WithTimeout(pageCtx, time.Duration(s.cfg.PageTimeoutSec)*time.Second)
	defer cancelTimeout()

	if err := chromedp.Run(tctx,
		chromedp.Navigate(pageURL),
		chromedp.Sleep(2*time.Second),
		chromedp.Evaluate(dismissCookiesJS(), nil),
		chromedp.Sleep(500*time.Millisecond),
	); err != nil {
		return "", fmt.Errorf("navigate %s: %w", pageURL, err)
	}

	// Best-effort wait for at least one ad link; a genuinely empty page
	// just runs out the short budget.
	waitCtx, cancelWait := context.WithTimeout(tctx, 15*time.Second)
	_ = chromedp.Run(waitCtx, chromedp.WaitVisible(adLinkSelector, chromedp.ByQuery))
	cancelWait()

	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("read markup %s: %w", pageURL, err)
	}
	return html, nil
}

// dismissCookiesJS clicks the first consent button whose label matches.
func dismissCookiesJS() string {
	quoted := make([]string, 0, len(cookieButtonLabels))
	for _, l := range cookieButtonLabels {
		quoted = append(quoted, fmt.Sprintf("%q", l))
	}
	return `
		(function() {
			var labels = [` + strings.Join(quoted, ", ") + `];
			var buttons = document.querySelectorAll('button');
			for (var i = 0; i < labels.length; i++) {
				for (var j = 0; j < buttons.length; j++) {
					if ((buttons[j].textContent || '').indexOf(labels[i]) !== -1) {
						buttons[j].click();
						return true;
					}
				}
			}
			return false;
		})()
	`
}

// isUnreachable reports whether the error means the target site cannot be
// resolved at all, the one condition that aborts a whole run.
func isUnreachable(err error) bool {
	if err == nil {
		return false
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "ERR_NAME_NOT_RESOLVED") ||
		strings.Contains(msg, "no such host")
}

// SiteOrigin returns the scheme://host prefix used to absolutize
// site-relative hrefs.
func SiteOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "https://www.olx.uz"
	}
	return u.Scheme + "://" + u.Host
}

// findChromeBinary locates the Chrome/Chromium binary.
func findChromeBinary(configured string) string {
	if configured != "" {
		return configured
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
