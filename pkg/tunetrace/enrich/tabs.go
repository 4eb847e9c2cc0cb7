package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
)

const defaultTabSiteURL = "https://www.songsterr.com"

// TabInfo is the tablature lookup result: stored tab text when the store
// has an exact match, otherwise a best-effort public URL.
type TabInfo struct {
	Text string `json:"text,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Tab is one stored tablature record.
type Tab struct {
	Artist string
	Title  string
	Text   string
}

// TabStore is the pre-populated tablature store, queried by
// case-insensitive exact match on (artist, title). A nil, nil return is a
// miss. Population is an external job; the finder only reads.
type TabStore interface {
	FindTab(ctx context.Context, artist, title string) (*Tab, error)
}

// TabFinder resolves tablature for a matched song. With a store present it
// consults the store first; on a miss (or with no store at all) it falls
// back to a public search URL, upgraded to a direct tab link when a
// single-candidate scrape succeeds. Scrape failures degrade to the plain
// search URL rather than erroring.
type TabFinder struct {
	store   TabStore
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// TabOption configures a TabFinder.
type TabOption func(*TabFinder)

// WithTabStore attaches the optional pre-populated store.
func WithTabStore(store TabStore) TabOption {
	return func(f *TabFinder) { f.store = store }
}

// WithTabSiteURL overrides the public tab site base (mainly for tests).
func WithTabSiteURL(u string) TabOption {
	return func(f *TabFinder) { f.baseURL = strings.TrimRight(u, "/") }
}

// WithTabHTTPClient overrides the HTTP client.
func WithTabHTTPClient(c *http.Client) TabOption {
	return func(f *TabFinder) { f.client = c }
}

// NewTabFinder creates a TabFinder.
func NewTabFinder(opts ...TabOption) *TabFinder {
	f := &TabFinder{
		baseURL: defaultTabSiteURL,
		client:  &http.Client{Timeout: 5 * time.Second},
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *TabFinder) Name() string { return "tabs" }

// Lookup returns stored tab text or a public tab URL. It degrades rather
// than fails: store and scrape errors are logged and the search URL is
// returned instead.
func (f *TabFinder) Lookup(ctx context.Context, song, artist string) (Result, error) {
	if f.store != nil {
		tab, err := f.store.FindTab(ctx, artist, song)
		if err != nil {
			f.log.Warnf("Tab store lookup failed for %q by %q: %v", song, artist, err)
		} else if tab != nil {
			return &TabInfo{Text: tab.Text}, nil
		}
	}

	searchURL := f.searchURL(song, artist)

	if link, ok := f.scrapeTabLink(ctx, searchURL, song); ok {
		return &TabInfo{URL: link}, nil
	}
	return &TabInfo{URL: searchURL}, nil
}

func (f *TabFinder) searchURL(song, artist string) string {
	pattern := strings.ReplaceAll(song, " ", "+") + "+" + strings.ReplaceAll(artist, " ", "+")
	return f.baseURL + "/?pattern=" + pattern
}

// scrapeTabLink attempts a best-effort scrape of a single candidate tab
// link from the search page. Any failure reports ok=false.
func (f *TabFinder) scrapeTabLink(ctx context.Context, searchURL, song string) (string, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return "", false
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.client.Do(req)
	if err != nil {
		f.log.Debugf("Tab search fetch failed: %v", err)
		return "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.log.Debugf("Tab search returned %d, returning search URL", resp.StatusCode)
		return "", false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", false
	}

	href, ok := findTabHref(string(body), Slugify(song))
	if !ok {
		return "", false
	}
	if strings.HasPrefix(href, "http") {
		return href, true
	}
	return f.baseURL + href, true
}

// findTabHref extracts the first anchor href containing "-<slug>-tab".
func findTabHref(html, slug string) (string, bool) {
	if slug == "" {
		return "", false
	}
	re := regexp.MustCompile(fmt.Sprintf(`href="([^"]*-%s-tab[^"]*)"`, regexp.QuoteMeta(slug)))
	m := re.FindStringSubmatch(html)
	if m == nil {
		return "", false
	}
	return m[1], true
}

var nonWordChars = regexp.MustCompile(`[^\w\s-]`)

// Slugify sanitizes a song title into a URL-safe slug: punctuation
// stripped, whitespace collapsed to hyphens, lowercased.
func Slugify(s string) string {
	s = nonWordChars.ReplaceAllString(s, "")
	return strings.ToLower(strings.Join(strings.Fields(s), "-"))
}
