package enrich

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hotel California", "hotel-california"},
		{"Don't Stop Believin'!", "dont-stop-believin"},
		{"  Spaced   Out  ", "spaced-out"},
		{"Already-Hyphenated", "already-hyphenated"},
		{"", ""},
		{"!!!", ""},
		{"99 Luftballons", "99-luftballons"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// fakeTabStore is a scriptable TabStore.
type fakeTabStore struct {
	tab *Tab
	err error
}

func (f *fakeTabStore) FindTab(ctx context.Context, artist, title string) (*Tab, error) {
	return f.tab, f.err
}

func TestTabFinderStoreHit(t *testing.T) {
	store := &fakeTabStore{tab: &Tab{Artist: "Queen", Title: "Bohemian Rhapsody", Text: "e|---0---|"}}
	f := NewTabFinder(WithTabStore(store))

	res, err := f.Lookup(context.Background(), "Bohemian Rhapsody", "Queen")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	info := res.(*TabInfo)
	if info.Text != "e|---0---|" {
		t.Errorf("Text = %q, want stored tab text", info.Text)
	}
	if info.URL != "" {
		t.Errorf("URL = %q, want empty on store hit", info.URL)
	}
}

func TestTabFinderStoreMissScrapesDirectLink(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pattern"); got != "Hotel+California+Eagles" {
			t.Errorf("pattern = %q", got)
		}
		w.Write([]byte(`<a href="/a/wsa/eagles-hotel-california-tab-s27t2.htm">Hotel California</a>`))
	}))
	defer srv.Close()

	f := NewTabFinder(WithTabStore(&fakeTabStore{}), WithTabSiteURL(srv.URL))

	res, err := f.Lookup(context.Background(), "Hotel California", "Eagles")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	info := res.(*TabInfo)
	want := srv.URL + "/a/wsa/eagles-hotel-california-tab-s27t2.htm"
	if info.URL != want {
		t.Errorf("URL = %s, want %s", info.URL, want)
	}
	if info.Text != "" {
		t.Errorf("Text = %q, want empty on scrape path", info.Text)
	}
}

func TestTabFinderScrapeMissDegradesToSearchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no matching anchors here</body></html>`))
	}))
	defer srv.Close()

	f := NewTabFinder(WithTabSiteURL(srv.URL))

	res, err := f.Lookup(context.Background(), "Obscure Song", "Nobody")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	info := res.(*TabInfo)
	want := srv.URL + "/?pattern=Obscure+Song+Nobody"
	if info.URL != want {
		t.Errorf("URL = %s, want search URL %s", info.URL, want)
	}
}

func TestTabFinderSiteDownDegradesToSearchURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewTabFinder(WithTabSiteURL(srv.URL))

	res, err := f.Lookup(context.Background(), "Creep", "Radiohead")
	if err != nil {
		t.Fatalf("degraded lookup should not error, got %v", err)
	}
	if !strings.HasPrefix(res.(*TabInfo).URL, srv.URL+"/?pattern=") {
		t.Errorf("URL = %s, want search URL", res.(*TabInfo).URL)
	}
}

func TestTabFinderStoreErrorFallsThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`nothing`))
	}))
	defer srv.Close()

	store := &fakeTabStore{err: errors.New("db locked")}
	f := NewTabFinder(WithTabStore(store), WithTabSiteURL(srv.URL))

	res, err := f.Lookup(context.Background(), "Yesterday", "The Beatles")
	if err != nil {
		t.Fatalf("store error should degrade, not fail: %v", err)
	}
	if res.(*TabInfo).URL == "" {
		t.Error("expected a fallback URL after store error")
	}
}

func TestFindTabHref(t *testing.T) {
	html := `<a href="/a/wsa/queen-bohemian-rhapsody-tab-s408.htm">tab</a>`

	href, ok := findTabHref(html, "bohemian-rhapsody")
	if !ok {
		t.Fatal("expected a match")
	}
	if href != "/a/wsa/queen-bohemian-rhapsody-tab-s408.htm" {
		t.Errorf("href = %s", href)
	}

	if _, ok := findTabHref(html, "other-song"); ok {
		t.Error("matched an unrelated slug")
	}
	if _, ok := findTabHref(html, ""); ok {
		t.Error("matched an empty slug")
	}
}
