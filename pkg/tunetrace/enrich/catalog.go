package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
)

const defaultCatalogURL = "https://api.spotify.com/v1"

// CatalogInfo is the catalog provider's view of an identified song. A
// missing ArtURL is a valid result; Found false means the provider
// reported an empty result set, which is distinct from a lookup failure.
type CatalogInfo struct {
	Song    string `json:"song,omitempty"`
	Artist  string `json:"artist,omitempty"`
	ArtURL  string `json:"album_art,omitempty"`
	Found   bool   `json:"found"`
	Message string `json:"message,omitempty"`
}

// CatalogClient looks a matched song up in the music catalog. Token expiry
// is handled transparently: one refresh plus one retry of the single
// query, the only retry anywhere in the pipeline.
type CatalogClient struct {
	baseURL string
	tokens  *TokenStore
	client  *http.Client
	log     *logger.Logger
}

// CatalogOption configures a CatalogClient.
type CatalogOption func(*CatalogClient)

// WithCatalogURL overrides the catalog API base (mainly for tests).
func WithCatalogURL(u string) CatalogOption {
	return func(c *CatalogClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCatalogHTTPClient overrides the HTTP client.
func WithCatalogHTTPClient(hc *http.Client) CatalogOption {
	return func(c *CatalogClient) { c.client = hc }
}

// NewCatalogClient creates a catalog lookup backed by the shared token
// store.
func NewCatalogClient(tokens *TokenStore, opts ...CatalogOption) *CatalogClient {
	c := &CatalogClient{
		baseURL: defaultCatalogURL,
		tokens:  tokens,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CatalogClient) Name() string { return "catalog" }

// searchResponse is the catalog wire format we consume: one best track
// with display name, artist list and artwork variants.
type searchResponse struct {
	Tracks struct {
		Items []struct {
			Name    string `json:"name"`
			Artists []struct {
				Name string `json:"name"`
			} `json:"artists"`
			Album struct {
				Images []artImage `json:"images"`
			} `json:"album"`
		} `json:"items"`
	} `json:"tracks"`
}

// Lookup queries the catalog for the single best match of song+artist.
func (c *CatalogClient) Lookup(ctx context.Context, song, artist string) (Result, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.search(ctx, token, song, artist)
	if err != nil {
		return nil, err
	}

	if resp == nil {
		// Token rejected: refresh once and retry the single query once.
		c.log.Infof("Catalog token rejected, refreshing and retrying once")
		token, err = c.tokens.Refresh(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.search(ctx, token, song, artist)
		if err != nil {
			return nil, err
		}
		if resp == nil {
			return nil, fmt.Errorf("%w: token rejected after refresh", ErrAuthFailure)
		}
	}

	if len(resp.Tracks.Items) == 0 {
		c.log.Infof("No catalog results for %q by %q", song, artist)
		return &CatalogInfo{Found: false, Message: "no results found in catalog"}, nil
	}

	track := resp.Tracks.Items[0]

	names := make([]string, 0, len(track.Artists))
	for _, a := range track.Artists {
		names = append(names, a.Name)
	}

	return &CatalogInfo{
		Song:   track.Name,
		Artist: strings.Join(names, ", "),
		ArtURL: bestArt(track.Album.Images),
		Found:  true,
	}, nil
}

// search performs one catalog query. A nil response with nil error means
// the token was rejected (HTTP 401) and the caller may refresh and retry.
func (c *CatalogClient) search(ctx context.Context, token, song, artist string) (*searchResponse, error) {
	q := url.Values{
		"q":     {fmt.Sprintf("track:%s artist:%s", song, artist)},
		"type":  {"track"},
		"limit": {"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding catalog response: %w", err)
	}
	return &parsed, nil
}

type artImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// bestArt picks the highest-resolution artwork URL, empty when the
// provider has none.
func bestArt(images []artImage) string {
	best := ""
	bestArea := -1
	for _, img := range images {
		area := img.Width * img.Height
		if area > bestArea {
			bestArea = area
			best = img.URL
		}
	}
	return best
}
