package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
)

const defaultVideoAPIURL = "https://www.googleapis.com/youtube/v3"

// ErrVideoSearch marks a video-provider transport or service failure.
var ErrVideoSearch = errors.New("video search failed")

// VideoSearcher queries the video provider's data API for embeddable
// lesson videos. It is independent of the identification pipeline and
// serves its own endpoint.
type VideoSearcher struct {
	apiKey  string
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// VideoOption configures a VideoSearcher.
type VideoOption func(*VideoSearcher)

// WithVideoAPIURL overrides the API base (mainly for tests).
func WithVideoAPIURL(u string) VideoOption {
	return func(v *VideoSearcher) { v.baseURL = strings.TrimRight(u, "/") }
}

// WithVideoHTTPClient overrides the HTTP client.
func WithVideoHTTPClient(c *http.Client) VideoOption {
	return func(v *VideoSearcher) { v.client = c }
}

// NewVideoSearcher creates a VideoSearcher with the provider API key.
func NewVideoSearcher(apiKey string, opts ...VideoOption) *VideoSearcher {
	v := &VideoSearcher{
		apiKey:  apiKey,
		baseURL: defaultVideoAPIURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SearchLessons returns up to three embeddable lesson video IDs for the
// song/artist pair, relevance ordered. An empty slice is a valid result.
func (v *VideoSearcher) SearchLessons(ctx context.Context, song, artist string) ([]string, error) {
	q := url.Values{
		"part":            {"id"},
		"q":               {song + " " + artist + " " + lessonQuerySuffix},
		"type":            {"video"},
		"maxResults":      {"3"},
		"videoEmbeddable": {"true"},
		"order":           {"relevance"},
		"key":             {v.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVideoSearch, err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVideoSearch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: provider returned %d", ErrVideoSearch, resp.StatusCode)
	}

	var parsed struct {
		Items []struct {
			ID struct {
				VideoID string `json:"videoId"`
			} `json:"id"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrVideoSearch, err)
	}

	ids := make([]string, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item.ID.VideoID != "" {
			ids = append(ids, item.ID.VideoID)
		}
	}

	v.log.Debugf("Video search for %q by %q found %d videos", song, artist, len(ids))
	return ids, nil
}
