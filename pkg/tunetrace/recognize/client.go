// Package recognize wraps the opaque fingerprint-recognition service.
// The service is reached over HTTP and is not reimplemented here; the
// client's job is to submit staged audio and separate three outcomes:
// a confident match, a confident no-match, and a transport failure.
package recognize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
)

// ErrRecognitionFailed marks a transport or service error. A no-match is
// never wrapped in this error.
var ErrRecognitionFailed = errors.New("recognition failed")

const defaultTimeout = 30 * time.Second

// Match is a confident identification.
type Match struct {
	Title  string
	Artist string
	// Raw carries the recognizer's full response payload.
	Raw map[string]any
}

// Client submits audio bytes to the recognition service. One attempt per
// pipeline run; no retries.
type Client struct {
	baseURL string
	client  *http.Client
	log     *logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (mainly for tests).
func WithHTTPClient(c *http.Client) Option {
	return func(r *Client) { r.client = c }
}

// WithTimeout bounds the recognition round-trip.
func WithTimeout(d time.Duration) Option {
	return func(r *Client) { r.client.Timeout = d }
}

// NewClient creates a recognizer client for the service at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// recognizeResponse is the service's wire format. A missing track object
// is the confident no-match outcome.
type recognizeResponse struct {
	Track *struct {
		Title    string `json:"title"`
		Subtitle string `json:"subtitle"`
	} `json:"track"`
}

// Recognize reads the staged audio fully into memory and submits it.
// A nil match with a nil error means the service confidently found no
// match ("could not identify"); errors are transport or service failures.
func (c *Client) Recognize(ctx context.Context, audioPath string) (*Match, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading staged audio: %v", ErrRecognitionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/recognize", bytes.NewReader(audio))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecognitionFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrRecognitionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned %d", ErrRecognitionFailed, resp.StatusCode)
	}

	var parsed recognizeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrRecognitionFailed, err)
	}

	if parsed.Track == nil || parsed.Track.Title == "" {
		c.log.Infof("Recognizer returned no match for %d audio bytes", len(audio))
		return nil, nil
	}

	var raw map[string]any
	_ = json.Unmarshal(body, &raw)

	c.log.Infof("Recognized %q by %q", parsed.Track.Title, parsed.Track.Subtitle)
	return &Match{
		Title:  parsed.Track.Title,
		Artist: parsed.Track.Subtitle,
		Raw:    raw,
	}, nil
}
