package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
)

// ErrAuthFailure marks a credential fetch that failed; the catalog lookup
// surfaces it only after its single bounded retry also fails.
var ErrAuthFailure = errors.New("catalog authentication failed")

const defaultTokenURL = "https://accounts.spotify.com/api/token"

// expiryMargin refreshes tokens slightly before the provider's deadline so
// in-flight requests don't race expiry.
const expiryMargin = 60 * time.Second

// Credentials are the catalog provider's client-credentials pair.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// cachedToken is the on-disk cache format: a single token plus expiry.
type cachedToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

func (t *cachedToken) valid() bool {
	return t != nil && t.AccessToken != "" && time.Now().Before(t.ExpiresAt)
}

// TokenStore manages the process-wide catalog credential token: lazily
// fetched on first need, cached on disk, refreshed on expiry or read
// failure. Concurrent requests may read a stale-but-valid token freely;
// redundant refreshes are safe (last-writer-wins on the cache file). A
// corrupt cache is treated as a miss, never as a fatal error.
type TokenStore struct {
	creds     Credentials
	cachePath string
	tokenURL  string
	client    *http.Client
	log       *logger.Logger

	mu     sync.Mutex
	cached *cachedToken
}

// TokenOption configures a TokenStore.
type TokenOption func(*TokenStore)

// WithTokenURL overrides the token endpoint (mainly for tests).
func WithTokenURL(u string) TokenOption {
	return func(s *TokenStore) { s.tokenURL = u }
}

// WithTokenHTTPClient overrides the HTTP client.
func WithTokenHTTPClient(c *http.Client) TokenOption {
	return func(s *TokenStore) { s.client = c }
}

// NewTokenStore creates a TokenStore caching at cachePath.
func NewTokenStore(creds Credentials, cachePath string, opts ...TokenOption) *TokenStore {
	s := &TokenStore{
		creds:     creds,
		cachePath: cachePath,
		tokenURL:  defaultTokenURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		log:       logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns a valid access token, consulting the in-memory copy, then
// the disk cache, then the provider.
func (s *TokenStore) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached.valid() {
		return s.cached.AccessToken, nil
	}

	if tok := s.readCache(); tok.valid() {
		s.cached = tok
		return tok.AccessToken, nil
	}

	return s.fetchLocked(ctx)
}

// Refresh discards any cached token and fetches a fresh one.
func (s *TokenStore) Refresh(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	return s.fetchLocked(ctx)
}

// readCache loads the disk cache; any failure (missing, empty, malformed)
// is a miss, not an error.
func (s *TokenStore) readCache() *cachedToken {
	data, err := os.ReadFile(s.cachePath)
	if err != nil {
		return nil
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		s.log.Debugf("Token cache %s is empty, will request new token", s.cachePath)
		return nil
	}

	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		s.log.Warnf("Token cache %s is corrupt (%v), treating as miss", s.cachePath, err)
		return nil
	}
	return &tok
}

func (s *TokenStore) writeCache(tok *cachedToken) {
	data, err := json.Marshal(tok)
	if err != nil {
		s.log.Warnf("Failed to encode token cache: %v", err)
		return
	}
	if err := os.WriteFile(s.cachePath, data, 0o600); err != nil {
		s.log.Warnf("Failed to save token cache to %s: %v", s.cachePath, err)
	}
}

// fetchLocked requests a fresh client-credentials token. Caller holds mu.
func (s *TokenStore) fetchLocked(ctx context.Context) (string, error) {
	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	req.SetBasicAuth(s.creds.ClientID, s.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint returned %d", ErrAuthFailure, resp.StatusCode)
	}

	var parsed struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: decoding token response: %v", ErrAuthFailure, err)
	}
	if parsed.AccessToken == "" {
		return "", fmt.Errorf("%w: token endpoint returned no token", ErrAuthFailure)
	}

	tok := &cachedToken{
		AccessToken: parsed.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(parsed.ExpiresIn)*time.Second - expiryMargin),
	}
	s.cached = tok
	s.writeCache(tok)

	s.log.Debugf("Fetched fresh catalog token, expires %s", tok.ExpiresAt.Format(time.RFC3339))
	return tok.AccessToken, nil
}
