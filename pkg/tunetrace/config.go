package tunetrace

import (
	"time"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
)

// Config holds the pipeline's assembly knobs. Zero values are filled with
// defaults by NewService; injected components (Stager, Recognizer,
// providers) take precedence over constructed ones.
type Config struct {
	TempDir        string
	RecognizerURL  string
	TokenCachePath string
	Credentials    enrich.Credentials
	VideoAPIKey    string
	TabDBPath      string
	LookupTimeout  time.Duration

	Logger     Logger
	Stager     Stager
	Recognizer Recognizer
	TabStore   enrich.TabStore
	Catalog    enrich.Provider
	Tabs       enrich.Provider
	Lessons    enrich.Provider
	Video      VideoProvider
}

// Option configures the service.
type Option func(*Config)

// WithTempDir sets the staging directory.
func WithTempDir(dir string) Option {
	return func(c *Config) { c.TempDir = dir }
}

// WithRecognizerURL points the pipeline at the recognition service.
func WithRecognizerURL(u string) Option {
	return func(c *Config) { c.RecognizerURL = u }
}

// WithTokenCachePath sets the credential-token cache file.
func WithTokenCachePath(path string) Option {
	return func(c *Config) { c.TokenCachePath = path }
}

// WithCredentials sets the catalog provider's client credentials.
func WithCredentials(creds enrich.Credentials) Option {
	return func(c *Config) { c.Credentials = creds }
}

// WithVideoAPIKey sets the video provider's API key.
func WithVideoAPIKey(key string) Option {
	return func(c *Config) { c.VideoAPIKey = key }
}

// WithTabDBPath opens the tablature store at path. Ignored when a
// TabStore is injected directly.
func WithTabDBPath(path string) Option {
	return func(c *Config) { c.TabDBPath = path }
}

// WithLookupTimeout bounds each enrichment lookup.
func WithLookupTimeout(d time.Duration) Option {
	return func(c *Config) { c.LookupTimeout = d }
}

// WithLogger overrides the logger.
func WithLogger(log Logger) Option {
	return func(c *Config) { c.Logger = log }
}

// WithStager injects a staging implementation.
func WithStager(s Stager) Option {
	return func(c *Config) { c.Stager = s }
}

// WithRecognizer injects a recognizer implementation.
func WithRecognizer(r Recognizer) Option {
	return func(c *Config) { c.Recognizer = r }
}

// WithTabStore injects a pre-populated tablature store. When absent the
// tab lookup always falls back to the public search-URL path.
func WithTabStore(store enrich.TabStore) Option {
	return func(c *Config) { c.TabStore = store }
}

// WithProviders injects the three enrichment providers in response field
// order (catalog, tabs, lessons).
func WithProviders(catalog, tabs, lessons enrich.Provider) Option {
	return func(c *Config) {
		c.Catalog = catalog
		c.Tabs = tabs
		c.Lessons = lessons
	}
}

// WithVideoProvider injects the video-search provider.
func WithVideoProvider(v VideoProvider) Option {
	return func(c *Config) { c.Video = v }
}

func defaultConfig() *Config {
	return &Config{
		RecognizerURL:  "http://127.0.0.1:3737",
		TokenCachePath: ".cache",
		LookupTimeout:  10 * time.Second,
	}
}
