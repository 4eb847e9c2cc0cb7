// Package tunetrace is the song identification and enrichment pipeline:
// it stages an audio sample from a file upload or a remote media URL,
// submits it to a fingerprint-recognition service, fans out to
// independent metadata providers concurrently, and aggregates their
// results while guaranteeing cleanup of staged audio on every path.
package tunetrace

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/recognize"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/stage"
)

// pipelineService is the default Service implementation.
type pipelineService struct {
	stager     Stager
	recognizer Recognizer
	catalog    enrich.Provider
	tabs       enrich.Provider
	lessons    enrich.Provider
	video      VideoProvider

	lookupTimeout time.Duration
	log           Logger
	closers       []io.Closer
}

// NewService assembles the pipeline. Components not injected through
// options are constructed with the configured defaults.
func NewService(opts ...Option) (Service, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}

	s := &pipelineService{
		lookupTimeout: cfg.LookupTimeout,
		log:           cfg.Logger,
	}

	s.stager = cfg.Stager
	if s.stager == nil {
		var stageOpts []stage.Option
		if cfg.TempDir != "" {
			stageOpts = append(stageOpts, stage.WithTempDir(cfg.TempDir))
		}
		s.stager = stage.NewStager(stageOpts...)
	}

	s.recognizer = cfg.Recognizer
	if s.recognizer == nil {
		s.recognizer = recognize.NewClient(cfg.RecognizerURL)
	}

	tabStore := cfg.TabStore
	if tabStore == nil && cfg.TabDBPath != "" {
		adapter, err := NewSQLiteTabStore(cfg.TabDBPath)
		if err != nil {
			return nil, fmt.Errorf("opening tab store: %w", err)
		}
		tabStore = adapter
		s.closers = append(s.closers, adapter)
	}

	s.catalog = cfg.Catalog
	if s.catalog == nil {
		tokens := enrich.NewTokenStore(cfg.Credentials, cfg.TokenCachePath)
		s.catalog = enrich.NewCatalogClient(tokens)
	}

	s.tabs = cfg.Tabs
	if s.tabs == nil {
		var tabOpts []enrich.TabOption
		if tabStore != nil {
			tabOpts = append(tabOpts, enrich.WithTabStore(tabStore))
		}
		s.tabs = enrich.NewTabFinder(tabOpts...)
	}

	s.lessons = cfg.Lessons
	if s.lessons == nil {
		s.lessons = enrich.NewLessonLinker()
	}

	s.video = cfg.Video
	if s.video == nil {
		s.video = enrich.NewVideoSearcher(cfg.VideoAPIKey)
	}

	return s, nil
}

// Identify drives the full pipeline. Staged audio is released on every
// exit path: staging failure, recognition failure, no-match and success.
func (s *pipelineService) Identify(ctx context.Context, src AudioSource) (*AggregateResponse, error) {
	start := time.Now()

	staged, err := s.stager.Stage(ctx, src)
	if err != nil {
		// The stager cleans up its own partial output; nothing staged
		// survives a failed Stage call.
		return nil, err
	}
	defer func() {
		if rerr := staged.Release(); rerr != nil {
			s.log.Warnf("Failed to release staged audio %s: %v", staged.Path(), rerr)
		}
	}()

	match, err := s.recognizer.Recognize(ctx, staged.Path())
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrNoMatch
	}

	resp := s.enrichMatched(ctx, match.Title, match.Artist)
	resp.Elapsed = time.Since(start)
	resp.ElapsedSeconds = resp.Elapsed.Seconds()

	s.log.Infof("Pipeline complete for %q by %q in %.2fs", match.Title, match.Artist, resp.ElapsedSeconds)
	return resp, nil
}

// Enrich runs only the enrichment and aggregation stages.
func (s *pipelineService) Enrich(ctx context.Context, song, artist string) (*AggregateResponse, error) {
	start := time.Now()
	resp := s.enrichMatched(ctx, song, artist)
	resp.Elapsed = time.Since(start)
	resp.ElapsedSeconds = resp.Elapsed.Seconds()
	return resp, nil
}

// enrichMatched fans out all providers concurrently and joins on every
// one of them before assembling the aggregate. Provider failures are
// carried per-field and never abort siblings.
func (s *pipelineService) enrichMatched(ctx context.Context, song, artist string) *AggregateResponse {
	outcomes := enrich.FanOut(ctx, song, artist, s.lookupTimeout, s.catalog, s.tabs, s.lessons)

	for _, o := range outcomes {
		if o.Err != nil {
			s.log.Warnf("Enrichment provider %s failed for %q by %q: %v", o.Provider, song, artist, o.Err)
		}
	}

	return &AggregateResponse{
		Song:    song,
		Artist:  artist,
		Catalog: FieldResult{Value: outcomes[0].Value, Err: outcomes[0].Err},
		Tabs:    FieldResult{Value: outcomes[1].Value, Err: outcomes[1].Err},
		Lessons: FieldResult{Value: outcomes[2].Value, Err: outcomes[2].Err},
	}
}

// LessonVideos queries the video provider directly.
func (s *pipelineService) LessonVideos(ctx context.Context, song, artist string) ([]string, error) {
	return s.video.SearchLessons(ctx, song, artist)
}

// Close releases resources owned by the service (the tab store when the
// service opened it).
func (s *pipelineService) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
