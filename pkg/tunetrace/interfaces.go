package tunetrace

import (
	"context"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/stage"
)

// Service is the identification-and-enrichment pipeline.
type Service interface {
	// Identify runs the full pipeline: staging, recognition, concurrent
	// enrichment, aggregation, cleanup. ErrNoMatch reports a confident
	// negative identification.
	Identify(ctx context.Context, src AudioSource) (*AggregateResponse, error)

	// Enrich runs only the enrichment and aggregation stages from
	// caller-supplied song/artist strings.
	Enrich(ctx context.Context, song, artist string) (*AggregateResponse, error)

	// LessonVideos queries the video provider directly, independent of
	// the pipeline.
	LessonVideos(ctx context.Context, song, artist string) ([]string, error)

	Close() error
}

// Stager acquires the staged local audio blob for one pipeline run.
type Stager interface {
	Stage(ctx context.Context, src AudioSource) (*stage.StagedAudio, error)
}

// Recognizer submits staged audio to the fingerprint service. A nil match
// with a nil error is a confident no-match.
type Recognizer interface {
	Recognize(ctx context.Context, audioPath string) (*Match, error)
}

// VideoProvider searches for lesson videos.
type VideoProvider interface {
	SearchLessons(ctx context.Context, song, artist string) ([]string, error)
}

// Logger is the minimal logging surface the orchestrator needs.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}
