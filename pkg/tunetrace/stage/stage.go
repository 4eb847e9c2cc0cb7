package stage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/tunetrace/tunetrace/pkg/logger"
)

// Staging failure modes. Retry policy belongs to the caller; the stager
// never retries internally.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrAcquisitionFailed = errors.New("media acquisition failed")
	ErrIOFailure         = errors.New("cannot write staging area")
)

const (
	// MinUploadBytes rejects payloads too short to fingerprint.
	MinUploadBytes = 1024

	// Bounded extraction keeps recognition payloads small: the recognizer
	// only needs a few seconds of audio.
	maxClipSeconds = 8
	audioBitrate   = "48k"

	defaultRemoteTimeout = 3 * time.Minute
)

// fastTempDir is preferred for staged audio when available; os.TempDir is
// the durable fallback.
const fastTempDir = "/dev/shm"

// SourceKind selects how the pipeline acquires its audio.
type SourceKind int

const (
	// SourceRemoteURL stages audio by fetching and extracting it from a
	// remote media URL.
	SourceRemoteURL SourceKind = iota
	// SourceUpload stages audio from bytes the caller already holds.
	SourceUpload
)

// AudioSource describes one request's audio input. Exactly one of URL or
// Data is meaningful, selected by Kind. Hint carries a platform marker
// (an uploaded filename or the original URL) used to pick the staged
// container format.
type AudioSource struct {
	Kind SourceKind
	URL  string
	Data []byte
	Hint string
}

// RemoteSource builds an AudioSource for a remote media URL.
func RemoteSource(url string) AudioSource {
	return AudioSource{Kind: SourceRemoteURL, URL: url, Hint: url}
}

// UploadSource builds an AudioSource for uploaded bytes. The filename is
// kept as the container hint.
func UploadSource(data []byte, filename string) AudioSource {
	return AudioSource{Kind: SourceUpload, Data: data, Hint: filename}
}

// Stager acquires a local, readable audio blob for a single pipeline run.
// Each successful Stage call allocates exactly one filesystem resource;
// ownership transfers to the caller, which must Release it.
type Stager struct {
	tempDir string
	timeout time.Duration
	log     *logger.Logger
}

// Option configures a Stager.
type Option func(*Stager)

// WithTempDir overrides the staging directory (mainly for tests).
func WithTempDir(dir string) Option {
	return func(s *Stager) { s.tempDir = dir }
}

// WithRemoteTimeout bounds remote media acquisition.
func WithRemoteTimeout(d time.Duration) Option {
	return func(s *Stager) { s.timeout = d }
}

// NewStager creates a Stager that prefers fast volatile storage when
// available.
func NewStager(opts ...Option) *Stager {
	s := &Stager{
		timeout: defaultRemoteTimeout,
		log:     logger.GetLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tempDir == "" {
		s.tempDir = pickTempDir()
	}
	return s
}

func pickTempDir() string {
	if info, err := os.Stat(fastTempDir); err == nil && info.IsDir() {
		return fastTempDir
	}
	return os.TempDir()
}

// containerExt picks the staged container from the source hint. iOS clients
// send m4a; everything else is treated as mp3.
func containerExt(hint string) string {
	if strings.Contains(hint, "iOS") {
		return ".m4a"
	}
	return ".mp3"
}

// Stage resolves the source into a staged local file.
func (s *Stager) Stage(ctx context.Context, src AudioSource) (*StagedAudio, error) {
	switch src.Kind {
	case SourceUpload:
		return s.stageUpload(src)
	case SourceRemoteURL:
		return s.stageRemote(ctx, src)
	default:
		return nil, fmt.Errorf("%w: unknown source kind %d", ErrInvalidInput, src.Kind)
	}
}

// stagePath returns a fresh, collision-free location for staged audio.
func (s *Stager) stagePath(ext string) string {
	return filepath.Join(s.tempDir, "tunetrace_"+uuid.NewString()+ext)
}

func (s *Stager) stageUpload(src AudioSource) (*StagedAudio, error) {
	if len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: empty audio payload", ErrInvalidInput)
	}
	if len(src.Data) < MinUploadBytes {
		return nil, fmt.Errorf("%w: audio payload too small (%d bytes, need %d)",
			ErrInvalidInput, len(src.Data), MinUploadBytes)
	}

	path := s.stagePath(containerExt(src.Hint))
	if err := os.WriteFile(path, src.Data, 0o644); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	s.log.Debugf("Staged %d uploaded bytes at %s", len(src.Data), path)
	return NewStaged(path), nil
}

func (s *Stager) stageRemote(ctx context.Context, src AudioSource) (*StagedAudio, error) {
	if strings.TrimSpace(src.URL) == "" {
		return nil, fmt.Errorf("%w: empty media URL", ErrInvalidInput)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	ext := containerExt(src.Hint)
	path := s.stagePath(ext)

	dl := ytdlp.New().
		Quiet().
		NoWarnings().
		NoPlaylist().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat(strings.TrimPrefix(ext, ".")).
		PostProcessorArgs(fmt.Sprintf("ffmpeg:-t %d -b:a %s", maxClipSeconds, audioBitrate)).
		Output(path)

	if _, err := dl.Run(ctx, src.URL); err != nil {
		os.Remove(path)
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	// yt-dlp may normalize the extension itself; verify the staged file
	// actually exists and is non-empty.
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: staged file missing after download", ErrAcquisitionFailed)
	}
	if info.Size() == 0 {
		os.Remove(path)
		return nil, fmt.Errorf("%w: staged file is empty", ErrAcquisitionFailed)
	}

	s.log.Debugf("Staged %d remote bytes at %s", info.Size(), path)
	return NewStaged(path), nil
}
