package tunetrace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/stage"
)

// fakeStager stages a real temp file so Release semantics are exercised
// end to end.
type fakeStager struct {
	t    *testing.T
	err  error
	last *stage.StagedAudio
}

func (f *fakeStager) Stage(ctx context.Context, src AudioSource) (*stage.StagedAudio, error) {
	if f.err != nil {
		return nil, f.err
	}
	path := filepath.Join(f.t.TempDir(), "staged.mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		f.t.Fatalf("staging fixture: %v", err)
	}
	f.last = stage.NewStaged(path)
	return f.last, nil
}

type fakeRecognizer struct {
	match *Match
	err   error
}

func (f *fakeRecognizer) Recognize(ctx context.Context, audioPath string) (*Match, error) {
	return f.match, f.err
}

type fakeProvider struct {
	name  string
	value enrich.Result
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lookup(ctx context.Context, song, artist string) (enrich.Result, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return f.value, f.err
}

type fakeVideo struct {
	ids []string
	err error
}

func (f *fakeVideo) SearchLessons(ctx context.Context, song, artist string) ([]string, error) {
	return f.ids, f.err
}

func newTestService(t *testing.T, stager Stager, rec Recognizer, catalog, tabs, lessons enrich.Provider) Service {
	t.Helper()
	svc, err := NewService(
		WithStager(stager),
		WithRecognizer(rec),
		WithProviders(catalog, tabs, lessons),
		WithVideoProvider(&fakeVideo{}),
		WithLookupTimeout(time.Second),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestIdentifySuccess(t *testing.T) {
	stager := &fakeStager{t: t}
	rec := &fakeRecognizer{match: &Match{Title: "Hotel California", Artist: "Eagles"}}
	catalog := &fakeProvider{name: "catalog", value: &CatalogInfo{Song: "Hotel California", Found: true}}
	tabs := &fakeProvider{name: "tabs", value: &TabInfo{URL: "https://tabs/hc"}}
	lessons := &fakeProvider{name: "lessons", value: &LessonLink{URL: "https://lessons/hc"}}

	svc := newTestService(t, stager, rec, catalog, tabs, lessons)

	resp, err := svc.Identify(context.Background(), UploadSource([]byte("audio"), "clip.mp3"))
	if err != nil {
		t.Fatalf("Identify failed: %v", err)
	}

	if resp.Song != "Hotel California" || resp.Artist != "Eagles" {
		t.Errorf("got %q by %q", resp.Song, resp.Artist)
	}
	if resp.Catalog.Value.(*CatalogInfo).Song != "Hotel California" {
		t.Errorf("catalog field = %+v", resp.Catalog.Value)
	}
	if resp.Tabs.Value.(*TabInfo).URL != "https://tabs/hc" {
		t.Errorf("tabs field = %+v", resp.Tabs.Value)
	}
	if resp.Lessons.Value.(*LessonLink).URL != "https://lessons/hc" {
		t.Errorf("lessons field = %+v", resp.Lessons.Value)
	}
	if resp.ElapsedSeconds < 0 {
		t.Errorf("ElapsedSeconds = %f", resp.ElapsedSeconds)
	}

	if !stager.last.Released() {
		t.Error("staged audio not released after success")
	}
	if _, err := os.Stat(stager.last.Path()); !os.IsNotExist(err) {
		t.Error("staged file still on disk after success")
	}
}

func TestIdentifyNoMatch(t *testing.T) {
	stager := &fakeStager{t: t}
	rec := &fakeRecognizer{match: nil}
	catalog := &fakeProvider{name: "catalog"}
	tabs := &fakeProvider{name: "tabs"}
	lessons := &fakeProvider{name: "lessons"}

	svc := newTestService(t, stager, rec, catalog, tabs, lessons)

	_, err := svc.Identify(context.Background(), UploadSource([]byte("audio"), "clip.mp3"))
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}

	// No enrichment runs on a no-match, and cleanup still happens.
	if n := catalog.calls.Load() + tabs.calls.Load() + lessons.calls.Load(); n != 0 {
		t.Errorf("providers invoked %d times on a no-match", n)
	}
	if !stager.last.Released() {
		t.Error("staged audio not released on no-match")
	}
}

func TestIdentifyRecognitionFailureReleasesAudio(t *testing.T) {
	stager := &fakeStager{t: t}
	rec := &fakeRecognizer{err: ErrRecognitionFailed}
	svc := newTestService(t, stager, rec,
		&fakeProvider{name: "catalog"}, &fakeProvider{name: "tabs"}, &fakeProvider{name: "lessons"})

	_, err := svc.Identify(context.Background(), UploadSource([]byte("audio"), "clip.mp3"))
	if !errors.Is(err, ErrRecognitionFailed) {
		t.Fatalf("expected ErrRecognitionFailed, got %v", err)
	}
	if !stager.last.Released() {
		t.Error("staged audio not released on recognition failure")
	}
}

func TestIdentifyStagingFailure(t *testing.T) {
	stager := &fakeStager{t: t, err: ErrInvalidInput}
	svc := newTestService(t, stager, &fakeRecognizer{},
		&fakeProvider{name: "catalog"}, &fakeProvider{name: "tabs"}, &fakeProvider{name: "lessons"})

	_, err := svc.Identify(context.Background(), UploadSource(nil, ""))
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIdentifyProviderFailureIsPerField(t *testing.T) {
	stager := &fakeStager{t: t}
	rec := &fakeRecognizer{match: &Match{Title: "Creep", Artist: "Radiohead"}}
	catalogErr := errors.New("catalog down")
	catalog := &fakeProvider{name: "catalog", err: catalogErr}
	tabs := &fakeProvider{name: "tabs", value: &TabInfo{URL: "u"}, delay: 40 * time.Millisecond}
	lessons := &fakeProvider{name: "lessons", value: &LessonLink{URL: "l"}}

	svc := newTestService(t, stager, rec, catalog, tabs, lessons)

	resp, err := svc.Identify(context.Background(), UploadSource([]byte("audio"), "clip.mp3"))
	if err != nil {
		t.Fatalf("provider failure must not fail the pipeline: %v", err)
	}

	if !errors.Is(resp.Catalog.Err, catalogErr) {
		t.Errorf("Catalog.Err = %v, want the provider error", resp.Catalog.Err)
	}
	if resp.Tabs.Err != nil || resp.Tabs.Value == nil {
		t.Errorf("Tabs outcome affected by sibling failure: %+v", resp.Tabs)
	}
	if resp.Lessons.Err != nil || resp.Lessons.Value == nil {
		t.Errorf("Lessons outcome affected by sibling failure: %+v", resp.Lessons)
	}
}

func TestEnrichSkipsIdentification(t *testing.T) {
	// No stager or recognizer involvement: inject ones that fail loudly.
	stager := &fakeStager{t: t, err: errors.New("stager must not run")}
	rec := &fakeRecognizer{err: errors.New("recognizer must not run")}
	catalog := &fakeProvider{name: "catalog", value: &CatalogInfo{Found: true}}
	tabs := &fakeProvider{name: "tabs", value: &TabInfo{URL: "u"}}
	lessons := &fakeProvider{name: "lessons", value: &LessonLink{URL: "l"}}

	svc := newTestService(t, stager, rec, catalog, tabs, lessons)

	resp, err := svc.Enrich(context.Background(), "Yesterday", "The Beatles")
	if err != nil {
		t.Fatalf("Enrich failed: %v", err)
	}
	if resp.Song != "Yesterday" || resp.Artist != "The Beatles" {
		t.Errorf("got %q by %q", resp.Song, resp.Artist)
	}
	if catalog.calls.Load() != 1 || tabs.calls.Load() != 1 || lessons.calls.Load() != 1 {
		t.Error("expected each provider to run exactly once")
	}
}

func TestLessonVideosPassthrough(t *testing.T) {
	svc, err := NewService(
		WithStager(&fakeStager{t: t}),
		WithRecognizer(&fakeRecognizer{}),
		WithProviders(&fakeProvider{name: "catalog"}, &fakeProvider{name: "tabs"}, &fakeProvider{name: "lessons"}),
		WithVideoProvider(&fakeVideo{ids: []string{"a", "b"}}),
	)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	defer svc.Close()

	ids, err := svc.LessonVideos(context.Background(), "Song", "Artist")
	if err != nil {
		t.Fatalf("LessonVideos failed: %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("got %d ids, want 2", len(ids))
	}
}
