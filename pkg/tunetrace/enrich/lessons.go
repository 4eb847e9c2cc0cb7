package enrich

import (
	"context"
	"strings"
)

const (
	lessonSearchBase = "https://www.youtube.com/results?search_query="
	// Filters results to medium-length videos.
	lessonSearchSuffix = "&sp=EgIYAw%253D%253D"
	lessonQuerySuffix  = "guitar lesson"
)

// LessonLink is the derived video-lesson search URL.
type LessonLink struct {
	URL string `json:"url"`
}

// LessonLinker derives a lesson search URL from the matched song and
// artist. Pure and deterministic; it has no network failure mode and
// never fails.
type LessonLinker struct{}

// NewLessonLinker creates a LessonLinker.
func NewLessonLinker() LessonLinker { return LessonLinker{} }

func (LessonLinker) Name() string { return "lessons" }

// Lookup builds the search URL.
func (LessonLinker) Lookup(_ context.Context, song, artist string) (Result, error) {
	query := song + " " + artist + " " + lessonQuerySuffix
	return &LessonLink{
		URL: lessonSearchBase + strings.ReplaceAll(query, " ", "+") + lessonSearchSuffix,
	}, nil
}
