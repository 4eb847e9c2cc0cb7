package enrich

import (
	"context"
	"strings"
	"testing"
)

func TestLessonLinkerBuildsURL(t *testing.T) {
	linker := NewLessonLinker()

	res, err := linker.Lookup(context.Background(), "Hotel California", "Eagles")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}

	link, ok := res.(*LessonLink)
	if !ok {
		t.Fatalf("result type = %T, want *LessonLink", res)
	}

	want := "https://www.youtube.com/results?search_query=Hotel+California+Eagles+guitar+lesson&sp=EgIYAw%253D%253D"
	if link.URL != want {
		t.Errorf("URL = %s, want %s", link.URL, want)
	}
}

func TestLessonLinkerDeterministic(t *testing.T) {
	linker := NewLessonLinker()

	first, _ := linker.Lookup(context.Background(), "Yesterday", "The Beatles")
	second, _ := linker.Lookup(context.Background(), "Yesterday", "The Beatles")

	if first.(*LessonLink).URL != second.(*LessonLink).URL {
		t.Error("identical inputs produced different URLs")
	}
}

func TestLessonLinkerMediumLengthFilter(t *testing.T) {
	res, _ := NewLessonLinker().Lookup(context.Background(), "Creep", "Radiohead")
	if !strings.HasSuffix(res.(*LessonLink).URL, lessonSearchSuffix) {
		t.Errorf("URL missing duration filter suffix: %s", res.(*LessonLink).URL)
	}
}
