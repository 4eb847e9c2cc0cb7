package tunetrace

import (
	"encoding/json"
	"time"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/recognize"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/stage"
)

// Re-exported component types so callers only import the facade.
type (
	AudioSource = stage.AudioSource
	SourceKind  = stage.SourceKind
	StagedAudio = stage.StagedAudio
	Match       = recognize.Match
	CatalogInfo = enrich.CatalogInfo
	TabInfo     = enrich.TabInfo
	LessonLink  = enrich.LessonLink
)

const (
	SourceRemoteURL = stage.SourceRemoteURL
	SourceUpload    = stage.SourceUpload
)

// RemoteSource builds an AudioSource for a remote media URL.
func RemoteSource(url string) AudioSource { return stage.RemoteSource(url) }

// UploadSource builds an AudioSource for uploaded bytes; the filename is
// kept as the container hint.
func UploadSource(data []byte, filename string) AudioSource {
	return stage.UploadSource(data, filename)
}

// FieldResult carries one enrichment field of the aggregate response:
// either a provider value or an inline error marker, never both.
type FieldResult struct {
	Value any
	Err   error
}

// MarshalJSON surfaces provider failures inline rather than discarding
// the whole response.
func (f FieldResult) MarshalJSON() ([]byte, error) {
	if f.Err != nil {
		return json.Marshal(map[string]string{"error": f.Err.Error()})
	}
	if f.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(f.Value)
}

// AggregateResponse is the terminal, request-scoped value of a pipeline
// run. Field order is fixed (catalog, tabs, lessons) regardless of lookup
// completion order.
type AggregateResponse struct {
	Song    string      `json:"song"`
	Artist  string      `json:"artist"`
	Catalog FieldResult `json:"catalog"`
	Tabs    FieldResult `json:"tabs"`
	Lessons FieldResult `json:"lessons"`

	Elapsed time.Duration `json:"-"`
	// ElapsedSeconds mirrors Elapsed for the wire format.
	ElapsedSeconds float64 `json:"elapsed_seconds"`
}
