package main

import (
	"fmt"

	"github.com/tunetrace/tunetrace/pkg/tunetrace"
)

// Upload limits for POST /identify-audio.
const (
	// MaxUploadBytes bounds the multipart form size.
	MaxUploadBytes = 50 << 20
)

// IdentifyResponse is the aggregate returned by /find-song,
// /identify-audio and /search-song. On a no-match /identify-audio returns
// only the Error field, with HTTP 200; /find-song signals the same
// condition with HTTP 404 instead. Both behaviors are intentional.
type IdentifyResponse struct {
	Song           string                `json:"song,omitempty"`
	Artist         string                `json:"artist,omitempty"`
	Catalog        *tunetrace.FieldResult `json:"catalog,omitempty"`
	Tabs           *tunetrace.FieldResult `json:"tabs,omitempty"`
	Lessons        *tunetrace.FieldResult `json:"lessons,omitempty"`
	ElapsedSeconds float64               `json:"elapsed_seconds,omitempty"`
	Error          string                `json:"error,omitempty"`
}

// newIdentifyResponse converts the pipeline aggregate to the wire DTO.
func newIdentifyResponse(agg *tunetrace.AggregateResponse) IdentifyResponse {
	return IdentifyResponse{
		Song:           agg.Song,
		Artist:         agg.Artist,
		Catalog:        &agg.Catalog,
		Tabs:           &agg.Tabs,
		Lessons:        &agg.Lessons,
		ElapsedSeconds: agg.ElapsedSeconds,
	}
}

// LessonVideosResponse is the response for GET /youtube-lessons-videos.
type LessonVideosResponse struct {
	VideoIDs []string `json:"video_ids"`
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

// SongArtistQuery holds the common song_name/artist_name query pair.
type SongArtistQuery struct {
	SongName   string
	ArtistName string
}

// Validate checks both parameters are present.
func (q *SongArtistQuery) Validate() error {
	if q.SongName == "" || q.ArtistName == "" {
		return fmt.Errorf("song_name and artist_name are required")
	}
	return nil
}
