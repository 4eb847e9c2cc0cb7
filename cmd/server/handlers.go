package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tunetrace/tunetrace/pkg/logger"
	"github.com/tunetrace/tunetrace/pkg/tunetrace"
	"github.com/tunetrace/tunetrace/pkg/utils"
)

// Server encapsulates the HTTP server and its dependencies
type Server struct {
	service tunetrace.Service
	config  *ServerConfig
	log     tunetrace.Logger
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port           int
	TabDBPath      string
	RecognizerURL  string
	AllowedOrigins []string
}

// NewServer creates a new server instance
func NewServer(service tunetrace.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondError writes an error response
func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// handleRoot handles GET /
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "TuneTrace API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"health":        "GET /health",
			"findSong":      "GET /find-song?yt_url=",
			"identifyAudio": "POST /identify-audio",
			"searchSong":    "GET /search-song?song_name=&artist_name=",
			"lessonVideos":  "GET /youtube-lessons-videos?song_name=&artist_name=",
		},
	})
}

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

// handleFindSong handles GET /find-song: the full pipeline against a
// remote media URL. NoMatch surfaces as HTTP 404 here (unlike
// /identify-audio, which reports it inline with HTTP 200).
func (s *Server) handleFindSong(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ytURL := r.URL.Query().Get("yt_url")
	if ytURL == "" {
		s.respondError(w, http.StatusBadRequest, "YouTube URL is required.")
		return
	}
	if !utils.IsYouTubeURL(ytURL) {
		s.respondError(w, http.StatusBadRequest, "yt_url is not a YouTube URL.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	s.log.Infof("Identifying song from URL: %s", ytURL)
	agg, err := s.service.Identify(ctx, tunetrace.RemoteSource(ytURL))
	if err != nil {
		s.respondPipelineError(w, err, true)
		return
	}

	s.respondJSON(w, http.StatusOK, newIdentifyResponse(agg))
}

// handleIdentifyAudio handles POST /identify-audio (multipart file upload).
func (s *Server) handleIdentifyAudio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		s.log.Errorf("Failed to parse form: %v", err)
		s.respondError(w, http.StatusBadRequest, "Failed to parse form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.log.Errorf("Failed to get audio file: %v", err)
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.log.Errorf("Failed to read upload: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to read uploaded file")
		return
	}

	s.log.Infof("Identifying song from upload: %s (%d bytes)", header.Filename, len(data))
	agg, err := s.service.Identify(ctx, tunetrace.UploadSource(data, header.Filename))
	if errors.Is(err, tunetrace.ErrNoMatch) {
		// Intentional asymmetry with /find-song: HTTP 200 with an inline
		// error field.
		s.respondJSON(w, http.StatusOK, IdentifyResponse{
			Error: "Could not identify the song. Please try a longer or clearer audio sample.",
		})
		return
	}
	if err != nil {
		s.respondPipelineError(w, err, false)
		return
	}

	s.respondJSON(w, http.StatusOK, newIdentifyResponse(agg))
}

// handleSearchSong handles GET /search-song: enrichment and aggregation
// only, from caller-supplied song/artist.
func (s *Server) handleSearchSong(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := SongArtistQuery{
		SongName:   r.URL.Query().Get("song_name"),
		ArtistName: r.URL.Query().Get("artist_name"),
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	agg, err := s.service.Enrich(ctx, query.SongName, query.ArtistName)
	if err != nil {
		s.log.Errorf("Enrichment failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Failed to search song")
		return
	}

	s.respondJSON(w, http.StatusOK, newIdentifyResponse(agg))
}

// handleLessonVideos handles GET /youtube-lessons-videos, independent of
// the pipeline.
func (s *Server) handleLessonVideos(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := SongArtistQuery{
		SongName:   r.URL.Query().Get("song_name"),
		ArtistName: r.URL.Query().Get("artist_name"),
	}
	if err := query.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	videoIDs, err := s.service.LessonVideos(ctx, query.SongName, query.ArtistName)
	if err != nil {
		s.log.Errorf("Video search failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Error fetching lesson videos")
		return
	}
	if len(videoIDs) == 0 {
		s.respondError(w, http.StatusNotFound, "No videos found.")
		return
	}

	s.respondJSON(w, http.StatusOK, LessonVideosResponse{VideoIDs: videoIDs})
}

// respondPipelineError maps pipeline errors to HTTP statuses.
// notFoundOnNoMatch selects the /find-song behavior (404 on NoMatch);
// /identify-audio handles NoMatch before calling this.
func (s *Server) respondPipelineError(w http.ResponseWriter, err error, notFoundOnNoMatch bool) {
	switch {
	case errors.Is(err, tunetrace.ErrNoMatch):
		if notFoundOnNoMatch {
			s.respondError(w, http.StatusNotFound, "Could not identify the song.")
			return
		}
		s.respondJSON(w, http.StatusOK, IdentifyResponse{Error: "Could not identify the song."})
	case errors.Is(err, tunetrace.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, tunetrace.ErrAcquisitionFailed):
		s.log.Errorf("Media acquisition failed: %v", err)
		s.respondError(w, http.StatusBadGateway, "Failed to fetch audio from the remote URL.")
	case errors.Is(err, tunetrace.ErrRecognitionFailed):
		s.log.Errorf("Recognition failed: %v", err)
		s.respondError(w, http.StatusBadGateway, "Song recognition service failed.")
	default:
		s.log.Errorf("Pipeline failed: %v", err)
		s.respondError(w, http.StatusInternalServerError, "Server error")
	}
}
