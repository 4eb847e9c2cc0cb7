package tunetrace

import (
	"errors"

	"github.com/tunetrace/tunetrace/pkg/tunetrace/enrich"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/recognize"
	"github.com/tunetrace/tunetrace/pkg/tunetrace/stage"
)

// The pipeline error taxonomy, re-exported from the components that own
// each failure mode so callers can errors.Is against the facade alone.
var (
	// ErrInvalidInput marks bad caller data (empty or implausibly small
	// audio payloads).
	ErrInvalidInput = stage.ErrInvalidInput

	// ErrAcquisitionFailed marks a failure to fetch or extract remote
	// media during staging.
	ErrAcquisitionFailed = stage.ErrAcquisitionFailed

	// ErrRecognitionFailed marks a recognizer transport or service error,
	// distinct from a confident no-match.
	ErrRecognitionFailed = recognize.ErrRecognitionFailed

	// ErrNoMatch is the user-facing "could not identify" outcome: the
	// recognizer reached a confident negative result. Terminal, but not a
	// provider failure.
	ErrNoMatch = errors.New("could not identify the song")

	// ErrAuthFailure marks a catalog credential refresh that failed after
	// the single bounded retry.
	ErrAuthFailure = enrich.ErrAuthFailure
)
