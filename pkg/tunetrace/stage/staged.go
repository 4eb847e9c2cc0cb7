package stage

import (
	"os"
	"sync/atomic"
)

// StagedAudio is an exclusively-owned, filesystem-backed byte region
// created for a single pipeline run. It must be released on every exit
// path; Release is idempotent.
type StagedAudio struct {
	path     string
	released atomic.Bool
}

// NewStaged wraps an existing file as staged audio, transferring
// ownership of the file to the returned value.
func NewStaged(path string) *StagedAudio {
	return &StagedAudio{path: path}
}

// Path returns the staged file location.
func (a *StagedAudio) Path() string {
	return a.path
}

// Bytes reads the staged audio fully into memory.
func (a *StagedAudio) Bytes() ([]byte, error) {
	return os.ReadFile(a.path)
}

// Release deletes the staged file. Safe to call more than once and safe
// on a nil receiver, so callers can defer it unconditionally.
func (a *StagedAudio) Release() error {
	if a == nil {
		return nil
	}
	if !a.released.CompareAndSwap(false, true) {
		return nil
	}
	if err := os.Remove(a.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Released reports whether the staged file has been deleted.
func (a *StagedAudio) Released() bool {
	return a != nil && a.released.Load()
}
