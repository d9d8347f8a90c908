package domain

import "github.com/google/uuid"

// VersionCheck is the outcome of comparing a stored version token with the
// one supplied by a caller.
type VersionCheck int

const (
	VersionMatch VersionCheck = iota
	VersionConflict
)

// NewVersion returns a fresh random version token. It is never uuid.Nil.
func NewVersion() uuid.UUID {
	for {
		v := uuid.New()
		if v != uuid.Nil {
			return v
		}
	}
}

// DetectConflict compares the stored token with the supplied one. Callers
// must have confirmed that the row exists; a missing row is a not-found
// condition and is reported before any conflict.
func DetectConflict(stored, supplied uuid.UUID) VersionCheck {
	if stored == supplied {
		return VersionMatch
	}
	return VersionConflict
}
