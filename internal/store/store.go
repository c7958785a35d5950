package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrPathUnavailable is returned by path resolution when a clan-scoped path
// cannot exist, e.g. for a clanless user. Callers skip the section rather
// than treat this as a failure.
var ErrPathUnavailable = errors.New("store: path unavailable")

// Entry is one child of a collection path: the child key plus its decoded
// record. Records are opaque maps; readers pick out the fields they need.
type Entry struct {
	Key   string
	Value map[string]any
}

// Accessor is uniform read/write access over a hierarchical path namespace.
// The two implementations (Firebase Realtime Database and the local SQLite
// fallback) must be behaviorally indistinguishable to callers: identical
// path semantics and the same exists-vs-empty contract.
type Accessor interface {
	// Exists reports whether anything is stored at or under path.
	Exists(ctx context.Context, path string) (bool, error)
	// ReadAll returns the immediate children of path ordered by key.
	// A missing path yields an empty slice, not an error.
	ReadAll(ctx context.Context, path string) ([]Entry, error)
	// Read decodes the single value at path into dest. The boolean reports
	// whether a value was present.
	Read(ctx context.Context, path string, dest any) (bool, error)
	// Write stores value at path, replacing any previous value.
	Write(ctx context.Context, path string, value any) error
}

// illegalSegmentChars are the characters Firebase forbids in a path segment.
// Both backends apply the same substitution so paths stay interchangeable.
const illegalSegmentChars = ".#$[]/"

// SanitizeSegment replaces characters illegal in a path segment with '_'.
func SanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(illegalSegmentChars, r) {
			return '_'
		}
		return r
	}, s)
}

// SectionPath resolves the path of a global section.
func SectionPath(dataType, section string) string {
	return dataType + "/" + SanitizeSegment(section)
}

// ClanSectionPath resolves the path of a clan-scoped section. An empty clan
// (the clanless sentinel) yields ErrPathUnavailable.
func ClanSectionPath(dataType, clan, section string) (string, error) {
	if clan == "" {
		return "", ErrPathUnavailable
	}
	return fmt.Sprintf("%s/clan/%s/%s", dataType, SanitizeSegment(clan), SanitizeSegment(section)), nil
}
