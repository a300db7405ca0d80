package track

import (
	"fmt"
	"strings"
)

// Info identifies one track as reported by a media player. values are
// copied around freely; nothing mutates an Info after construction.
type Info struct {
	Title      string
	Artist     string
	Album      string
	DurationMs int64
}

func (t *Info) IsValid() bool {
	if t == nil {
		return false
	}
	return strings.TrimSpace(t.Title) != "" && strings.TrimSpace(t.Artist) != ""
}

// Key returns the normalized cache key for this track. duration is folded
// in (rounded to whole seconds) so different versions of a colliding title
// get distinct entries.
func (t *Info) Key() string {
	if t == nil {
		return ""
	}
	key := normalize(t.Title) + "|" + normalize(t.Artist)
	if t.DurationMs > 0 {
		key = fmt.Sprintf("%s|%d", key, t.DurationMs/1000)
	}
	return key
}

// Same reports whether two identities name the same track: title and artist
// after normalization, with duration as a tie-breaker when both report one.
func (t *Info) Same(other *Info) bool {
	if t == nil || other == nil {
		return t == other
	}
	if normalize(t.Title) != normalize(other.Title) {
		return false
	}
	if normalize(t.Artist) != normalize(other.Artist) {
		return false
	}
	if t.DurationMs > 0 && other.DurationMs > 0 {
		return t.DurationMs/1000 == other.DurationMs/1000
	}
	return true
}

func (t *Info) String() string {
	if t == nil {
		return ""
	}
	return t.Artist + " - " + t.Title
}

// normalize lowercases and collapses internal whitespace
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
