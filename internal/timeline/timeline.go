package timeline

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"karolbroda.com/lyrsync/internal/track"
)

// Status classifies what a parsed timeline can be used for.
type Status int

const (
	// StatusSynced means the lines carry usable timestamps and position
	// tracking is enabled.
	StatusSynced Status = iota
	// StatusUnsynced means the lyrics exist but carry no usable timing;
	// they are displayed statically.
	StatusUnsynced
	// StatusNotFound means no lyrics are available for the track.
	StatusNotFound
)

func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusUnsynced:
		return "unsynced"
	case StatusNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Line is a single lyric line anchored at a position in the track.
type Line struct {
	TimestampMs int64
	Text        string
}

// Timeline is the parsed lyric sheet for one track. once inserted into the
// cache it is treated as read-only.
type Timeline struct {
	Track     *track.Info
	Lines     []Line
	Status    Status
	FetchedAt time.Time
}

// Warning records a malformed timestamp tag that was skipped during parsing.
type Warning struct {
	LineNo int
	Token  string
	Reason string
}

func (w Warning) String() string {
	return fmt.Sprintf("line %d: skipped tag %q: %s", w.LineNo, w.Token, w.Reason)
}

// matches anything shaped like [mm:ss], [mm:ss.x], [mm:ss.xxx]. the fields
// admit letters so that a token like [ab:cd.ef] still counts as a tag and
// fails numeric validation with a warning instead of leaking into the text
var tagRe = regexp.MustCompile(`\[([0-9A-Za-z]+):([0-9A-Za-z]{1,2})(?:\.([0-9A-Za-z]{1,3}))?\]`)

// Parse converts raw LRC (or plain) lyric text into an ordered timeline.
//
// every bracketed timestamp on a physical line yields one Line sharing the
// text after the last tag. lines without any tag only count when no line in
// the whole input is tagged, in which case the result is an unsynced
// pseudo-timeline in input order. whitespace-only input means no lyrics.
func Parse(raw string) ([]Line, Status, []Warning) {
	if strings.TrimSpace(raw) == "" {
		return nil, StatusNotFound, nil
	}

	var (
		timed    []Line
		plain    []Line
		warnings []Warning
	)

	for lineNo, physical := range strings.Split(raw, "\n") {
		matches := tagRe.FindAllStringSubmatchIndex(physical, -1)
		if len(matches) == 0 {
			text := strings.TrimSpace(physical)
			if text != "" {
				plain = append(plain, Line{TimestampMs: 0, Text: text})
			}
			continue
		}

		lastEnd := matches[len(matches)-1][1]
		text := strings.TrimSpace(physical[lastEnd:])

		for _, m := range matches {
			token := physical[m[0]:m[1]]
			ts, err := tagToMs(physical, m)
			if err != nil {
				warnings = append(warnings, Warning{
					LineNo: lineNo + 1,
					Token:  token,
					Reason: err.Error(),
				})
				continue
			}
			timed = append(timed, Line{TimestampMs: ts, Text: text})
		}
	}

	if len(timed) == 0 {
		if len(plain) == 0 {
			return nil, StatusNotFound, warnings
		}
		return plain, StatusUnsynced, warnings
	}

	// stable keeps input order for lines sharing a timestamp
	sort.SliceStable(timed, func(i, j int) bool {
		return timed[i].TimestampMs < timed[j].TimestampMs
	})

	if isDegenerate(timed) {
		return timed, StatusUnsynced, warnings
	}

	return timed, StatusSynced, warnings
}

// isDegenerate reports whether every line carries the same nominal
// timestamp, which carries no timing information
func isDegenerate(lines []Line) bool {
	for _, l := range lines[1:] {
		if l.TimestampMs != lines[0].TimestampMs {
			return false
		}
	}
	return len(lines) > 1
}

func tagToMs(line string, m []int) (int64, error) {
	minutes, err := strconv.ParseInt(line[m[2]:m[3]], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad minutes: %w", err)
	}

	seconds, err := strconv.ParseInt(line[m[4]:m[5]], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad seconds: %w", err)
	}
	if seconds >= 60 {
		return 0, fmt.Errorf("seconds out of range: %d", seconds)
	}

	var fraction int64
	if m[6] >= 0 {
		digits := line[m[6]:m[7]]
		fraction, err = strconv.ParseInt(digits, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad fraction: %w", err)
		}
		// scale to milliseconds by digit count: .5 -> 500, .49 -> 490
		switch len(digits) {
		case 1:
			fraction *= 100
		case 2:
			fraction *= 10
		}
	}

	return minutes*60_000 + seconds*1_000 + fraction, nil
}

// ActiveIndex returns the greatest index whose timestamp is at or before
// positionMs, or -1 when the position precedes the first line or the
// timeline is not synced.
func (t *Timeline) ActiveIndex(positionMs int64) int {
	if t == nil || t.Status != StatusSynced || len(t.Lines) == 0 {
		return -1
	}
	// first index with ts > position; the active line sits just before it
	idx := sort.Search(len(t.Lines), func(i int) bool {
		return t.Lines[i].TimestampMs > positionMs
	})
	return idx - 1
}
