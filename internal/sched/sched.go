package sched

import (
	"sync"
	"time"

	"karolbroda.com/lyrsync/internal/player"
	"karolbroda.com/lyrsync/internal/timeline"
	"karolbroda.com/lyrsync/internal/track"
)

const DefaultWindowSize = 8

// State tells the renderer what kind of window it is looking at.
type State int

const (
	// StateIdle means no usable player
	StateIdle State = iota
	// StateLoading means the active track's timeline is still being fetched
	StateLoading
	// StateSynced means a timed window with a moving active line
	StateSynced
	// StateUnsynced means static plain lyrics
	StateUnsynced
	// StateNoLyrics means the track has no lyrics available
	StateNoLyrics
)

// Window is the slice of the timeline to show right now. recomputed on
// every tick; consumers read it and let it go.
type Window struct {
	Lines []string
	// ActiveIndex points into Lines, -1 when no line is active
	ActiveIndex int
	State       State
}

// Scheduler reconciles the latest playback snapshot against the active
// track's timeline. the monitor feeds it snapshots, fetch completions feed
// it timelines, and the render loop calls Tick.
type Scheduler struct {
	mu       sync.Mutex
	size     int
	snap     *player.Snapshot
	tl       *timeline.Timeline
	offsetMs int64
}

func New(windowSize int) *Scheduler {
	if windowSize < 1 {
		windowSize = DefaultWindowSize
	}
	return &Scheduler{size: windowSize}
}

// Observe installs the latest snapshot and reports whether the active
// track changed, in which case the caller should arrange a timeline fetch.
// a seeked or track-changed snapshot replaces the extrapolation baseline
// exactly; there is no smoothing.
func (s *Scheduler) Observe(snap player.Snapshot) (trackChanged bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.snap
	s.snap = &snap

	if snap.Status == player.StatusUnavailable || snap.Track == nil {
		return false
	}
	if prev == nil || prev.Track == nil || !prev.Track.Same(snap.Track) {
		// drop the old track's timeline so a stale window is never shown
		s.tl = nil
		return true
	}
	return false
}

// Adopt installs a fetched timeline, unless the active track moved on
// while the fetch was in flight. the stale result stays in the cache for
// later but must not drive the display.
func (s *Scheduler) Adopt(tl *timeline.Timeline) bool {
	if tl == nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil || s.snap.Track == nil || !s.snap.Track.Same(tl.Track) {
		return false
	}
	s.tl = tl
	return true
}

// Track returns the identity of the currently observed track, or nil.
func (s *Scheduler) Track() *track.Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snap == nil {
		return nil
	}
	return s.snap.Track
}

// NudgeOffset shifts the effective position by deltaMs, letting the user
// correct provider timing by ear. zero delta resets the offset.
func (s *Scheduler) NudgeOffset(deltaMs int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if deltaMs == 0 {
		s.offsetMs = 0
	} else {
		s.offsetMs += deltaMs
	}
	return s.offsetMs
}

// Tick derives the display window for the given instant.
func (s *Scheduler) Tick(now time.Time) Window {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.snap == nil || s.snap.Status == player.StatusUnavailable || s.snap.Track == nil {
		return Window{ActiveIndex: -1, State: StateIdle}
	}
	if s.tl == nil {
		return Window{ActiveIndex: -1, State: StateLoading}
	}

	switch s.tl.Status {
	case timeline.StatusNotFound:
		return Window{ActiveIndex: -1, State: StateNoLyrics}
	case timeline.StatusUnsynced:
		return Window{Lines: texts(s.tl.Lines), ActiveIndex: -1, State: StateUnsynced}
	}

	position := s.effectivePosition(now)
	active := s.tl.ActiveIndex(position)

	start, end := windowBounds(active, len(s.tl.Lines), s.size)

	localActive := -1
	if active >= start && active < end {
		localActive = active - start
	}

	return Window{
		Lines:       texts(s.tl.Lines[start:end]),
		ActiveIndex: localActive,
		State:       StateSynced,
	}
}

// effectivePosition extrapolates between samples: a playing track advances
// with wall-clock time since the sample, anything else is frozen where the
// sample left it.
func (s *Scheduler) effectivePosition(now time.Time) int64 {
	position := s.snap.PositionMs
	if s.snap.Status == player.StatusPlaying {
		elapsed := now.Sub(s.snap.SampledAt).Milliseconds()
		if elapsed > 0 {
			position += elapsed
		}
	}
	return position + s.offsetMs
}

// windowBounds centers the window on the active line, clamped to the
// timeline so the returned slice is never shorter than available.
func windowBounds(active, total, size int) (int, int) {
	if total <= size {
		return 0, total
	}
	if active < 0 {
		return 0, size
	}
	half := size / 2
	start := active - half
	if start < 0 {
		start = 0
	}
	end := start + size
	if end > total {
		end = total
		start = end - size
	}
	return start, end
}

func texts(lines []timeline.Line) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
