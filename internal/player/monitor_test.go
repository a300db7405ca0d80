package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"karolbroda.com/lyrsync/internal/track"
)

type fakeBackend struct {
	name string
	snap Snapshot
	err  error
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Snapshot(ctx context.Context) (Snapshot, error) {
	if b.err != nil {
		return Unavailable(time.Now()), b.err
	}
	return b.snap, nil
}

type fakeLister struct {
	backends []Backend
	err      error
}

func (l *fakeLister) List(ctx context.Context) ([]Backend, error) {
	return l.backends, l.err
}

func playing(name, title string) *fakeBackend {
	return &fakeBackend{
		name: name,
		snap: Snapshot{
			Track:     &track.Info{Title: title, Artist: "artist"},
			Status:    StatusPlaying,
			SampledAt: time.Now(),
		},
	}
}

func paused(name, title string) *fakeBackend {
	b := playing(name, title)
	b.snap.Status = StatusPaused
	return b
}

func TestPinnedSelection(t *testing.T) {
	lister := &fakeLister{backends: []Backend{
		playing("spotify", "from spotify"),
		playing("vlc", "from vlc"),
	}}
	m := NewMonitor(lister, zerolog.Nop(), WithPinned("vlc"))

	snap := m.Poll(context.Background())
	if snap.Track == nil || snap.Track.Title != "from vlc" {
		t.Errorf("pinned monitor sampled wrong player: %+v", snap)
	}

	// pinned player disappearing means unavailable, not fallback
	lister.backends = []Backend{playing("spotify", "from spotify")}
	snap = m.Poll(context.Background())
	if snap.Status != StatusUnavailable {
		t.Errorf("status = %v, want unavailable when pinned player is gone", snap.Status)
	}
}

func TestAutoSelectionPrefersPlaying(t *testing.T) {
	lister := &fakeLister{backends: []Backend{
		paused("mpd", "paused track"),
		playing("spotify", "playing track"),
	}}
	m := NewMonitor(lister, zerolog.Nop())

	snap := m.Poll(context.Background())
	if snap.Track == nil || snap.Track.Title != "playing track" {
		t.Errorf("expected the playing player, got %+v", snap)
	}
}

func TestAutoSelectionPriorityOrder(t *testing.T) {
	lister := &fakeLister{backends: []Backend{
		playing("spotify", "from spotify"),
		playing("mpd", "from mpd"),
	}}

	// without a priority list, lexicographic bus name order wins
	m := NewMonitor(lister, zerolog.Nop())
	snap := m.Poll(context.Background())
	if snap.Track.Title != "from mpd" {
		t.Errorf("default order: got %q, want mpd first", snap.Track.Title)
	}

	// the priority list overrides name order
	m = NewMonitor(lister, zerolog.Nop(), WithPriority([]string{"spotify"}))
	snap = m.Poll(context.Background())
	if snap.Track.Title != "from spotify" {
		t.Errorf("priority order: got %q, want spotify first", snap.Track.Title)
	}
}

func TestAutoSelectionSticky(t *testing.T) {
	spotify := playing("spotify", "from spotify")
	vlc := playing("vlc", "from vlc")
	lister := &fakeLister{backends: []Backend{spotify, vlc}}
	m := NewMonitor(lister, zerolog.Nop())

	snap := m.Poll(context.Background())
	if snap.Track.Title != "from spotify" {
		t.Fatalf("initial selection: %q", snap.Track.Title)
	}

	// the selected player keeps playing, so a later-sorted player starting
	// does not steal the selection
	snap = m.Poll(context.Background())
	if snap.Track.Title != "from spotify" {
		t.Errorf("selection should stick, got %q", snap.Track.Title)
	}

	// selected player pauses while another is playing: re-select
	spotify.snap.Status = StatusPaused
	snap = m.Poll(context.Background())
	if snap.Track.Title != "from vlc" {
		t.Errorf("expected re-selection to the playing player, got %+v", snap)
	}
}

func TestNoPlayersUnavailable(t *testing.T) {
	m := NewMonitor(&fakeLister{}, zerolog.Nop())
	snap := m.Poll(context.Background())
	if snap.Status != StatusUnavailable {
		t.Errorf("status = %v, want unavailable", snap.Status)
	}

	m = NewMonitor(&fakeLister{err: errors.New("bus gone")}, zerolog.Nop())
	snap = m.Poll(context.Background())
	if snap.Status != StatusUnavailable {
		t.Errorf("status = %v, want unavailable on lister error", snap.Status)
	}
}

func TestSnapshotEveryCycle(t *testing.T) {
	lister := &fakeLister{backends: []Backend{playing("mpd", "same track")}}
	m := NewMonitor(lister, zerolog.Nop())

	m.Poll(context.Background())
	m.Poll(context.Background())

	if m.Latest() == nil {
		t.Fatal("latest snapshot not published")
	}

	// both unchanged cycles still produced events
	for i := 0; i < 2; i++ {
		select {
		case <-m.Events():
		default:
			t.Fatalf("missing event for cycle %d", i)
		}
	}
}

func TestSeekDetection(t *testing.T) {
	base := time.Now()
	trk := &track.Info{Title: "song", Artist: "artist"}
	backend := &fakeBackend{
		name: "mpd",
		snap: Snapshot{Track: trk, PositionMs: 10_000, Status: StatusPlaying, SampledAt: base},
	}
	m := NewMonitor(&fakeLister{backends: []Backend{backend}}, zerolog.Nop())

	m.Poll(context.Background())

	// one second later the position advanced one second: no seek
	backend.snap.PositionMs = 11_000
	backend.snap.SampledAt = base.Add(time.Second)
	snap := m.Poll(context.Background())
	if snap.Seeked {
		t.Error("normal advancement flagged as seek")
	}

	// a jump far beyond elapsed time is a seek
	backend.snap.PositionMs = 60_000
	backend.snap.SampledAt = base.Add(2 * time.Second)
	snap = m.Poll(context.Background())
	if !snap.Seeked {
		t.Error("position jump not flagged as seek")
	}

	// track change resets the baseline instead of flagging a seek
	backend.snap.Track = &track.Info{Title: "next song", Artist: "artist"}
	backend.snap.PositionMs = 0
	backend.snap.SampledAt = base.Add(3 * time.Second)
	snap = m.Poll(context.Background())
	if snap.Seeked {
		t.Error("track change flagged as seek")
	}
}

func TestSeekDetectionFrozenWhilePaused(t *testing.T) {
	base := time.Now()
	trk := &track.Info{Title: "song", Artist: "artist"}
	backend := &fakeBackend{
		name: "mpd",
		snap: Snapshot{Track: trk, PositionMs: 10_000, Status: StatusPaused, SampledAt: base},
	}
	m := NewMonitor(&fakeLister{backends: []Backend{backend}}, zerolog.Nop())

	m.Poll(context.Background())

	// while paused the expected position stays put; a long wall-clock gap
	// with an unchanged position is not a seek
	backend.snap.SampledAt = base.Add(30 * time.Second)
	snap := m.Poll(context.Background())
	if snap.Seeked {
		t.Error("paused track flagged as seek")
	}
}
