package player

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultPollInterval paces the sampling loop
	DefaultPollInterval = time.Second
	// seekTolerance is how far the reported position may drift from the
	// extrapolated one before it counts as a seek
	seekTolerance = 3 * time.Second
)

// Monitor samples whichever player is currently relevant and publishes one
// snapshot per cycle, even when nothing changed. a pinned player name binds
// exclusively to that player; otherwise the first playing player wins,
// ordered by the priority list and then by name, and the selection sticks
// until that player stops while another is playing.
type Monitor struct {
	lister   Lister
	pinned   string
	priority []string
	interval time.Duration
	log      zerolog.Logger

	mu       sync.Mutex
	selected string
	last     *Snapshot
	now      func() time.Time

	latest atomic.Pointer[Snapshot]
	events chan Snapshot
	kick   chan struct{}
}

type MonitorOption func(*Monitor)

// WithPinned binds the monitor exclusively to the named player.
func WithPinned(name string) MonitorOption {
	return func(m *Monitor) { m.pinned = name }
}

// WithPriority orders automatic selection among concurrently playing players.
func WithPriority(names []string) MonitorOption {
	return func(m *Monitor) { m.priority = names }
}

func WithInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

func NewMonitor(lister Lister, log zerolog.Logger, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		lister:   lister,
		interval: DefaultPollInterval,
		log:      log.With().Str("component", "player").Logger(),
		now:      time.Now,
		events:   make(chan Snapshot, 16),
		kick:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Latest returns the most recently published snapshot, or nil before the
// first poll completes.
func (m *Monitor) Latest() *Snapshot {
	return m.latest.Load()
}

// Events yields one snapshot per poll cycle, in publish order. sends are
// dropped when the buffer is full, so a slow consumer sees a lagging view;
// Latest always holds the newest snapshot.
func (m *Monitor) Events() <-chan Snapshot {
	return m.events
}

// Kick requests an immediate poll, used by the dbus signal watcher.
func (m *Monitor) Kick() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Run polls until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Poll(ctx)
		case <-m.kick:
			m.Poll(ctx)
		}
	}
}

// Poll performs one sampling cycle and publishes the resulting snapshot.
func (m *Monitor) Poll(ctx context.Context) Snapshot {
	snap := m.sample(ctx)

	m.mu.Lock()
	prev := m.last
	if snap.Status != StatusUnavailable && prev != nil && prev.Track.Same(snap.Track) {
		snap.Seeked = m.detectSeek(prev, &snap)
	}
	m.last = &snap
	m.mu.Unlock()

	m.publish(snap)
	return snap
}

func (m *Monitor) sample(ctx context.Context) Snapshot {
	backends, err := m.lister.List(ctx)
	if err != nil {
		m.log.Warn().Err(err).Msg("failed to list players")
		return Unavailable(m.now())
	}

	if m.pinned != "" {
		return m.samplePinned(ctx, backends)
	}
	return m.sampleAuto(ctx, backends)
}

// samplePinned binds to the configured player only, with no fallback.
func (m *Monitor) samplePinned(ctx context.Context, backends []Backend) Snapshot {
	for _, b := range backends {
		if b.Name() != m.pinned {
			continue
		}
		snap, err := b.Snapshot(ctx)
		if err != nil {
			m.log.Warn().Err(err).Str("player", m.pinned).Msg("failed to sample pinned player")
			return Unavailable(m.now())
		}
		return snap
	}
	return Unavailable(m.now())
}

func (m *Monitor) sampleAuto(ctx context.Context, backends []Backend) Snapshot {
	if len(backends) == 0 {
		m.clearSelection()
		return Unavailable(m.now())
	}

	sort.SliceStable(backends, func(i, j int) bool {
		ri, rj := m.rank(backends[i].Name()), m.rank(backends[j].Name())
		if ri != rj {
			return ri < rj
		}
		return backends[i].Name() < backends[j].Name()
	})

	m.mu.Lock()
	selected := m.selected
	m.mu.Unlock()

	var (
		current, firstPlay, first *Snapshot
		firstPlayName, firstName  string
	)

	for _, b := range backends {
		snap, err := b.Snapshot(ctx)
		if err != nil {
			continue
		}

		if first == nil {
			s := snap
			first, firstName = &s, b.Name()
		}
		if firstPlay == nil && snap.Status == StatusPlaying {
			s := snap
			firstPlay, firstPlayName = &s, b.Name()
		}
		if b.Name() == selected {
			s := snap
			current = &s
		}
	}

	// selection is sticky while the selected player keeps playing
	if current != nil && current.Status == StatusPlaying {
		return *current
	}
	if firstPlay != nil {
		m.setSelection(firstPlayName)
		return *firstPlay
	}
	// nothing is playing: stay with the previous player if it is still
	// around, otherwise report the best candidate
	if current != nil {
		return *current
	}
	if first != nil {
		m.setSelection(firstName)
		return *first
	}

	m.clearSelection()
	return Unavailable(m.now())
}

func (m *Monitor) rank(name string) int {
	for i, p := range m.priority {
		if name == p {
			return i
		}
	}
	return len(m.priority)
}

func (m *Monitor) setSelection(name string) {
	m.mu.Lock()
	if m.selected != name {
		m.log.Info().Str("player", name).Msg("selected player")
		m.selected = name
	}
	m.mu.Unlock()
}

func (m *Monitor) clearSelection() {
	m.mu.Lock()
	m.selected = ""
	m.mu.Unlock()
}

// detectSeek compares the reported position against what elapsed real time
// predicts from the previous snapshot.
func (m *Monitor) detectSeek(prev, next *Snapshot) bool {
	expected := prev.PositionMs
	if prev.Status == StatusPlaying {
		expected += next.SampledAt.Sub(prev.SampledAt).Milliseconds()
	}

	diff := next.PositionMs - expected
	if diff < 0 {
		diff = -diff
	}

	return diff > seekTolerance.Milliseconds()
}

func (m *Monitor) publish(snap Snapshot) {
	s := snap
	m.latest.Store(&s)

	select {
	case m.events <- snap:
	default:
	}
}
