package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"karolbroda.com/lyrsync/internal/cache"
	"karolbroda.com/lyrsync/internal/logging"
	"karolbroda.com/lyrsync/internal/player"
	"karolbroda.com/lyrsync/internal/sched"
	"karolbroda.com/lyrsync/internal/timeline"
	"karolbroda.com/lyrsync/internal/track"
)

type TickMsg time.Time

type SnapshotMsg player.Snapshot

type TimelineMsg struct {
	Timeline *timeline.Timeline
	Track    *track.Info
	Err      error
}

type Model struct {
	monitor *player.Monitor
	cache   *cache.Cache
	sched   *sched.Scheduler
	log     zerolog.Logger
	dedup   *logging.Dedup

	renderEvery time.Duration
	hideHeader  bool
	offsetMs    int64
	fetchFailed bool
	width       int
	height      int
	quitting    bool
}

type ModelConfig struct {
	Monitor        *player.Monitor
	Cache          *cache.Cache
	Scheduler      *sched.Scheduler
	Log            zerolog.Logger
	RenderInterval time.Duration
	HideHeader     bool
}

func NewModel(cfg ModelConfig) Model {
	renderEvery := cfg.RenderInterval
	if renderEvery <= 0 {
		renderEvery = 100 * time.Millisecond
	}
	return Model{
		monitor:     cfg.Monitor,
		cache:       cfg.Cache,
		sched:       cfg.Scheduler,
		log:         cfg.Log.With().Str("component", "ui").Logger(),
		dedup:       logging.NewDedup(time.Minute),
		renderEvery: renderEvery,
		hideHeader:  cfg.HideHeader,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.tickCmd(), m.listenForSnapshots())
}

func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.renderEvery, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) listenForSnapshots() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.monitor.Events()
		if !ok {
			return nil
		}
		return SnapshotMsg(snap)
	}
}

// fetchTimelineCmd resolves the track's timeline off the render loop. the
// cache coalesces concurrent calls, so firing one per track change is safe.
func (m Model) fetchTimelineCmd(trk *track.Info) tea.Cmd {
	return func() tea.Msg {
		tl, err := m.cache.GetOrFetch(context.Background(), trk)
		return TimelineMsg{Timeline: tl, Track: trk, Err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case SnapshotMsg:
		return m.handleSnapshot(player.Snapshot(msg))

	case TimelineMsg:
		return m.handleTimeline(msg)

	case TickMsg:
		return m, m.tickCmd()
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k", "+", "=":
		m.offsetMs = m.sched.NudgeOffset(100)
		return m, nil

	case "down", "j", "-":
		m.offsetMs = m.sched.NudgeOffset(-100)
		return m, nil

	case "right", "l":
		m.offsetMs = m.sched.NudgeOffset(500)
		return m, nil

	case "left", "h":
		m.offsetMs = m.sched.NudgeOffset(-500)
		return m, nil

	case "0":
		m.offsetMs = m.sched.NudgeOffset(0)
		return m, nil

	case "r":
		// force a refetch for the current track
		if trk := m.sched.Track(); trk != nil {
			m.cache.Invalidate(trk)
			m.fetchFailed = false
			return m, m.fetchTimelineCmd(trk)
		}
		return m, nil

	case "tab", "i":
		m.hideHeader = !m.hideHeader
		return m, nil
	}

	return m, nil
}

func (m Model) handleSnapshot(snap player.Snapshot) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{m.listenForSnapshots()}

	if snap.Status == player.StatusUnavailable {
		if m.dedup.Once("player:unavailable") {
			m.log.Warn().Msg("no usable player")
		}
	}

	trackChanged := m.sched.Observe(snap)
	if trackChanged && snap.Track.IsValid() {
		m.fetchFailed = false
		cmds = append(cmds, m.fetchTimelineCmd(snap.Track))
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleTimeline(msg TimelineMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.fetchFailed = true
		if m.dedup.Once("fetch:" + msg.Track.Key()) {
			m.log.Error().Err(msg.Err).Str("track", msg.Track.String()).Msg("lyrics fetch failed")
		}
		return m, nil
	}

	// adoption is refused when the track moved on mid-fetch; the result
	// stays cached for the next visit
	m.sched.Adopt(msg.Timeline)
	return m, nil
}
