package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"karolbroda.com/lyrsync/internal/track"
)

const (
	mprisPrefix      = "org.mpris.MediaPlayer2."
	mprisPath        = "/org/mpris/MediaPlayer2"
	mprisPlayerIface = "org.mpris.MediaPlayer2.Player"
)

// MprisLister discovers MPRIS players on the session bus.
type MprisLister struct {
	bus *dbus.Conn
}

func NewMprisLister(bus *dbus.Conn) (*MprisLister, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	return &MprisLister{bus: bus}, nil
}

func (l *MprisLister) List(ctx context.Context) ([]Backend, error) {
	var names []string
	err := l.bus.BusObject().CallWithContext(ctx, "org.freedesktop.DBus.ListNames", 0).Store(&names)
	if err != nil {
		return nil, fmt.Errorf("failed to list dbus names: %w", err)
	}

	var backends []Backend
	for _, name := range names {
		if strings.HasPrefix(name, mprisPrefix) {
			backends = append(backends, &mprisBackend{bus: l.bus, service: name})
		}
	}

	return backends, nil
}

// Identity returns the human-readable name a player advertises, or "".
func (l *MprisLister) Identity(service string) string {
	obj := l.bus.Object(service, mprisPath)
	variant, err := obj.GetProperty("org.mpris.MediaPlayer2.Identity")
	if err != nil {
		return ""
	}
	identity, _ := variant.Value().(string)
	return identity
}

type mprisBackend struct {
	bus     *dbus.Conn
	service string
}

// Name returns the short player name, e.g. "spotify" for
// org.mpris.MediaPlayer2.spotify.
func (b *mprisBackend) Name() string {
	return strings.TrimPrefix(b.service, mprisPrefix)
}

func (b *mprisBackend) Snapshot(ctx context.Context) (Snapshot, error) {
	obj := b.bus.Object(b.service, mprisPath)
	now := time.Now()

	status, err := b.playbackStatus(obj)
	if err != nil {
		return Unavailable(now), err
	}

	trk, err := b.currentTrack(obj)
	if err != nil {
		return Unavailable(now), err
	}

	pos, err := b.currentPositionMs(obj)
	if err != nil {
		return Unavailable(now), err
	}

	return Snapshot{
		Track:      trk,
		PositionMs: pos,
		Status:     status,
		SampledAt:  now,
	}, nil
}

func (b *mprisBackend) playbackStatus(obj dbus.BusObject) (Status, error) {
	prop, err := obj.GetProperty(mprisPlayerIface + ".PlaybackStatus")
	if err != nil {
		return StatusUnavailable, fmt.Errorf("failed to get playback status: %w", err)
	}

	raw, ok := prop.Value().(string)
	if !ok {
		return StatusUnavailable, fmt.Errorf("unexpected playback status type %T", prop.Value())
	}

	switch raw {
	case "Playing":
		return StatusPlaying, nil
	case "Paused":
		return StatusPaused, nil
	default:
		return StatusStopped, nil
	}
}

func (b *mprisBackend) currentTrack(obj dbus.BusObject) (*track.Info, error) {
	prop, err := obj.GetProperty(mprisPlayerIface + ".Metadata")
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata property: %w", err)
	}

	value := prop.Value()
	if value == nil {
		return nil, errors.New("metadata value is nil")
	}

	metadata, ok := value.(map[string]dbus.Variant)
	if !ok {
		return nil, fmt.Errorf("unexpected metadata type %T", value)
	}

	info := &track.Info{
		Title:      extractString(metadata, "xesam:title"),
		Artist:     extractArtist(metadata, "xesam:artist"),
		Album:      extractString(metadata, "xesam:album"),
		DurationMs: extractDurationMs(metadata, "mpris:length"),
	}

	if !info.IsValid() {
		return nil, fmt.Errorf("missing title or artist in metadata (title=%q, artist=%q)", info.Title, info.Artist)
	}

	return info, nil
}

func (b *mprisBackend) currentPositionMs(obj dbus.BusObject) (int64, error) {
	prop, err := obj.GetProperty(mprisPlayerIface + ".Position")
	if err != nil {
		return 0, fmt.Errorf("failed to get position property: %w", err)
	}

	positionMicroseconds, ok := prop.Value().(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected position type %T", prop.Value())
	}
	if positionMicroseconds < 0 {
		return 0, nil
	}

	return positionMicroseconds / 1_000, nil
}

func extractString(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	text, ok := variant.Value().(string)
	if ok {
		return text
	}

	return ""
}

func extractArtist(metadata map[string]dbus.Variant, key string) string {
	variant, exists := metadata[key]
	if !exists {
		return ""
	}

	switch typed := variant.Value().(type) {
	case []string:
		if len(typed) > 0 {
			return typed[0]
		}
		return ""
	case string:
		return typed
	default:
		return ""
	}
}

func extractDurationMs(metadata map[string]dbus.Variant, key string) int64 {
	variant, exists := metadata[key]
	if !exists {
		return 0
	}

	switch typed := variant.Value().(type) {
	case int64:
		if typed <= 0 {
			return 0
		}
		return typed / 1_000
	case uint64:
		return int64(typed / 1_000)
	default:
		return 0
	}
}

// Watcher subscribes to MPRIS change signals so track changes and seeks
// are picked up ahead of the next poll tick.
type Watcher struct {
	bus        *dbus.Conn
	signalChan chan *dbus.Signal
	stopChan   chan struct{}
	stopOnce   sync.Once
	onChange   func()
}

func NewWatcher(bus *dbus.Conn, onChange func()) (*Watcher, error) {
	if bus == nil {
		return nil, errors.New("nil dbus connection")
	}
	if onChange == nil {
		return nil, errors.New("nil change callback")
	}
	return &Watcher{bus: bus, onChange: onChange}, nil
}

func (w *Watcher) Start() error {
	w.signalChan = make(chan *dbus.Signal, 10)
	w.stopChan = make(chan struct{})

	w.bus.Signal(w.signalChan)

	matchPropertiesChanged := fmt.Sprintf(
		"type='signal',interface='org.freedesktop.DBus.Properties',member='PropertiesChanged',path='%s'",
		mprisPath,
	)
	matchSeeked := fmt.Sprintf(
		"type='signal',interface='%s',member='Seeked',path='%s'",
		mprisPlayerIface, mprisPath,
	)

	err := w.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchPropertiesChanged).Err
	if err != nil {
		return fmt.Errorf("failed to add properties match: %w", err)
	}

	err = w.bus.BusObject().Call("org.freedesktop.DBus.AddMatch", 0, matchSeeked).Err
	if err != nil {
		return fmt.Errorf("failed to add seeked match: %w", err)
	}

	go w.signalLoop()

	return nil
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.stopChan != nil {
			close(w.stopChan)
		}
	})
}

func (w *Watcher) signalLoop() {
	for {
		select {
		case sig, ok := <-w.signalChan:
			if !ok {
				return
			}
			if sig == nil {
				continue
			}
			switch sig.Name {
			case "org.freedesktop.DBus.Properties.PropertiesChanged",
				"org.mpris.MediaPlayer2.Player.Seeked":
				w.onChange()
			}
		case <-w.stopChan:
			return
		}
	}
}
