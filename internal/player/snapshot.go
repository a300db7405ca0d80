package player

import (
	"context"
	"time"

	"karolbroda.com/lyrsync/internal/track"
)

type Status int

const (
	StatusPlaying Status = iota
	StatusPaused
	StatusStopped
	StatusUnavailable
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopped:
		return "stopped"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Snapshot is one observation of a player's state. immutable; each poll
// cycle produces a fresh one that supersedes the last.
type Snapshot struct {
	Track      *track.Info
	PositionMs int64
	Status     Status
	SampledAt  time.Time
	// Seeked marks a position discontinuity since the previous snapshot,
	// so consumers reset their extrapolation baseline instead of treating
	// the jump as drift.
	Seeked bool
}

// Unavailable builds the snapshot reported when no usable player exists.
func Unavailable(at time.Time) Snapshot {
	return Snapshot{Status: StatusUnavailable, SampledAt: at}
}

// Backend reads the current state of one concrete media player. the
// monitor depends only on this interface.
type Backend interface {
	Name() string
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Lister enumerates the media players currently running.
type Lister interface {
	List(ctx context.Context) ([]Backend, error)
}
