package provider

import (
	"context"
	"errors"

	"karolbroda.com/lyrsync/internal/track"
)

var (
	// ErrNotFound means the provider answered but has no lyrics for the
	// track. cacheable outcome, not a failure.
	ErrNotFound = errors.New("provider: lyrics not found")
	// ErrTimeout means the provider did not answer within the deadline.
	ErrTimeout = errors.New("provider: request timed out")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
func IsTimeout(err error) bool  { return errors.Is(err, ErrTimeout) }

// Gateway resolves a track identity to raw lyric text. the text may carry
// LRC timestamp tags or be plain; the timeline parser sorts that out.
type Gateway interface {
	Lookup(ctx context.Context, trk *track.Info) (string, error)
}
