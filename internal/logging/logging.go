package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Setup opens the append-only error log and builds the root logger writing
// to it. the caller closes the file on shutdown. an empty path selects the
// default location under the user state directory.
func Setup(path string) (zerolog.Logger, *os.File, error) {
	if path == "" {
		var err error
		path, err = defaultPath()
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("failed to resolve log path: %w", err)
		}
	}

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(f).With().Timestamp().Logger()

	return logger, f, nil
}

func defaultPath() (string, error) {
	if stateHome := os.Getenv("XDG_STATE_HOME"); stateHome != "" {
		return filepath.Join(stateHome, "lyrsync", "lyrsync.log"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".local", "state", "lyrsync", "lyrsync.log"), nil
}

// Dedup suppresses repeated log events so the render loop cannot flood the
// log with the same failure every tick. an occurrence is logged again only
// after it has been quiet for the suppression window.
type Dedup struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
	now    func() time.Time
}

func NewDedup(window time.Duration) *Dedup {
	if window <= 0 {
		window = time.Minute
	}
	return &Dedup{
		window: window,
		seen:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Once reports whether the event identified by key should be logged now.
func (d *Dedup) Once(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	last, exists := d.seen[key]
	if exists && now.Sub(last) < d.window {
		return false
	}

	d.seen[key] = now

	// drop stale keys so the map stays bounded
	if len(d.seen) > 256 {
		for k, ts := range d.seen {
			if now.Sub(ts) >= d.window {
				delete(d.seen, k)
			}
		}
	}

	return true
}
