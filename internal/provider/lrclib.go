package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"karolbroda.com/lyrsync/internal/track"
)

const (
	DefaultBaseURL = "https://lrclib.net"

	getPath    = "/api/get"
	searchPath = "/api/search"
	userAgent  = "lyrsync/1.0"
)

type lrclibResponse struct {
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

// Lrclib looks lyrics up on an lrclib.net compatible server: a direct
// /api/get by track fields first, then a /api/search fallback.
type Lrclib struct {
	baseURL string
	client  *http.Client
}

func NewLrclib(baseURL string, timeout time.Duration) (*Lrclib, error) {
	if baseURL == "" {
		return nil, errors.New("lrclib base url is empty")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   2 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     60 * time.Second,
		TLSHandshakeTimeout: 2 * time.Second,
	}

	return &Lrclib{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
		},
	}, nil
}

func (l *Lrclib) Lookup(ctx context.Context, trk *track.Info) (string, error) {
	if !trk.IsValid() {
		return "", errors.New("track title or artist is empty")
	}

	artist := normalizeField(trk.Artist)
	title := normalizeField(trk.Title)

	payload, err := l.get(ctx, artist, title, trk.Album, trk.DurationMs)
	if err == nil {
		return pickLyrics(payload)
	}
	if !IsNotFound(err) {
		return "", err
	}

	// exact get missed; fall back to a free-text search, then retry with
	// version suffixes like "(remastered)" stripped
	queries := []string{
		artist + " " + title,
		normalizeField(stripVersionInfo(trk.Artist)) + " " + normalizeField(stripVersionInfo(trk.Title)),
	}

	var lastErr error
	for i, q := range queries {
		if i > 0 && q == queries[0] {
			continue
		}

		payload, err := l.search(ctx, q)
		if err == nil {
			return pickLyrics(payload)
		}
		lastErr = err
		if !IsNotFound(err) {
			break
		}
	}

	if lastErr != nil {
		return "", lastErr
	}
	return "", ErrNotFound
}

func (l *Lrclib) get(ctx context.Context, artist, title, album string, durationMs int64) (*lrclibResponse, error) {
	query := url.Values{}
	query.Set("artist_name", artist)
	query.Set("track_name", title)
	if album != "" {
		query.Set("album_name", album)
	}
	if durationMs > 0 {
		query.Set("duration", fmt.Sprintf("%d", durationMs/1000))
	}

	var payload lrclibResponse
	err := l.doRequest(ctx, getPath, query, &payload)
	if err != nil {
		return nil, err
	}
	return &payload, nil
}

func (l *Lrclib) search(ctx context.Context, q string) (*lrclibResponse, error) {
	query := url.Values{}
	query.Set("q", q)

	var results []lrclibResponse
	err := l.doRequest(ctx, searchPath, query, &results)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}
	return &results[0], nil
}

func (l *Lrclib) doRequest(ctx context.Context, path string, query url.Values, out any) error {
	requestURL := l.baseURL + path + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read lrclib response: %w", err)
	}

	err = json.Unmarshal(body, out)
	if err != nil {
		return fmt.Errorf("failed to decode lrclib json: %w", err)
	}

	return nil
}

// pickLyrics prefers synced over plain. a found track without any lyric
// text is returned as an empty payload, which the parser turns into the
// "no lyrics" timeline, so it still gets cached.
func pickLyrics(payload *lrclibResponse) (string, error) {
	if payload == nil {
		return "", ErrNotFound
	}
	if payload.SyncedLyrics != "" {
		return payload.SyncedLyrics, nil
	}
	return payload.PlainLyrics, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}

// normalizeField collapses runs of whitespace
func normalizeField(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo removes text in parentheses and brackets (remixes,
// remasters, feat. credits)
func stripVersionInfo(s string) string {
	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if start < 0 || end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}
	return strings.TrimSpace(s)
}
