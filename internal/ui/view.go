package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"karolbroda.com/lyrsync/internal/player"
	"karolbroda.com/lyrsync/internal/sched"
)

var (
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6")).Bold(true)
	neighborStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	statusStyle   = lipgloss.NewStyle().Faint(true).Italic(true)
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	width := m.width
	height := m.height
	if width == 0 {
		width = 80
	}
	if height == 0 {
		height = 24
	}

	window := m.sched.Tick(time.Now())

	var lines []string
	if !m.hideHeader {
		lines = append(lines, m.renderHeader(width)...)
	}

	body := height - len(lines)
	switch window.State {
	case sched.StateIdle:
		lines = append(lines, centerBlock([]string{statusStyle.Render("awaiting music")}, width, body)...)
	case sched.StateLoading:
		text := "fetching lyrics"
		if m.fetchFailed {
			text = "lyrics unavailable, retrying on next track change"
		}
		lines = append(lines, centerBlock([]string{statusStyle.Render(text)}, width, body)...)
	case sched.StateNoLyrics:
		lines = append(lines, centerBlock([]string{statusStyle.Render("no lyrics found")}, width, body)...)
	default:
		lines = append(lines, m.renderLyrics(window, width, body)...)
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	if len(lines) > height {
		lines = lines[:height]
	}

	return strings.Join(lines, "\n")
}

func (m Model) renderHeader(width int) []string {
	snap := m.monitor.Latest()
	if snap == nil || snap.Track == nil {
		return []string{"", ""}
	}

	title := headerStyle.Render(snap.Track.String())
	header := centerText(title, lipgloss.Width(title), width)

	var detail string
	if snap.Status == player.StatusPlaying || snap.Status == player.StatusPaused {
		detail = fmt.Sprintf("%s  %s", formatMs(snap.PositionMs), snap.Status)
		if snap.Track.DurationMs > 0 {
			detail = fmt.Sprintf("%s / %s  %s", formatMs(snap.PositionMs), formatMs(snap.Track.DurationMs), snap.Status)
		}
		if m.offsetMs != 0 {
			detail += fmt.Sprintf("  offset %+dms", m.offsetMs)
		}
	}
	styled := statusStyle.Render(detail)

	return []string{"", header, centerText(styled, lipgloss.Width(styled), width), ""}
}

func (m Model) renderLyrics(window sched.Window, width, height int) []string {
	shown := window.Lines
	active := window.ActiveIndex

	// unsynced text can be longer than the screen; clamp around the top
	if len(shown) > height && height > 0 {
		shown = shown[:height]
	}

	rendered := make([]string, 0, len(shown))
	for i, line := range shown {
		var styled string
		switch {
		case i == active:
			styled = activeStyle.Render(" " + line + " ")
		case active >= 0 && (i == active-1 || i == active+1):
			styled = neighborStyle.Render(line)
		default:
			styled = dimStyle.Render(line)
		}
		rendered = append(rendered, centerText(styled, lipgloss.Width(styled), width))
	}

	// pad so the block sits vertically centered
	padding := (height - len(rendered)) / 2
	if padding < 0 {
		padding = 0
	}
	out := make([]string, 0, height)
	for i := 0; i < padding; i++ {
		out = append(out, "")
	}
	return append(out, rendered...)
}

func centerBlock(block []string, width, height int) []string {
	padding := (height - len(block)) / 2
	if padding < 0 {
		padding = 0
	}
	out := make([]string, 0, height)
	for i := 0; i < padding; i++ {
		out = append(out, "")
	}
	for _, line := range block {
		out = append(out, centerText(line, lipgloss.Width(line), width))
	}
	return out
}

func centerText(text string, textWidth, width int) string {
	if textWidth >= width {
		return text
	}
	return strings.Repeat(" ", (width-textWidth)/2) + text
}

func formatMs(ms int64) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
