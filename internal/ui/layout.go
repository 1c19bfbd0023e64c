package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/readonme/internal/theme"
)

// Layout manages the terminal layout dimensions.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	BannerHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout with the given terminal dimensions.
// HeaderHeight and StatusBarHeight default to 1.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// WithBanner reserves one line under the header for an alert.
func (l Layout) WithBanner(show bool) Layout {
	l.BannerHeight = 0
	if show {
		l.BannerHeight = 1
	}
	return l
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the height available for the main content area.
func (l Layout) ContentHeight() int {
	h := l.Height - l.HeaderHeight - l.BannerHeight - l.StatusBarHeight
	if h < 0 {
		return 0
	}
	return h
}

// RenderHeader renders the top bar with a title on the left and status on
// the right.
func (l Layout) RenderHeader(title string, status string) string {
	titleRendered := theme.HeaderStyle.Render(title)
	statusRendered := theme.HeaderStyle.Render(status)

	gap := max(l.Width-lipgloss.Width(titleRendered)-lipgloss.Width(statusRendered), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(theme.HeaderStyle.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, titleRendered, filler, statusRendered)
}

// RenderBanner renders a one-line alert spanning the full width.
func (l Layout) RenderBanner(title, message string) string {
	text := fmt.Sprintf("%s: %s", title, message)
	return theme.BannerStyle.Width(l.Width).MaxHeight(1).Render(text)
}

// RenderStatusBar renders the bottom bar. A non-empty errText replaces
// the hints.
func (l Layout) RenderStatusBar(hints, errText string) string {
	style := theme.StatusBarStyle
	text := hints
	if errText != "" {
		style = theme.ErrorBarStyle
		text = errText
	}
	return style.Width(l.Width).MaxHeight(1).Render(text)
}

// RenderWithFrame joins the non-empty parts top to bottom.
func (l Layout) RenderWithFrame(parts ...string) string {
	var rows []string
	for _, p := range parts {
		if p != "" {
			rows = append(rows, p)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

// RelativeTime returns a short human-friendly age of t.
func RelativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw ago", int(d.Hours()/24/7))
	}
}
