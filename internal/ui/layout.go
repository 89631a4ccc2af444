package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	appsync "github.com/nhle/ticketboard/internal/sync"
	"github.com/nhle/ticketboard/internal/theme"
)

// Layout splits the terminal into a header row, the board area and a
// status bar row.
type Layout struct {
	Width           int
	Height          int
	HeaderHeight    int
	StatusBarHeight int
}

// NewLayout creates a Layout for a terminal of the given size.
func NewLayout(width, height int) Layout {
	return Layout{
		Width:           width,
		Height:          height,
		HeaderHeight:    1,
		StatusBarHeight: 1,
	}
}

// ContentWidth returns the width of the board area.
func (l Layout) ContentWidth() int {
	return max(l.Width, 0)
}

// ContentHeight returns the rows left for the board once the header and
// status bar are drawn.
func (l Layout) ContentHeight() int {
	return max(l.Height-l.HeaderHeight-l.StatusBarHeight, 0)
}

// Header is what the top bar says about the board.
type Header struct {
	// Source names the ticket store.
	Source string

	// Origin is where the board was loaded from. Empty until the first
	// load completes.
	Origin string

	Tasks int
	Sync  string
}

// Title returns the left side of the header.
func (h Header) Title() string {
	title := "Ticketboard"
	if h.Source != "" {
		title += " · " + h.Source
	}
	if h.Origin != "" {
		title += " " + theme.OriginStyle(h.Origin).Render("["+h.Origin+"]")
	}
	return title
}

// Summary returns the right side of the header.
func (h Header) Summary() string {
	if h.Origin == "" {
		return h.Sync
	}
	noun := "tasks"
	if h.Tasks == 1 {
		noun = "task"
	}
	return fmt.Sprintf("%d %s · %s", h.Tasks, noun, h.Sync)
}

// SyncLabel describes the refresh state. pending counts ticket API
// writes still in flight; status is nil when there is no poller.
func SyncLabel(pending int, status *appsync.SyncStatus) string {
	if pending > 0 {
		return "saving..."
	}
	if status == nil {
		return "manual refresh"
	}
	switch status.State {
	case appsync.SyncRunning:
		return "syncing"
	case appsync.SyncError:
		return "⚠ unreachable"
	}
	if status.LastSync.IsZero() {
		return "idle"
	}
	return "synced " + status.LastSync.Format("15:04:05")
}

// RenderHeader renders the top bar.
func (l Layout) RenderHeader(h Header) string {
	return l.bar(theme.HeaderStyle,
		theme.HeaderStyle.Render(h.Title()),
		theme.HeaderStyle.Render(h.Summary()))
}

// RenderStatusBar renders the bottom bar. A drag in progress switches it
// to the drag colours so the drop feedback stands out from key hints.
func (l Layout) RenderStatusBar(text string, dragging bool) string {
	style := theme.StatusBarStyle
	if dragging {
		style = theme.DragStatusBarStyle
	}
	return l.bar(style, style.Render(text), "")
}

// bar pads left and right apart to the full width with the style's
// background.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	gap := max(l.Width-lipgloss.Width(left)-lipgloss.Width(right), 0)
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, filler, right)
}

// RenderWithFrame stacks the header, board area and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}
