package organisms

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dohr-michael/taskpilot/internal/channel"
)

// StatusInfo is what the status bar shows.
type StatusInfo struct {
	Connection channel.Status
	Composing  bool
	Pending    int
	Done       int
	LastSync   time.Time
	SyncError  string
	ConnError  string
	Focus      Focus
}

// InformationPanel displays the status bar.
type InformationPanel struct {
	info       StatusInfo
	width      int
	style      lipgloss.Style
	errorStyle lipgloss.Style
	now        func() time.Time
}

// NewInformationPanel creates a new status bar panel.
func NewInformationPanel(style, errorStyle lipgloss.Style) InformationPanel {
	return InformationPanel{
		style:      style,
		errorStyle: errorStyle,
		now:        time.Now,
	}
}

// SetInfo replaces the displayed state.
func (p *InformationPanel) SetInfo(info StatusInfo) { p.info = info }

// Info returns the displayed state.
func (p *InformationPanel) Info() StatusInfo { return p.info }

// SetWidth updates the rendering width.
func (p *InformationPanel) SetWidth(w int) { p.width = w }

// SetClock overrides the clock used for the "synced ago" label.
func (p *InformationPanel) SetClock(now func() time.Time) { p.now = now }

// View renders the status bar.
func (p InformationPanel) View() string {
	i := p.info

	parts := []string{string(i.Connection)}
	if i.Composing {
		parts = append(parts, "agent typing")
	}
	parts = append(parts, fmt.Sprintf("%d pending / %d done", i.Pending, i.Done))

	if !i.LastSync.IsZero() {
		parts = append(parts, "synced "+humanize.RelTime(i.LastSync, p.now(), "ago", "from now"))
	}

	bar := " " + strings.Join(parts, " | ")
	switch {
	case i.ConnError != "":
		bar += " | " + p.errorStyle.Render("connection: "+i.ConnError)
	case i.SyncError != "":
		bar += " | " + p.errorStyle.Render("sync: "+i.SyncError)
	}

	hint := "tab: tasks"
	if i.Focus == FocusTasks {
		hint = "space: toggle  r: refresh  tab: chat"
	}
	bar += " | " + hint + " "

	return p.style.Width(p.width).MaxWidth(p.width).Render(bar)
}
