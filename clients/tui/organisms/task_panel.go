package organisms

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/dohr-michael/taskpilot/clients/tui/atoms"
	"github.com/dohr-michael/taskpilot/internal/tasks"
)

// TaskPanelStyles contains the styles injected into the TaskPanel.
type TaskPanelStyles struct {
	Title   lipgloss.Style
	Cursor  lipgloss.Style
	Done    lipgloss.Style
	Muted   lipgloss.Style
	Overdue lipgloss.Style
	High    lipgloss.Style
	Medium  lipgloss.Style
	Low     lipgloss.Style
}

// TaskPanel lists the cached tasks with a selection cursor.
type TaskPanel struct {
	tasks   []tasks.Task
	loaded  bool
	cursor  int
	offset  int
	focused bool
	width   int
	height  int
	styles  TaskPanelStyles
	now     func() time.Time
}

// NewTaskPanel creates an empty task list.
func NewTaskPanel(width, height int, styles TaskPanelStyles) TaskPanel {
	return TaskPanel{
		width:  width,
		height: height,
		styles: styles,
		now:    time.Now,
	}
}

// SetClock overrides the clock used for due-date labels.
func (p *TaskPanel) SetClock(now func() time.Time) { p.now = now }

// SetTasks replaces the list. The cursor stays on the same task when it is
// still present.
func (p *TaskPanel) SetTasks(list []tasks.Task, loaded bool) {
	var selected tasks.ID
	if t, ok := p.Selected(); ok {
		selected = t.ID
	}

	p.tasks = list
	p.loaded = loaded

	p.cursor = min(p.cursor, max(len(list)-1, 0))
	for i, t := range list {
		if t.ID == selected {
			p.cursor = i
			break
		}
	}
	p.clampOffset()
}

// Selected returns the task under the cursor.
func (p *TaskPanel) Selected() (tasks.Task, bool) {
	if p.cursor < 0 || p.cursor >= len(p.tasks) {
		return tasks.Task{}, false
	}
	return p.tasks[p.cursor], true
}

// MoveUp moves the cursor one row up.
func (p *TaskPanel) MoveUp() {
	if p.cursor > 0 {
		p.cursor--
		p.clampOffset()
	}
}

// MoveDown moves the cursor one row down.
func (p *TaskPanel) MoveDown() {
	if p.cursor < len(p.tasks)-1 {
		p.cursor++
		p.clampOffset()
	}
}

// SetFocused toggles the cursor highlight.
func (p *TaskPanel) SetFocused(focused bool) { p.focused = focused }

// SetSize updates the panel dimensions.
func (p *TaskPanel) SetSize(w, h int) {
	p.width = w
	p.height = h
	p.clampOffset()
}

// visibleRows leaves one line for the header.
func (p *TaskPanel) visibleRows() int {
	return max(p.height-1, 1)
}

func (p *TaskPanel) clampOffset() {
	rows := p.visibleRows()
	if p.cursor < p.offset {
		p.offset = p.cursor
	}
	if p.cursor >= p.offset+rows {
		p.offset = p.cursor - rows + 1
	}
	p.offset = max(p.offset, 0)
}

// View renders the header and the visible rows.
func (p TaskPanel) View() string {
	pending := 0
	for _, t := range p.tasks {
		if !t.Done() {
			pending++
		}
	}
	header := p.styles.Title.Render(fmt.Sprintf("Tasks (%d open)", pending))

	var lines []string
	lines = append(lines, header)

	switch {
	case !p.loaded:
		lines = append(lines, p.styles.Muted.Render("Loading tasks…"))
	case len(p.tasks) == 0:
		lines = append(lines, p.styles.Muted.Render("No tasks yet. Ask the agent to add one."))
	default:
		end := min(p.offset+p.visibleRows(), len(p.tasks))
		for i := p.offset; i < end; i++ {
			lines = append(lines, p.row(i))
		}
	}

	return lipgloss.NewStyle().Width(p.width).MaxHeight(p.height).Render(strings.Join(lines, "\n"))
}

func (p TaskPanel) row(i int) string {
	t := p.tasks[i]

	pointer := "  "
	if i == p.cursor && p.focused {
		pointer = p.styles.Cursor.Render("> ")
	}

	check := "[ ]"
	title := t.Title
	if t.Done() {
		check = "[x]"
		title = p.styles.Done.Render(title)
	}

	parts := []string{pointer + check, title}
	if badge := atoms.Badge(t.Priority, p.priorityStyle(t.Priority)); badge != "" {
		parts = append(parts, badge)
	}
	if t.DueDate != nil {
		label, overdue := DueLabel(*t.DueDate, p.now())
		if overdue && !t.Done() {
			parts = append(parts, p.styles.Overdue.Render(label))
		} else {
			parts = append(parts, p.styles.Muted.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (p TaskPanel) priorityStyle(priority string) lipgloss.Style {
	switch priority {
	case tasks.PriorityHigh:
		return p.styles.High
	case tasks.PriorityLow:
		return p.styles.Low
	default:
		return p.styles.Medium
	}
}

// DueLabel describes a due date relative to now's calendar day, e.g. "today",
// "tomorrow" or "3 days overdue".
func DueLabel(due tasks.Date, now time.Time) (string, bool) {
	today := tasks.DateOf(now).Time(time.UTC)
	d := due.Time(time.UTC)

	switch days := int(d.Sub(today).Hours() / 24); {
	case days == 0:
		return "due today", false
	case days == 1:
		return "due tomorrow", false
	case days < 0:
		return humanize.RelTime(d, today, "overdue", "left"), true
	}
	return "due in " + strings.TrimSpace(humanize.RelTime(today, d, "", "")), false
}
