package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
)

// MaxLines is how many recent events the view keeps.
const MaxLines = 200

// EventMsg carries one repository event into the model.
type EventMsg events.Event

// closedMsg reports that the event channel was closed.
type closedMsg struct{}

// WatchModel shows repository events as they happen.
type WatchModel struct {
	spinner spinner.Model
	root    string
	objects int
	mods    int
	source  <-chan events.Event
	lines   []events.Event
	counts  map[events.Type]int
	started time.Time
	width   int
	height  int
	closed  bool
}

// NewWatchModel creates a model reading from source. objects and mods are
// the counts shown in the header at start.
func NewWatchModel(root string, objects, mods int, source <-chan events.Event) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return WatchModel{
		spinner: s,
		root:    root,
		objects: objects,
		mods:    mods,
		source:  source,
		counts:  make(map[events.Type]int),
		started: time.Now(),
		width:   80,
		height:  24,
	}
}

// Init starts the spinner and the event reader.
func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.wait())
}

// wait reads the next event from the source.
func (m WatchModel) wait() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		ev, ok := <-source
		if !ok {
			return closedMsg{}
		}
		return EventMsg(ev)
	}
}

// Update handles messages.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "c":
			m.lines = nil
			return m, nil
		}
		return m, nil

	case EventMsg:
		ev := events.Event(msg)
		m.counts[ev.Type]++
		switch ev.Type {
		case events.Created:
			m.mods++
		case events.Deleted:
			m.mods--
		case events.FolderCreated:
			m.objects++
		}
		m.lines = append(m.lines, ev)
		if len(m.lines) > MaxLines {
			m.lines = m.lines[len(m.lines)-MaxLines:]
		}
		return m, m.wait()

	case closedMsg:
		m.closed = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the model.
func (m WatchModel) View() string {
	width := max(m.width-4, 40)

	var b strings.Builder
	b.WriteString(m.renderHeader(width))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")

	status := fmt.Sprintf("%s Watching %d objects, %d mods", m.spinner.View(), m.objects, m.mods)
	if m.closed {
		status = warningTextStyle.Render("Event stream closed")
	}
	b.WriteString(status)
	b.WriteString("\n\n")

	rows := max(m.height-8, 1)
	visible := m.lines
	if len(visible) > rows {
		visible = visible[len(visible)-rows:]
	}
	if len(visible) == 0 {
		b.WriteString(mutedTextStyle.Render("No changes yet"))
		b.WriteString("\n")
	}
	for _, ev := range visible {
		b.WriteString(formatEvent(ev))
		b.WriteString("\n")
	}

	return outerBoxStyle.Width(max(m.width-2, 20)).Render(b.String())
}

func (m WatchModel) renderHeader(width int) string {
	title := titleStyle.Render("modkeep watch") + "  " + mutedTextStyle.Render(m.root)
	hint := mutedTextStyle.Render("[c clear, q quit]")
	spacing := max(width-lipgloss.Width(title)-lipgloss.Width(hint), 1)
	return title + strings.Repeat(" ", spacing) + hint
}

// Count returns how many events of type t were seen.
func (m WatchModel) Count(t events.Type) int {
	return m.counts[t]
}

// Lines returns the retained events, oldest first.
func (m WatchModel) Lines() []events.Event {
	return m.lines
}

func formatEvent(ev events.Event) string {
	stamp := mutedTextStyle.Render(ev.Time.Format("15:04:05"))
	label := fmt.Sprintf("%-14s", ev.Type)
	switch ev.Type {
	case events.Created, events.Enabled, events.FolderCreated:
		label = successTextStyle.Render(label)
	case events.Deleted, events.FolderDeleted:
		label = errorTextStyle.Render(label)
	default:
		label = warningTextStyle.Render(label)
	}

	what := filepath.Base(ev.Path)
	if ev.OldPath != "" {
		what = filepath.Base(ev.OldPath) + " -> " + what
	}
	return fmt.Sprintf("%s  %s  %s  %s", stamp, label, ev.Object, what)
}
