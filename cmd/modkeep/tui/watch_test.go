package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jamesainslie/modkeep/pkg/modkeep/events"
)

func TestNewWatchModel(t *testing.T) {
	m := NewWatchModel("/mods", 2, 5, nil)

	if m.root != "/mods" {
		t.Errorf("expected root '/mods', got %s", m.root)
	}
	if m.objects != 2 || m.mods != 5 {
		t.Errorf("expected 2 objects and 5 mods, got %d and %d", m.objects, m.mods)
	}
	if len(m.Lines()) != 0 {
		t.Error("expected no lines initially")
	}
}

func TestWatchModelEvents(t *testing.T) {
	m := NewWatchModel("/mods", 1, 0, nil)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	updated, cmd := m.Update(EventMsg{Type: events.Created, Object: "Alice", Path: "/mods/Alice/Hat", Time: now})
	if cmd == nil {
		t.Error("expected a command to wait for the next event")
	}
	m = updated.(WatchModel)

	updated, _ = m.Update(EventMsg{Type: events.Renamed, Object: "Alice", Path: "/mods/Alice/Cap", OldPath: "/mods/Alice/Hat", Time: now})
	m = updated.(WatchModel)

	if m.mods != 1 {
		t.Errorf("expected 1 mod, got %d", m.mods)
	}
	if m.Count(events.Created) != 1 || m.Count(events.Renamed) != 1 {
		t.Errorf("unexpected counts: %v", m.counts)
	}
	if len(m.Lines()) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(m.Lines()))
	}

	view := m.View()
	if !strings.Contains(view, "Hat -> Cap") {
		t.Errorf("expected rename in view, got:\n%s", view)
	}
	if !strings.Contains(view, "12:00:00") {
		t.Error("expected event time in view")
	}
}

func TestWatchModelLineLimit(t *testing.T) {
	m := NewWatchModel("/mods", 1, 0, nil)
	for i := 0; i < MaxLines+10; i++ {
		updated, _ := m.Update(EventMsg{Type: events.Disabled, Object: "Alice", Path: "/mods/Alice/DISABLED_Hat"})
		m = updated.(WatchModel)
	}
	if len(m.Lines()) != MaxLines {
		t.Errorf("expected %d lines, got %d", MaxLines, len(m.Lines()))
	}
}

func TestWatchModelKeys(t *testing.T) {
	m := NewWatchModel("/mods", 1, 0, nil)
	updated, _ := m.Update(EventMsg{Type: events.Enabled})
	m = updated.(WatchModel)

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	m = updated.(WatchModel)
	if len(m.Lines()) != 0 {
		t.Error("expected lines cleared")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestWatchModelReadsSource(t *testing.T) {
	source := make(chan events.Event, 1)
	m := NewWatchModel("/mods", 1, 0, source)

	source <- events.Event{Type: events.Deleted, Object: "Alice"}
	msg := m.wait()()
	ev, ok := msg.(EventMsg)
	if !ok || ev.Type != events.Deleted {
		t.Fatalf("expected deleted event, got %#v", msg)
	}

	close(source)
	if _, ok := m.wait()().(closedMsg); !ok {
		t.Error("expected closedMsg after close")
	}

	updated, _ := m.Update(closedMsg{})
	if !strings.Contains(updated.(WatchModel).View(), "closed") {
		t.Error("expected closed notice in view")
	}
}

func TestWindowSize(t *testing.T) {
	m := NewWatchModel("/mods", 1, 0, nil)
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = updated.(WatchModel)
	if m.width != 120 || m.height != 40 {
		t.Errorf("expected 120x40, got %dx%d", m.width, m.height)
	}
}
