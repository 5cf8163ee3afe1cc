package tui

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bilgisen/newsfeed/internal/syncer"
)

// Update implements tea.Model interface
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		return m.clampOffset(), nil
	case SnapshotMsg:
		return m.handleSnapshot(msg)
	case ActionResultMsg:
		return m.handleActionResult(msg)
	case SubscriptionClosedMsg:
		m.Quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// handleKeyPress processes keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		if m.unsubscribe != nil {
			m.unsubscribe()
		}
		m.Quitting = true
		return m, tea.Quit
	case "r":
		m.Notice, m.Err = "", nil
		return m, refresh(m.ctrl)
	case "c":
		m.Notice, m.Err = "", nil
		return m, clearCache(m.ctrl)
	case "t":
		m.Notice, m.Err = "", nil
		return m, setCacheEnabled(m.ctrl, !m.Snapshot.CacheEnabled)
	case "up", "k":
		m.Offset--
	case "down", "j":
		m.Offset++
	case "pgup":
		m.Offset -= m.page()
	case "pgdown", " ":
		m.Offset += m.page()
	case "home", "g":
		m.Offset = 0
	case "end", "G":
		m.Offset = m.maxOffset()
	default:
		return m, nil
	}
	return m.clampOffset(), nil
}

func (m Model) page() int {
	lines := m.bodyLines()
	return m.viewportHeight(len(lines))
}

// handleSnapshot re-renders from scratch and waits for the next snapshot.
func (m Model) handleSnapshot(msg SnapshotMsg) (tea.Model, tea.Cmd) {
	m.Snapshot = msg.Snapshot
	return m.clampOffset(), waitForSnapshot(m.snapshots)
}

func (m Model) handleActionResult(msg ActionResultMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Err == nil:
		m.Err = nil
	case errors.Is(msg.Err, syncer.ErrOffline):
		m.Notice = "You're offline, refresh is unavailable"
	default:
		m.Err = msg.Err
	}
	return m, nil
}
