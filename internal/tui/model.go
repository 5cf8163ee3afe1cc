// Package tui renders the article list as a Bubble Tea program driven by
// controller snapshots.
package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bilgisen/newsfeed/internal/models"
	"github.com/bilgisen/newsfeed/internal/syncer"
)

// Controller is the part of the sync controller the UI drives.
type Controller interface {
	Subscribe() (<-chan syncer.Snapshot, func())
	Refresh(ctx context.Context) error
	ClearCache(ctx context.Context) error
	SetCacheEnabled(ctx context.Context, enabled bool) error
}

// Model represents the TUI state. Everything shown comes from the latest
// snapshot; the model only adds scroll position and transient notices.
type Model struct {
	ctrl        Controller
	snapshots   <-chan syncer.Snapshot
	unsubscribe func()

	Snapshot syncer.Snapshot
	Offset   int
	Width    int
	Height   int
	Notice   string
	Err      error
	Quitting bool
}

// NewModel subscribes to ctrl and returns the initial model.
func NewModel(ctrl Controller) Model {
	snapshots, cancel := ctrl.Subscribe()
	return Model{
		ctrl:        ctrl,
		snapshots:   snapshots,
		unsubscribe: cancel,
	}
}

// Init implements tea.Model interface
func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.snapshots)
}

// bodyLines renders every article and splits the result into terminal lines.
func (m Model) bodyLines() []string {
	if len(m.Snapshot.Articles) == 0 {
		return []string{InfoStyle.Render(TextEmpty)}
	}

	width := 0
	if m.Width > 2 {
		width = m.Width - 2
	}

	blocks := make([]string, 0, len(m.Snapshot.Articles))
	for _, a := range m.Snapshot.Articles {
		blocks = append(blocks, renderArticle(a, width))
	}
	return strings.Split(strings.Join(blocks, "\n"), "\n")
}

// viewportHeight is the number of body lines that fit between header and footer.
// Without a known window size the whole body is shown.
func (m Model) viewportHeight(total int) int {
	if m.Height <= 0 {
		return total
	}
	h := m.Height - lipgloss.Height(m.header()) - 1 - lipgloss.Height(m.footer())
	return max(h, 1)
}

func (m Model) maxOffset() int {
	lines := m.bodyLines()
	return max(len(lines)-m.viewportHeight(len(lines)), 0)
}

func (m Model) clampOffset() Model {
	m.Offset = min(max(m.Offset, 0), m.maxOffset())
	return m
}

func renderArticle(a models.DisplayArticle, width int) string {
	var b strings.Builder
	b.WriteString(HeadlineStyle.Render(a.HeadlineText(TextNoHeadline)))

	if byline := a.BylineText(TextNoByline); byline != "" {
		b.WriteString("\n")
		b.WriteString(BylineStyle.Render(byline))
	}
	if abstract := a.AbstractText(TextNoAbstract); abstract != "" {
		b.WriteString("\n")
		b.WriteString(abstract)
	}
	if image := a.ImageText(""); image != "" {
		b.WriteString("\n")
		b.WriteString(InfoStyle.Render("🖼  " + image))
	}

	style := ArticleStyle
	if width > 0 {
		style = style.Width(width)
	}
	return style.Render(b.String())
}
