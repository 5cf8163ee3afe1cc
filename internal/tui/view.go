package tui

import (
	"fmt"
	"strings"
)

// View implements tea.Model interface
func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	lines := m.bodyLines()
	height := m.viewportHeight(len(lines))
	start := min(m.Offset, len(lines))
	end := min(start+height, len(lines))

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n\n")
	b.WriteString(strings.Join(lines[start:end], "\n"))
	b.WriteString("\n")
	b.WriteString(m.footer())
	return b.String()
}

func (m Model) header() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(TextTitle))

	if m.Snapshot.OfflineBanner {
		b.WriteString("\n")
		b.WriteString(BannerStyle.Render(TextOfflineBanner))
	}

	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) statusLine() string {
	parts := make([]string, 0, 3)
	if m.Snapshot.Refreshing {
		parts = append(parts, StatusStyle.Render(TextRefreshing))
	}

	parts = append(parts, InfoStyle.Render(fmt.Sprintf("%d articles", len(m.Snapshot.Articles))))

	cache := "cache off"
	if m.Snapshot.CacheEnabled {
		cache = "cache on"
	}
	parts = append(parts, InfoStyle.Render(cache))

	return strings.Join(parts, InfoStyle.Render(" · "))
}

func (m Model) footer() string {
	var b strings.Builder
	switch {
	case m.Err != nil:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("❌ %v", m.Err)))
		b.WriteString("\n")
	case m.Notice != "":
		b.WriteString(StatusStyle.Render(m.Notice))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render(TextFooter))
	return b.String()
}
