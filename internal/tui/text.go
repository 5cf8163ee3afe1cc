package tui

// UI Text Constants
const (
	TextTitle = "📰 Top Stories"

	TextOfflineBanner = "Offline: showing cached articles"
	TextRefreshing    = "⟳ Refreshing..."
	TextEmpty         = "No articles yet. Press 'r' to refresh."

	TextNoHeadline = "(untitled)"
	TextNoByline   = ""
	TextNoAbstract = ""

	TextFooter = "r refresh | c clear cache | t toggle cache | ↑/↓ scroll | q quit"
)
