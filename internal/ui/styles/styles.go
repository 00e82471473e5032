package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

var (
	// Colors
	Primary    = lipgloss.Color("#7C3AED") // Purple
	Secondary  = lipgloss.Color("#06B6D4") // Cyan
	Success    = lipgloss.Color("#10B981") // Green
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Background = lipgloss.Color("#1F2937") // Dark gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
	Border     = lipgloss.Color("#374151") // Gray border

	// Styles below are rebuilt by ApplyTheme

	TitleBar   lipgloss.Style
	Help       lipgloss.Style
	HelpKey    lipgloss.Style
	MutedText  lipgloss.Style
	ErrorStyle lipgloss.Style

	// Chapter list
	ListItem         lipgloss.Style
	ListItemSelected lipgloss.Style
	ListItemDimmed   lipgloss.Style
	LastReadBadge    lipgloss.Style

	// Reader
	ReaderHeader     lipgloss.Style
	ReaderProgress   lipgloss.Style
	PlaceholderTitle lipgloss.Style
	PlaceholderInfo  lipgloss.Style

	// Dialog/Modal styles
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style

	// Footer buttons
	Button         lipgloss.Style
	ButtonDisabled lipgloss.Style
)

// TruncateText shortens s to at most width cells, marking the cut with an
// ellipsis
func TruncateText(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}

