package views

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/MadhavanR1204/toonzy/internal/api"
	"github.com/MadhavanR1204/toonzy/internal/config"
	"github.com/MadhavanR1204/toonzy/internal/ui/styles"
	"github.com/MadhavanR1204/toonzy/pkg/models"
)

// CatalogLoadedMsg carries the remote chapter catalog
type CatalogLoadedMsg struct {
	Catalog *models.Catalog
	Err     error
}

// ChaptersView lists the chapters of the series
type ChaptersView struct {
	client *api.Client
	config *config.Config

	// Chapters
	title    string
	chapters []models.Chapter
	cursor   int
	offset   int // For scrolling

	// State
	loaded  bool // catalog fetched
	loading bool
	err     error
	spinner spinner.Model

	// Dimensions
	width  int
	height int
}

// NewChaptersView creates a new chapter list view
func NewChaptersView(client *api.Client, cfg *config.Config) *ChaptersView {
	s := spinner.New()
	s.Spinner = spinner.Dot

	v := &ChaptersView{
		client:  client,
		config:  cfg,
		spinner: s,
		width:   80,
		height:  24,
	}
	v.setChapters(numberedChapters(cfg.TotalChapters))

	// Start on the chapter last read
	if last := cfg.LastRead.Chapter; last >= 1 && last <= len(v.chapters) {
		v.cursor = last - 1
	}
	return v
}

// numberedChapters returns untitled chapters 1..n
func numberedChapters(n int) []models.Chapter {
	chapters := make([]models.Chapter, n)
	for i := range chapters {
		chapters[i] = models.Chapter{Index: i + 1}
	}
	return chapters
}

func (v *ChaptersView) setChapters(chapters []models.Chapter) {
	v.chapters = chapters
	if v.cursor >= len(v.chapters) {
		v.cursor = max(0, len(v.chapters)-1)
	}
	v.updateOffset()
}

// SetCatalog replaces the numbered chapters with the catalog entries
func (v *ChaptersView) SetCatalog(catalog *models.Catalog) {
	v.loading = false
	if catalog == nil {
		return
	}
	v.loaded = true
	v.title = catalog.Title
	if len(catalog.Chapters) > 0 {
		v.setChapters(catalog.Chapters)
	}
}

// Init implements View
func (v *ChaptersView) Init() tea.Cmd {
	if v.config.Catalog == "" || v.loaded {
		return nil
	}
	v.loading = true
	return tea.Batch(v.spinner.Tick, v.loadCatalog())
}

// loadCatalog fetches the chapter catalog
func (v *ChaptersView) loadCatalog() tea.Cmd {
	client, url := v.client, v.config.Catalog
	return func() tea.Msg {
		catalog, err := client.Catalog(context.Background(), url)
		return CatalogLoadedMsg{Catalog: catalog, Err: err}
	}
}

// Update implements View
func (v *ChaptersView) Update(msg tea.Msg) (View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "j", "down":
			v.moveCursor(1)
		case "k", "up":
			v.moveCursor(-1)
		case "g", "home":
			v.cursor = 0
			v.offset = 0
		case "G", "end":
			v.cursor = len(v.chapters) - 1
			v.updateOffset()
		case "ctrl+d", "pgdown":
			v.moveCursor(v.visibleLines() / 2)
		case "ctrl+u", "pgup":
			v.moveCursor(-v.visibleLines() / 2)
		case "enter":
			if len(v.chapters) > 0 && v.cursor < len(v.chapters) {
				chapter := v.chapters[v.cursor].Index
				page := 0
				if chapter == v.config.LastRead.Chapter {
					page = v.config.LastRead.Page
				}
				return v, OpenChapter(chapter, page)
			}
		case "c":
			// Continue where the last session stopped
			if last := v.config.LastRead; last.Chapter > 0 {
				return v, OpenChapter(last.Chapter, last.Page)
			}
		case "r":
			if v.config.Catalog != "" {
				v.loaded = false
				return v, v.Init()
			}
		}

	case CatalogLoadedMsg:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.SetCatalog(msg.Catalog)

	case spinner.TickMsg:
		if !v.loading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd
	}

	return v, nil
}

// View implements View
func (v *ChaptersView) View() string {
	var b strings.Builder

	// Header
	b.WriteString(v.renderHeader() + "\n")

	contentHeight := v.visibleLines()
	switch {
	case v.loading:
		b.WriteString(lipgloss.Place(v.width, contentHeight, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(v.spinner.View()+" Loading chapters...")))
	case v.err != nil:
		b.WriteString(lipgloss.Place(v.width, contentHeight, lipgloss.Center, lipgloss.Center,
			styles.ErrorStyle.Render("Error: "+v.err.Error())))
	case len(v.chapters) == 0:
		b.WriteString(lipgloss.Place(v.width, contentHeight, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No chapters")))
	default:
		end := min(v.offset+contentHeight, len(v.chapters))
		lines := make([]string, 0, contentHeight)
		for i := v.offset; i < end; i++ {
			lines = append(lines, v.renderChapterLine(v.chapters[i], i == v.cursor))
		}
		for len(lines) < contentHeight {
			lines = append(lines, "")
		}
		b.WriteString(strings.Join(lines, "\n"))
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(v.renderFooter())

	return b.String()
}

// SetSize implements View
func (v *ChaptersView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.updateOffset()
}

// renderHeader renders the header bar
func (v *ChaptersView) renderHeader() string {
	titleText := " toonzy "
	if v.title != "" {
		titleText = " " + styles.TruncateText(v.title, max(10, v.width/2)) + " "
	}
	title := styles.TitleBar.Render(titleText)

	info := fmt.Sprintf(" %d chapters ", len(v.chapters))
	if last := v.config.LastRead; last.Chapter > 0 && !last.UpdatedAt.IsZero() {
		info = fmt.Sprintf(" %d chapters · read %s ", len(v.chapters), humanize.Time(last.UpdatedAt))
	}
	countInfo := styles.Help.Render(info)
	gap := max(0, v.width-lipgloss.Width(title)-lipgloss.Width(countInfo))
	return title + strings.Repeat(" ", gap) + countInfo
}

// renderChapterLine renders a single chapter entry
func (v *ChaptersView) renderChapterLine(ch models.Chapter, selected bool) string {
	badge := ""
	last := v.config.LastRead
	if ch.Index == last.Chapter {
		badge = " " + styles.LastReadBadge.Render(fmt.Sprintf("p.%d", max(1, last.Page)))
	}

	number := fmt.Sprintf("%3d  ", ch.Index)
	maxWidth := v.width - 4 - lipgloss.Width(number) - lipgloss.Width(badge)
	line := number + styles.TruncateText(ch.DisplayTitle(), maxWidth) + badge

	if selected {
		return styles.ListItemSelected.Width(v.width).Render("▸ " + line)
	}
	if last.Chapter > 0 && ch.Index < last.Chapter {
		return styles.ListItemDimmed.Render("  " + line)
	}
	return styles.ListItem.Render("  " + line)
}

// renderFooter renders the footer help
func (v *ChaptersView) renderFooter() string {
	help := []string{
		styles.HelpKey.Render("j/k") + styles.Help.Render(" nav"),
		styles.HelpKey.Render("enter") + styles.Help.Render(" read"),
	}
	if v.config.LastRead.Chapter > 0 {
		help = append(help, styles.HelpKey.Render("c")+styles.Help.Render(" continue"))
	}
	if v.config.Catalog != "" {
		help = append(help, styles.HelpKey.Render("r")+styles.Help.Render(" refresh"))
	}
	help = append(help, styles.HelpKey.Render("q")+styles.Help.Render(" quit"))

	// Add theme indicator
	themeName := styles.CurrentTheme().Name
	themeIndicator := styles.MutedText.Render(" [Theme: "+themeName+"] ") + styles.HelpKey.Render("T") + styles.Help.Render(" change")

	helpText := strings.Join(help, "  ")
	gap := max(0, v.width-lipgloss.Width(helpText)-lipgloss.Width(themeIndicator))
	return helpText + strings.Repeat(" ", gap) + themeIndicator
}

// Selected returns the chapter under the cursor
func (v *ChaptersView) Selected() (models.Chapter, bool) {
	if v.cursor < 0 || v.cursor >= len(v.chapters) {
		return models.Chapter{}, false
	}
	return v.chapters[v.cursor], true
}

func (v *ChaptersView) moveCursor(delta int) {
	v.cursor += delta
	if v.cursor < 0 {
		v.cursor = 0
	}
	if v.cursor >= len(v.chapters) {
		v.cursor = len(v.chapters) - 1
	}
	v.updateOffset()
}

// updateOffset keeps the cursor inside the visible window
func (v *ChaptersView) updateOffset() {
	visible := v.visibleLines()
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
	v.offset = max(0, v.offset)
}

// visibleLines returns the number of list rows between header and footer
func (v *ChaptersView) visibleLines() int {
	return max(1, v.height-2)
}
