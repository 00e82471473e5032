package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/MadhavanR1204/toonzy/internal/api"
	"github.com/MadhavanR1204/toonzy/internal/config"
	"github.com/MadhavanR1204/toonzy/internal/render"
	"github.com/MadhavanR1204/toonzy/internal/ui/styles"
	"github.com/MadhavanR1204/toonzy/internal/ui/terminal"
	"github.com/MadhavanR1204/toonzy/internal/ui/views"
)

// Options holds what the App needs beyond the configuration
type Options struct {
	Client *api.Client
	Queue  *render.Queue
	Mode   terminal.TermImageMode
	Log    *zap.Logger

	// Chapter opens straight into the reader when positive
	Chapter int
}

// App is the main application model
type App struct {
	config *config.Config
	keys   KeyMap
	log    *zap.Logger

	// Current view state
	currentView views.ViewType

	// Window dimensions
	width  int
	height int

	// View models
	chaptersView *views.ChaptersView
	readerView   *views.ReaderView

	startChapter int

	// Error/status message
	err      error
	showHelp bool
}

// NewApp creates a new application instance
func NewApp(cfg *config.Config, opts Options) *App {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	styles.SetCurrentTheme(cfg.Theme)

	keys := DefaultKeyMap()
	app := &App{
		config:       cfg,
		keys:         keys,
		log:          log,
		currentView:  views.ViewChapters,
		width:        80,
		height:       24,
		startChapter: opts.Chapter,
	}

	var fetcher render.Fetcher
	if opts.Client != nil {
		fetcher = opts.Client
	}

	// Initialize views
	app.chaptersView = views.NewChaptersView(opts.Client, cfg)
	app.readerView = views.NewReaderView(views.ReaderConfig{
		Options: cfg.ReaderOptions(),
		Opener:  render.NewOpener(fetcher, log.Named("render")),
		Queue:   opts.Queue,
		Mode:    opts.Mode,
		Keys: views.ReaderKeys{
			NextPage:    keys.NextPage,
			PrevPage:    keys.PrevPage,
			NextChapter: keys.NextChapter,
			PrevChapter: keys.PrevChapter,
			Zoom:        keys.Zoom,
			Up:          keys.Up,
			Down:        keys.Down,
			PageUp:      keys.PageUp,
			PageDown:    keys.PageDown,
			Home:        keys.Home,
			End:         keys.End,
		},
		Log: log.Named("reader"),
	})

	return app
}

// Init implements tea.Model
func (a *App) Init() tea.Cmd {
	cmds := []tea.Cmd{
		a.chaptersView.Init(),
		tea.SetWindowTitle("toonzy"),
	}
	if a.startChapter > 0 {
		cmds = append(cmds, views.OpenChapter(a.startChapter, 0))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.chaptersView.SetSize(msg.Width, msg.Height)
		if a.currentView != views.ViewReader {
			a.readerView.SetSize(msg.Width, msg.Height)
			return a, nil
		}
		// The reader debounces the rescale itself

	case tea.KeyMsg:
		// Global key handling
		switch {
		case key.Matches(msg, a.keys.Quit):
			// In the reader, go back to the chapter list instead of quitting
			if a.currentView == views.ViewReader {
				return a.switchView(views.ViewChapters)
			}
			return a, tea.Quit

		case key.Matches(msg, a.keys.Help):
			a.showHelp = !a.showHelp
			return a, nil

		case key.Matches(msg, a.keys.Theme):
			name := styles.NextTheme()
			if err := a.config.SetTheme(name); err != nil {
				a.log.Warn("saving theme", zap.Error(err))
			}
			return a, nil

		case key.Matches(msg, a.keys.Escape):
			if a.showHelp {
				a.showHelp = false
				return a, nil
			}
			if a.currentView == views.ViewReader {
				return a.switchView(views.ViewChapters)
			}
		}

	case views.OpenChapterMsg:
		a.readerView.SetChapter(msg.Chapter, msg.Page)
		return a.switchView(views.ViewReader)

	case views.NavigateChapterMsg:
		// A late request from a reader that was already left
		if a.currentView != views.ViewReader {
			return a, nil
		}
		// Chapter navigation always starts a fresh session
		a.savePosition()
		a.readerView.SetChapter(msg.Chapter, 0)
		return a, a.readerView.Init()

	case views.CatalogLoadedMsg:
		if msg.Err == nil {
			a.readerView.SetCatalog(msg.Catalog)
		} else {
			a.log.Warn("loading catalog", zap.String("url", a.config.Catalog), zap.Error(msg.Err))
		}
		// The chapter list handles it too
		var cmd tea.Cmd
		_, cmd = a.chaptersView.Update(msg)
		return a, cmd

	case views.ErrorMsg:
		a.err = msg.Err
		return a, nil

	case views.ClearErrorMsg:
		a.err = nil
		return a, nil

	case views.SwitchViewMsg:
		return a.switchView(msg.View)
	}

	// Delegate to current view
	var cmd tea.Cmd
	switch a.currentView {
	case views.ViewChapters:
		_, cmd = a.chaptersView.Update(msg)
	case views.ViewReader:
		_, cmd = a.readerView.Update(msg)
	}
	return a, cmd
}

// View implements tea.Model
func (a *App) View() string {
	// Add help overlay if shown
	if a.showHelp {
		return a.renderHelp()
	}

	var content string
	switch a.currentView {
	case views.ViewChapters:
		content = a.chaptersView.View()
	case views.ViewReader:
		content = a.readerView.View()
	default:
		content = "Unknown view"
	}

	// Add error bar if there's an error
	if a.err != nil {
		errorBar := styles.ErrorStyle.Render("Error: " + a.err.Error())
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorBar)
	}
	return content
}

// switchView changes the current view and initializes it
func (a *App) switchView(view views.ViewType) (*App, tea.Cmd) {
	// Save position and release the document when leaving the reader
	if a.currentView == views.ViewReader && view != views.ViewReader {
		a.savePosition()
		terminal.ClearImagesCmd(a.readerView.GetTermMode())()
		a.readerView.Close()
	}

	a.currentView = view
	a.err = nil
	a.getCurrentView().SetSize(a.width, a.height)

	return a, a.getCurrentView().Init()
}

// savePosition records the reader position in the configuration
func (a *App) savePosition() {
	chapter, page, ok := a.readerView.Position()
	if !ok {
		return
	}
	if err := a.config.SetLastRead(chapter, page); err != nil {
		a.log.Warn("saving reading position", zap.Error(err))
	}
}

// Close releases the reader before the program exits
func (a *App) Close() {
	if a.currentView == views.ViewReader {
		a.savePosition()
	}
	a.readerView.Close()
}

// getCurrentView returns the current view model
func (a *App) getCurrentView() views.View {
	switch a.currentView {
	case views.ViewReader:
		return a.readerView
	default:
		return a.chaptersView
	}
}

// renderHelp renders the help overlay from the key map
func (a *App) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.DialogTitle.Render("Keyboard Shortcuts") + "\n")
	for _, section := range a.keys.helpSections() {
		b.WriteString("\n" + styles.HelpKey.Render(section.title) + "\n")
		for _, binding := range section.bindings {
			h := binding.Help()
			b.WriteString(fmt.Sprintf("  %-10s %s\n", h.Key, h.Desc))
		}
	}
	b.WriteString("\n" + styles.MutedText.Render("Mouse: wheel scrolls, swipe turns pages, double-click zooms"))

	help := styles.Dialog.Width(60).Render(b.String())

	// Center the help dialog
	return lipgloss.Place(
		a.width,
		a.height,
		lipgloss.Center,
		lipgloss.Center,
		help,
	)
}
