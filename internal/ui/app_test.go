package ui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadhavanR1204/toonzy/internal/api"
	"github.com/MadhavanR1204/toonzy/internal/config"
	"github.com/MadhavanR1204/toonzy/internal/render"
	"github.com/MadhavanR1204/toonzy/internal/ui/styles"
	"github.com/MadhavanR1204/toonzy/internal/ui/terminal"
	"github.com/MadhavanR1204/toonzy/internal/ui/views"
	"github.com/MadhavanR1204/toonzy/pkg/models"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestApp(t *testing.T) (*App, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	cfg.Source = filepath.Join(dir, "chapter-{chapter}.cbz")
	cfg.TotalChapters = 4

	queue := render.NewQueue(render.DefaultQueueOptions(), render.NewCache(time.Minute), nil)
	t.Cleanup(func() { _ = queue.Close() })

	app := NewApp(cfg, Options{
		Client: api.NewClient("", filepath.Join(dir, "cache")),
		Queue:  queue,
		Mode:   terminal.TermModeBlocks,
	})
	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	t.Cleanup(app.Close)
	return app, cfg
}

func TestAppOpensAndLeavesReader(t *testing.T) {
	app, cfg := newTestApp(t)
	assert.Equal(t, views.ViewChapters, app.currentView)
	assert.Contains(t, app.View(), "4 chapters")

	_, cmd := app.Update(views.OpenChapterMsg{Chapter: 2})
	assert.NotNil(t, cmd)
	assert.Equal(t, views.ViewReader, app.currentView)
	require.NotNil(t, app.readerView.Session())
	assert.Equal(t, 2, app.readerView.Session().Chapter())

	// Quit in the reader goes back to the list and records the position
	_, cmd = app.Update(runes("q"))
	assert.Nil(t, cmd)
	assert.Equal(t, views.ViewChapters, app.currentView)
	assert.Nil(t, app.readerView.Session())
	assert.Equal(t, 2, cfg.LastRead.Chapter)
	assert.Equal(t, 1, cfg.LastRead.Page)

	saved, err := config.Load(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, 2, saved.LastRead.Chapter)

	// Quit in the list exits
	_, cmd = app.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestAppNavigateChapter(t *testing.T) {
	app, cfg := newTestApp(t)
	app.Update(views.OpenChapterMsg{Chapter: 1})

	_, cmd := app.Update(views.NavigateChapterMsg{Chapter: 2})
	assert.NotNil(t, cmd)
	assert.Equal(t, views.ViewReader, app.currentView)
	assert.Equal(t, 2, app.readerView.Session().Chapter())
	assert.Equal(t, 1, cfg.LastRead.Chapter, "leaving a chapter saves its position")

	_, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, views.ViewChapters, app.currentView)
	assert.Equal(t, 2, cfg.LastRead.Chapter)
}

func TestAppIgnoresNavigateOutsideReader(t *testing.T) {
	app, cfg := newTestApp(t)
	app.Update(views.OpenChapterMsg{Chapter: 1})
	app.Update(runes("q"))
	require.Equal(t, views.ViewChapters, app.currentView)

	_, cmd := app.Update(views.NavigateChapterMsg{Chapter: 2})
	assert.Nil(t, cmd)
	assert.Equal(t, views.ViewChapters, app.currentView)
	assert.Nil(t, app.readerView.Session())
	assert.Equal(t, 1, cfg.LastRead.Chapter)
}

func TestAppStartChapter(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	app := NewApp(cfg, Options{Chapter: 3})
	t.Cleanup(app.Close)
	assert.NotNil(t, app.Init())
	assert.Equal(t, 3, app.startChapter)
}

func TestAppThemeCycle(t *testing.T) {
	app, cfg := newTestApp(t)
	t.Cleanup(func() { styles.SetCurrentTheme("dark") })

	before := styles.CurrentTheme().Name
	app.Update(runes("T"))
	after := styles.CurrentTheme().Name

	assert.NotEqual(t, before, after)
	assert.Equal(t, after, cfg.Theme)

	saved, err := config.Load(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, after, saved.Theme)
}

func TestAppHelpOverlay(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(runes("?"))
	require.True(t, app.showHelp)
	out := app.View()
	assert.Contains(t, out, "Keyboard Shortcuts")
	assert.Contains(t, out, "next chapter")

	app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, app.showHelp)
}

func TestAppCatalogReachesReader(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(views.CatalogLoadedMsg{Catalog: &models.Catalog{
		Title:    "Night Shift",
		Chapters: []models.Chapter{{Index: 1, Title: "The Lamp"}, {Index: 2}},
	}})
	assert.Contains(t, app.View(), "Night Shift")

	app.Update(views.OpenChapterMsg{Chapter: 1})
	assert.Contains(t, app.View(), "The Lamp")
}

func TestAppErrorBar(t *testing.T) {
	app, _ := newTestApp(t)

	app.Update(views.ErrorMsg{Err: assert.AnError})
	assert.Contains(t, app.View(), "Error: "+assert.AnError.Error())

	app.Update(views.ClearErrorMsg{})
	assert.NotContains(t, app.View(), "Error:")
}
