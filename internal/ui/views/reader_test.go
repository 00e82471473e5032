package views

import (
	"archive/zip"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MadhavanR1204/toonzy/internal/reader"
	"github.com/MadhavanR1204/toonzy/internal/render"
	"github.com/MadhavanR1204/toonzy/internal/ui/terminal"
	"github.com/MadhavanR1204/toonzy/pkg/models"
)

// writeChapter writes a CBZ of pages 400x1600 px images
func writeChapter(t *testing.T, path string, pages int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for i := 1; i <= pages; i++ {
		w, err := zw.Create(fmt.Sprintf("%03d.png", i))
		require.NoError(t, err)
		img := image.NewGray(image.Rect(0, 0, 400, 1600))
		for p := range img.Pix {
			img.Pix[p] = uint8(40 * i)
		}
		require.NoError(t, png.Encode(w, img))
	}
	require.NoError(t, zw.Close())
}

func testKeys() ReaderKeys {
	bind := func(keys ...string) key.Binding { return key.NewBinding(key.WithKeys(keys...)) }
	return ReaderKeys{
		NextPage:    bind("j"),
		PrevPage:    bind("k"),
		NextChapter: bind("n"),
		PrevChapter: bind("p"),
		Zoom:        bind("z"),
		Up:          bind("up"),
		Down:        bind("down"),
		PageUp:      bind("ctrl+u"),
		PageDown:    bind("ctrl+d"),
		Home:        bind("g"),
		End:         bind("G"),
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// newTestReader creates a reader over a temp dir where chapter 1 has three
// pages and the other chapters are missing
func newTestReader(t *testing.T) *ReaderView {
	t.Helper()
	dir := t.TempDir()
	writeChapter(t, filepath.Join(dir, "chapter-1.cbz"), 3)

	opts := reader.DefaultOptions()
	opts.TotalChapters = 3
	opts.SourcePattern = filepath.Join(dir, "chapter-{chapter}.cbz")

	queue := render.NewQueue(render.DefaultQueueOptions(), render.NewCache(time.Minute), nil)
	t.Cleanup(func() { _ = queue.Close() })

	v := NewReaderView(ReaderConfig{
		Options: opts,
		Opener:  render.NewOpener(nil, nil),
		Queue:   queue,
		Mode:    terminal.TermModeBlocks,
		Keys:    testKeys(),
	})
	v.SetSize(120, 42)
	t.Cleanup(v.Close)
	return v
}

// run executes cmd and feeds every resulting message back into the view
// until nothing is left. Messages meant for the app are returned.
func run(t *testing.T, v View, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var outbound []tea.Msg
	pending := []tea.Cmd{cmd}
	for steps := 0; len(pending) > 0; steps++ {
		require.Less(t, steps, 5000, "command loop did not settle")
		next := pending[0]
		pending = pending[1:]
		if next == nil {
			continue
		}

		switch msg := next().(type) {
		case nil, spinner.TickMsg:
		case tea.BatchMsg:
			pending = append(pending, msg...)
		case NavigateChapterMsg, OpenChapterMsg:
			outbound = append(outbound, msg)
		default:
			_, c := v.Update(msg)
			pending = append(pending, c)
		}
	}
	return outbound
}

func openChapter(t *testing.T, v *ReaderView, chapter int) []tea.Msg {
	t.Helper()
	v.SetChapter(chapter, 0)
	return run(t, v, v.Init())
}

func TestReaderLoadsChapter(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)

	s := v.Session()
	require.Equal(t, reader.StateReady, s.State())
	assert.Equal(t, 3, s.PageCount())
	assert.Equal(t, reader.Viewport{Width: 120, Height: 40}, s.Viewport())
	for _, surf := range s.Stack().Surfaces {
		assert.True(t, surf.Rendered, "page %d", surf.Page)
		_, ok := v.raster(surf.Page)
		assert.True(t, ok, "page %d", surf.Page)
	}

	out := v.View()
	assert.Contains(t, out, "Chapter 1")
	assert.Contains(t, out, "1/3")
	assert.Contains(t, out, "Page ›")

	// The encoded frame is reused while nothing changes
	frameKey := v.frameKey
	v.View()
	assert.Equal(t, frameKey, v.frameKey)
}

func TestReaderMissingChapterShowsPlaceholder(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 2)

	s := v.Session()
	assert.Equal(t, reader.StateFailed, s.State())

	out := v.View()
	assert.Contains(t, out, reader.PlaceholderTitle)
	assert.Contains(t, out, "Chapter 2 · Page 1")
	assert.Contains(t, out, "1/10")

	// Page navigation from a failed chapter moves to the next chapter
	msgs := run(t, v, func() tea.Msg { return keyMsg("j") })
	assert.Equal(t, []tea.Msg{NavigateChapterMsg{Chapter: 3}}, msgs)
}

func TestReaderNextPageScrollsSmoothly(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)

	run(t, v, func() tea.Msg { return keyMsg("j") })

	s := v.Session()
	assert.Equal(t, 2, s.CurrentPage())
	// Page 2 starts at row 101; the full profile keeps two rows above it
	assert.Equal(t, 99, s.ScrollTop())
	assert.False(t, v.scrolling)

	run(t, v, func() tea.Msg { return keyMsg("k") })
	assert.Equal(t, 1, s.CurrentPage())
	assert.Equal(t, 0, s.ScrollTop())
}

func TestReaderLastPageNavigatesToNextChapter(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)

	run(t, v, func() tea.Msg { return keyMsg("G") })
	s := v.Session()
	assert.Equal(t, s.MaxScroll(), s.ScrollTop())
	assert.Equal(t, 3, s.CurrentPage())

	msgs := run(t, v, func() tea.Msg { return keyMsg("j") })
	assert.Equal(t, []tea.Msg{NavigateChapterMsg{Chapter: 2}}, msgs)

	// No previous chapter from the first one
	msgs = run(t, v, func() tea.Msg { return keyMsg("p") })
	assert.Empty(t, msgs)
}

func TestReaderMouse(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)
	s := v.Session()

	t.Run("wheel scrolls", func(t *testing.T) {
		v.Update(tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
		assert.Equal(t, wheelRows, s.ScrollTop())
		v.Update(tea.MouseMsg{Button: tea.MouseButtonWheelUp, Action: tea.MouseActionPress})
		assert.Equal(t, 0, s.ScrollTop())
	})

	t.Run("footer button", func(t *testing.T) {
		var next footerButton
		for _, b := range v.footerButtons() {
			if b.element == reader.NextChapterButton {
				next = b
			}
		}
		require.Greater(t, next.x1, next.x0)

		msgs := run(t, v, func() tea.Msg {
			return tea.MouseMsg{X: next.x0, Y: 41, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress}
		})
		assert.Equal(t, []tea.Msg{NavigateChapterMsg{Chapter: 2}}, msgs)
	})

	t.Run("double click zooms", func(t *testing.T) {
		now := time.Unix(1700000000, 0)
		v.now = func() time.Time { return now }
		click := func() {
			v.Update(tea.MouseMsg{X: 60, Y: 5, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
			v.Update(tea.MouseMsg{X: 60, Y: 5, Action: tea.MouseActionRelease})
		}

		click()
		now = now.Add(100 * time.Millisecond)
		click()
		assert.Equal(t, 1, s.Zoom().Page)
		assert.Contains(t, v.renderHeader(), "[150%]")

		now = now.Add(time.Second)
		click()
		now = now.Add(100 * time.Millisecond)
		click()
		assert.False(t, s.Zoom().Active())
	})

	t.Run("swipe left turns the page", func(t *testing.T) {
		v.Update(tea.MouseMsg{X: 70, Y: 10, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
		run(t, v, func() tea.Msg {
			return tea.MouseMsg{X: 55, Y: 10, Action: tea.MouseActionRelease}
		})
		assert.Equal(t, 2, s.CurrentPage())
	})
}

func TestReaderResizeRebuildsAcrossClasses(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)
	s := v.Session()
	firstGen := s.Stack().Generation

	run(t, v, func() tea.Msg { return tea.WindowSizeMsg{Width: 80, Height: 42} })

	assert.Equal(t, reader.Compact, s.SizeClass())
	assert.Equal(t, 0.75, s.Scale())
	assert.Greater(t, s.Stack().Generation, firstGen)
	assert.Equal(t, 1, s.ActiveWatches())
	for _, surf := range s.Stack().Surfaces {
		assert.True(t, surf.Rendered, "page %d", surf.Page)
	}
	assert.Equal(t, s.Stack().Generation, v.rasterGen)
}

func TestReaderDropsStaleDocument(t *testing.T) {
	v := newTestReader(t)
	v.SetChapter(1, 0)

	var opened tea.Msg
	for _, effect := range v.Session().Start() {
		if load, ok := effect.(reader.Load); ok {
			opened = v.loadDocument(load)()
		}
	}
	require.IsType(t, documentOpenedMsg{}, opened)

	// The user moved on before the document arrived
	v.SetChapter(2, 0)
	v.Update(opened)
	assert.Equal(t, reader.StateLoading, v.Session().State())
	assert.Equal(t, 2, v.Session().Chapter())
	assert.Nil(t, v.doc)
}

func TestReaderResumesSavedPage(t *testing.T) {
	v := newTestReader(t)
	v.SetChapter(1, 3)
	run(t, v, v.Init())

	s := v.Session()
	assert.Equal(t, 3, s.CurrentPage())
	// Page 3 starts at row 202
	assert.Equal(t, 200, s.ScrollTop())

	chapter, page, ok := v.Position()
	assert.True(t, ok)
	assert.Equal(t, 1, chapter)
	assert.Equal(t, 3, page)
}

func TestReaderCatalogTitles(t *testing.T) {
	v := newTestReader(t)
	v.SetCatalog(&models.Catalog{
		Title: "Night Shift",
		Chapters: []models.Chapter{
			{Index: 1, Title: "The Lamp"},
			{Index: 2, Source: "missing.cbz"},
		},
	})
	assert.Equal(t, 2, v.opts.TotalChapters)

	openChapter(t, v, 1)
	header := v.renderHeader()
	assert.Contains(t, header, "Night Shift")
	assert.Contains(t, header, "The Lamp")

	assert.Equal(t, "missing.cbz", v.sourceFor(reader.Load{Chapter: 2, Path: "x.cbz"}))
	assert.Equal(t, "x.cbz", v.sourceFor(reader.Load{Chapter: 3, Path: "x.cbz"}))
}

func TestReaderFooterButtonsDisabledAtEnds(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)

	enabled := map[reader.Element]bool{}
	for _, b := range v.footerButtons() {
		enabled[b.element] = b.enabled
	}
	assert.False(t, enabled[reader.PrevChapterButton])
	assert.False(t, enabled[reader.PrevPageButton])
	assert.True(t, enabled[reader.NextPageButton])
	assert.True(t, enabled[reader.NextChapterButton])
	assert.True(t, strings.Contains(v.renderFooter(), "Chapter »"))
}

func TestReaderClose(t *testing.T) {
	v := newTestReader(t)
	openChapter(t, v, 1)
	v.Close()

	_, _, ok := v.Position()
	assert.False(t, ok)
	assert.Contains(t, v.View(), "No chapter open")

	// Late completions after Close are ignored
	_, cmd := v.Update(pageRenderedMsg{seq: v.seq - 1, page: 1, img: image.NewGray(image.Rect(0, 0, 1, 1))})
	assert.Nil(t, cmd)
	assert.Nil(t, v.rasters)
}
