package views

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/MadhavanR1204/toonzy/internal/reader"
	"github.com/MadhavanR1204/toonzy/internal/render"
	"github.com/MadhavanR1204/toonzy/internal/ui/styles"
	"github.com/MadhavanR1204/toonzy/internal/ui/terminal"
	"github.com/MadhavanR1204/toonzy/pkg/models"
)

const (
	headerRows = 1
	footerRows = 1

	wheelRows   = 3
	scrollFrame = 16 * time.Millisecond
)

// ReaderKeys are the bindings the reader responds to
type ReaderKeys struct {
	NextPage    key.Binding
	PrevPage    key.Binding
	NextChapter key.Binding
	PrevChapter key.Binding
	Zoom        key.Binding

	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
}

// ReaderConfig holds the collaborators of a ReaderView
type ReaderConfig struct {
	Options reader.Options
	Opener  *render.Opener
	Queue   *render.Queue
	Mode    terminal.TermImageMode
	Keys    ReaderKeys
	Log     *zap.Logger
}

// ReaderView displays one chapter as a continuous vertical strip of pages
type ReaderView struct {
	opts   reader.Options
	opener *render.Opener
	queue  *render.Queue
	keys   ReaderKeys
	log    *zap.Logger
	now    func() time.Time

	// Series info
	title    string
	chapters []models.Chapter

	// Current chapter
	session *reader.Session
	seq     uint64 // bumped when a session ends; stale messages are dropped
	doc     render.Document
	docKey  string
	resume  int

	// Rasters of the current stack generation
	rasters   map[int]image.Image
	rasterGen uint64

	// Smooth scrolling
	scrollTarget int
	scrolling    bool

	// Output
	termMode   terminal.TermImageMode
	compositor *terminal.Compositor
	renderer   *terminal.Renderer
	frame      string
	frameKey   string
	spinner    spinner.Model

	// Dimensions
	width  int
	height int
}

// NewReaderView creates a reader view
func NewReaderView(cfg ReaderConfig) *ReaderView {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot

	return &ReaderView{
		opts:       cfg.Options,
		opener:     cfg.Opener,
		queue:      cfg.Queue,
		keys:       cfg.Keys,
		log:        log,
		now:        time.Now,
		termMode:   cfg.Mode,
		compositor: terminal.NewCompositor(cfg.Options.CellWidth, cfg.Options.CellHeight),
		renderer:   terminal.NewRenderer(cfg.Mode),
		spinner:    s,
		width:      80,
		height:     24,
	}
}

// SetCatalog sets the series title and per-chapter sources. The chapter
// count replaces the configured total.
func (v *ReaderView) SetCatalog(catalog *models.Catalog) {
	if catalog == nil {
		return
	}
	v.title = catalog.Title
	v.chapters = catalog.Chapters
	if len(catalog.Chapters) > 0 {
		v.opts.TotalChapters = len(catalog.Chapters)
	}
}

// SetChapter replaces the session with a fresh one for chapter. A
// positive page is scrolled to once the document has loaded.
func (v *ReaderView) SetChapter(chapter, page int) {
	v.Close()

	v.session = reader.NewSession(chapter, v.viewport(), v.opts, reader.BindAll(), v.log)
	v.resume = page
	v.rasters = make(map[int]image.Image)
	v.rasterGen = 0
	v.scrolling = false
	v.frameKey = ""
	v.compositor.Reset()
}

// Session returns the current session, or nil
func (v *ReaderView) Session() *reader.Session {
	return v.session
}

// Position returns the chapter and page being read
func (v *ReaderView) Position() (chapter, page int, ok bool) {
	if v.session == nil {
		return 0, 0, false
	}
	return v.session.Chapter(), v.session.CurrentPage(), true
}

// Close ends the current session and releases its document
func (v *ReaderView) Close() {
	v.seq++
	if v.session != nil {
		v.session.Close()
		v.session = nil
	}
	if v.doc != nil {
		if err := v.doc.Close(); err != nil {
			v.log.Debug("closing chapter document", zap.Error(err))
		}
		v.doc = nil
	}
	v.docKey = ""
	v.rasters = nil
}

// GetTermMode returns the terminal image mode for cleanup purposes
func (v *ReaderView) GetTermMode() terminal.TermImageMode {
	return v.termMode
}

type (
	documentOpenedMsg struct {
		seq uint64
		doc render.Document
		key string
		err error
	}
	pageRenderedMsg struct {
		seq        uint64
		generation uint64
		page       int
		img        image.Image
		err        error
	}
	resizeSettledMsg struct {
		seq   uint64
		token uint64
	}
	scrollTickMsg struct {
		seq uint64
	}
)

// Init implements View
func (v *ReaderView) Init() tea.Cmd {
	if v.session == nil {
		return nil
	}
	return tea.Batch(v.spinner.Tick, v.apply(v.session.Start()))
}

// Update implements View
func (v *ReaderView) Update(msg tea.Msg) (View, tea.Cmd) {
	if opened, ok := msg.(documentOpenedMsg); ok {
		return v, v.handleDocumentOpened(opened)
	}
	if v.session == nil {
		return v, nil
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetSize(msg.Width, msg.Height)
		return v, v.resize()

	case resizeSettledMsg:
		if msg.seq != v.seq {
			return v, nil
		}
		return v, v.apply(v.session.Dispatch(reader.ResizeSettledEvent{Token: msg.token}))

	case pageRenderedMsg:
		v.handlePageRendered(msg)
		return v, nil

	case scrollTickMsg:
		if msg.seq != v.seq {
			return v, nil
		}
		return v, v.stepScroll()

	case spinner.TickMsg:
		if v.session.State() != reader.StateLoading {
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v, v.handleKeyMsg(msg)

	case tea.MouseMsg:
		return v, v.handleMouse(msg)
	}
	return v, nil
}

// apply carries out session effects
func (v *ReaderView) apply(effects []reader.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, effect := range effects {
		switch e := effect.(type) {
		case reader.Load:
			cmds = append(cmds, v.loadDocument(e))
		case reader.Render:
			cmds = append(cmds, v.renderPages(e.Requests))
		case reader.ScrollTo:
			cmds = append(cmds, v.scrollTo(e))
		case reader.Navigate:
			cmds = append(cmds, func() tea.Msg {
				return NavigateChapterMsg{Chapter: e.Chapter}
			})
		}
	}
	return tea.Batch(cmds...)
}

// sourceFor returns the document source for a load, preferring the
// catalog entry of the chapter
func (v *ReaderView) sourceFor(load reader.Load) string {
	for _, ch := range v.chapters {
		if ch.Index == load.Chapter && ch.Source != "" {
			return ch.Source
		}
	}
	return load.Path
}

// loadDocument opens the chapter document off the UI goroutine
func (v *ReaderView) loadDocument(load reader.Load) tea.Cmd {
	seq := v.seq
	source := v.sourceFor(load)
	opener := v.opener
	return func() tea.Msg {
		if opener == nil {
			return documentOpenedMsg{seq: seq, key: source, err: reader.ErrDocumentUnavailable}
		}
		doc, err := opener.Open(context.Background(), source)
		if err != nil {
			err = fmt.Errorf("%w: %w", reader.ErrDocumentUnavailable, err)
		}
		return documentOpenedMsg{seq: seq, doc: doc, key: source, err: err}
	}
}

func (v *ReaderView) handleDocumentOpened(msg documentOpenedMsg) tea.Cmd {
	if msg.seq != v.seq {
		// The session this was opened for is gone
		if msg.doc != nil {
			_ = msg.doc.Close()
		}
		return nil
	}
	if msg.err != nil {
		return v.apply(v.session.Dispatch(reader.DocumentFailedEvent{Err: msg.err}))
	}

	v.doc = msg.doc
	v.docKey = msg.key
	cmd := v.apply(v.session.Dispatch(reader.DocumentLoadedEvent{Source: msg.doc}))
	v.resumeAt(v.resume)
	v.resume = 0
	return cmd
}

// resumeAt scrolls straight to a saved page after load
func (v *ReaderView) resumeAt(page int) {
	surf := v.session.Stack().Surface(page)
	if page <= 1 || surf == nil {
		return
	}
	offset := v.opts.Profile(v.session.SizeClass()).HeaderOffset
	v.session.Dispatch(reader.ScrollEvent{Top: surf.Top - offset})
}

// renderPages submits render requests in ascending page order. Each job
// then completes independently as a pageRenderedMsg.
func (v *ReaderView) renderPages(requests []reader.RenderRequest) tea.Cmd {
	if len(requests) == 0 || v.doc == nil || v.queue == nil {
		return nil
	}
	seq, doc, docKey, queue := v.seq, v.doc, v.docKey, v.queue

	return func() tea.Msg {
		ctx := context.Background()
		waits := make([]tea.Cmd, 0, len(requests))
		for _, req := range requests {
			job := &render.Job{
				Doc:        doc,
				DocKey:     docKey,
				Generation: req.Generation,
				Page:       req.Page,
				Scale:      req.Scale,
			}
			result, err := queue.Submit(ctx, job)
			waits = append(waits, func() tea.Msg {
				if err == nil {
					err = result.Wait(ctx)
				}
				if err == nil {
					err = job.Err
				}
				return pageRenderedMsg{
					seq:        seq,
					generation: job.Generation,
					page:       job.Page,
					img:        job.Image,
					err:        err,
				}
			})
		}
		return tea.BatchMsg(waits)
	}
}

func (v *ReaderView) handlePageRendered(msg pageRenderedMsg) {
	if msg.seq != v.seq {
		return
	}
	v.session.Dispatch(reader.PageRenderedEvent{
		Generation: msg.generation,
		Page:       msg.page,
		Err:        msg.err,
	})

	st := v.session.Stack()
	if msg.err != nil || msg.img == nil || st == nil || st.Generation != msg.generation {
		return
	}
	if v.rasterGen != msg.generation {
		v.rasters = make(map[int]image.Image)
		v.rasterGen = msg.generation
	}
	v.rasters[msg.page] = msg.img
}

// raster looks up the rendered image of a page in the current stack
func (v *ReaderView) raster(page int) (image.Image, bool) {
	st := v.session.Stack()
	if st == nil || st.Generation != v.rasterGen {
		return nil, false
	}
	img, ok := v.rasters[page]
	return img, ok
}

// resize records the new viewport and schedules the debounced rescale
func (v *ReaderView) resize() tea.Cmd {
	token := v.session.Resize(v.viewport())
	seq := v.seq
	return tea.Tick(v.session.ResizeQuiet(), func(time.Time) tea.Msg {
		return resizeSettledMsg{seq: seq, token: token}
	})
}

// scrollBy moves the scroll area immediately, cancelling any animation
func (v *ReaderView) scrollBy(delta int) {
	v.scrolling = false
	v.session.Dispatch(reader.ScrollEvent{Top: v.session.ScrollTop() + delta})
}

func (v *ReaderView) scrollTo(e reader.ScrollTo) tea.Cmd {
	if !e.Smooth {
		v.scrolling = false
		v.session.Dispatch(reader.ScrollEvent{Top: e.Top})
		return nil
	}
	v.scrollTarget = e.Top
	if v.scrolling {
		return nil
	}
	v.scrolling = true
	return v.scrollTick()
}

func (v *ReaderView) scrollTick() tea.Cmd {
	seq := v.seq
	return tea.Tick(scrollFrame, func(time.Time) tea.Msg {
		return scrollTickMsg{seq: seq}
	})
}

// stepScroll advances the animation a third of the remaining distance
func (v *ReaderView) stepScroll() tea.Cmd {
	if !v.scrolling {
		return nil
	}
	top := v.session.ScrollTop()
	diff := v.scrollTarget - top
	if diff == 0 {
		v.scrolling = false
		return nil
	}

	step := diff / 3
	if step == 0 {
		step = diff / abs(diff)
	}
	v.session.Dispatch(reader.ScrollEvent{Top: top + step})
	if v.session.ScrollTop() == top {
		// Clamped at an end of the strip
		v.scrolling = false
		return nil
	}
	return v.scrollTick()
}

// handleKeyMsg processes key presses
func (v *ReaderView) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	k := v.keys
	switch {
	case key.Matches(msg, k.NextPage):
		return v.apply(v.session.Dispatch(reader.PageKeyEvent{Delta: 1}))
	case key.Matches(msg, k.PrevPage):
		return v.apply(v.session.Dispatch(reader.PageKeyEvent{Delta: -1}))
	case key.Matches(msg, k.NextChapter):
		return v.apply(v.session.Dispatch(reader.ChapterKeyEvent{Delta: 1}))
	case key.Matches(msg, k.PrevChapter):
		return v.apply(v.session.Dispatch(reader.ChapterKeyEvent{Delta: -1}))
	case key.Matches(msg, k.Zoom):
		v.session.Dispatch(reader.ZoomKeyEvent{})
	case key.Matches(msg, k.Down):
		v.scrollBy(1)
	case key.Matches(msg, k.Up):
		v.scrollBy(-1)
	case key.Matches(msg, k.PageDown):
		v.scrollBy(max(1, v.scrollHeight()/2))
	case key.Matches(msg, k.PageUp):
		v.scrollBy(-max(1, v.scrollHeight()/2))
	case key.Matches(msg, k.Home):
		v.scrollBy(-v.session.ScrollTop())
	case key.Matches(msg, k.End):
		v.scrollBy(v.session.MaxScroll() - v.session.ScrollTop())
	}
	return nil
}

// handleMouse turns wheel motion into scrolling, presses in the page area
// into pointer gestures and footer clicks into button presses
func (v *ReaderView) handleMouse(msg tea.MouseMsg) tea.Cmd {
	switch msg.Button {
	case tea.MouseButtonWheelDown:
		v.scrollBy(wheelRows)
		return nil
	case tea.MouseButtonWheelUp:
		v.scrollBy(-wheelRows)
		return nil
	}

	if msg.Button != tea.MouseButtonLeft && msg.Action != tea.MouseActionRelease {
		return nil
	}

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Y == v.height-footerRows {
			if b, ok := v.buttonAt(msg.X); ok {
				return v.apply(v.session.Dispatch(reader.ButtonEvent{Element: b.element}))
			}
			return nil
		}
		if v.inScrollArea(msg.Y) {
			v.session.Dispatch(reader.PointerDownEvent{At: v.pixel(msg.X, msg.Y)})
		}
	case tea.MouseActionRelease:
		return v.apply(v.session.Dispatch(reader.PointerUpEvent{
			At:   v.pixel(msg.X, msg.Y),
			Time: v.now(),
		}))
	}
	return nil
}

func (v *ReaderView) inScrollArea(y int) bool {
	return y >= headerRows && y < headerRows+v.scrollHeight()
}

// pixel converts a screen cell to a pixel position in the scroll area,
// taking the cell centre
func (v *ReaderView) pixel(x, y int) reader.Point {
	return reader.Point{
		X: (float64(x) + 0.5) * float64(v.opts.CellWidth),
		Y: (float64(y-headerRows) + 0.5) * float64(v.opts.CellHeight),
	}
}

func (v *ReaderView) scrollHeight() int {
	return max(1, v.height-headerRows-footerRows)
}

func (v *ReaderView) viewport() reader.Viewport {
	return reader.Viewport{Width: v.width, Height: v.scrollHeight()}
}

// View implements View
func (v *ReaderView) View() string {
	if v.session == nil {
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No chapter open"))
	}

	var b strings.Builder
	b.WriteString(v.renderHeader() + "\n")
	b.WriteString(v.renderBody())
	b.WriteString("\n")
	b.WriteString(v.renderFooter())
	return b.String()
}

// chapterTitle returns the display title of the current chapter
func (v *ReaderView) chapterTitle() string {
	chapter := v.session.Chapter()
	for _, ch := range v.chapters {
		if ch.Index == chapter {
			return ch.DisplayTitle()
		}
	}
	return models.Chapter{Index: chapter}.DisplayTitle()
}

// renderHeader renders the title and the page counter
func (v *ReaderView) renderHeader() string {
	title := v.chapterTitle()
	if v.title != "" {
		title = v.title + " · " + title
	}
	maxTitleWidth := max(10, v.width/2)
	titlePart := styles.ReaderHeader.Render(styles.TruncateText(title, maxTitleWidth))

	rightPart := ""
	current, hasCurrent := v.session.CurrentPageCounter()
	total, hasTotal := v.session.PageCountCounter()
	if hasCurrent && hasTotal && v.session.State() != reader.StateLoading {
		counter := fmt.Sprintf("%d/%d", current, total)
		if z := v.session.Zoom(); z.Active() {
			counter += fmt.Sprintf(" [%d%%]", int(z.Factor*100))
		}
		rightPart = styles.ReaderProgress.Render(counter)
	}

	gap := max(0, v.width-lipgloss.Width(titlePart)-lipgloss.Width(rightPart))
	return titlePart + strings.Repeat(" ", gap) + rightPart
}

// renderBody renders the scroll area
func (v *ReaderView) renderBody() string {
	height := v.scrollHeight()

	switch v.session.State() {
	case reader.StateLoading:
		label := fmt.Sprintf("%s Loading %s...", v.spinner.View(), v.chapterTitle())
		return lipgloss.Place(v.width, height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(label))

	case reader.StateFailed:
		lines := v.session.Placeholder()
		content := styles.PlaceholderTitle.Render(lines[0]) + "\n\n" +
			styles.PlaceholderInfo.Render(strings.Join(lines[1:], "\n"))
		return lipgloss.Place(v.width, height, lipgloss.Center, lipgloss.Center, content)
	}

	return v.renderFrame(height)
}

// renderFrame composes the visible surfaces and encodes them for the
// terminal. The encoded frame is reused until something visible changes.
func (v *ReaderView) renderFrame(height int) string {
	st := v.session.Stack()
	theme := styles.CurrentTheme()
	frameKey := fmt.Sprintf("%d/%d/%dx%d/%d/%+v/%s",
		st.Generation, v.session.ScrollTop(), v.width, height, len(v.rasters), v.session.Zoom(), theme.Name)
	if frameKey == v.frameKey {
		return v.frame
	}

	v.compositor.SetColors(theme.Backdrop, string(theme.Border))
	img := v.compositor.Compose(st, v.session.ScrollTop(), v.width, height, v.session.Zoom(), v.raster)
	out, err := v.renderer.Render(img, v.width, height)
	if err != nil {
		v.log.Warn("frame render failed", zap.Error(err))
		return lipgloss.Place(v.width, height, lipgloss.Center, lipgloss.Center,
			styles.ErrorStyle.Render("Render error: "+err.Error()))
	}

	v.frame = terminal.ClearFrame(v.termMode) + out
	v.frameKey = frameKey
	return v.frame
}

// footerButton is a clickable footer control
type footerButton struct {
	element reader.Element
	label   string
	enabled bool
	x0, x1  int // columns [x0, x1)
}

// footerButtons lays out the navigation buttons from the left edge
func (v *ReaderView) footerButtons() []footerButton {
	controls := v.session.Controls()
	current := v.session.CurrentPage()
	last := v.session.State() == reader.StateReady && current >= v.session.PageCount()
	first := current <= 1

	buttons := []footerButton{
		{element: reader.PrevChapterButton, label: "« Chapter", enabled: controls.PrevEnabled},
		{element: reader.PrevPageButton, label: "‹ Page", enabled: !first || controls.PrevEnabled},
		{element: reader.NextPageButton, label: "Page ›", enabled: !last || controls.NextEnabled},
		{element: reader.NextChapterButton, label: "Chapter »", enabled: controls.NextEnabled},
	}

	x := 0
	kept := buttons[:0]
	for _, b := range buttons {
		if !v.session.Bindings().Has(b.element) {
			continue
		}
		b.x0 = x
		b.x1 = x + lipgloss.Width(v.buttonStyle(b).Render(b.label))
		x = b.x1 + 1
		kept = append(kept, b)
	}
	return kept
}

func (v *ReaderView) buttonStyle(b footerButton) lipgloss.Style {
	if b.enabled {
		return styles.Button
	}
	return styles.ButtonDisabled
}

// buttonAt returns the footer button under a column
func (v *ReaderView) buttonAt(x int) (footerButton, bool) {
	for _, b := range v.footerButtons() {
		if x >= b.x0 && x < b.x1 {
			return b, true
		}
	}
	return footerButton{}, false
}

// renderFooter renders the navigation buttons and key help
func (v *ReaderView) renderFooter() string {
	var parts []string
	for _, b := range v.footerButtons() {
		parts = append(parts, v.buttonStyle(b).Render(b.label))
	}
	buttons := strings.Join(parts, " ")

	help := styles.HelpKey.Render("z") + styles.Help.Render(" zoom") + "  " +
		styles.HelpKey.Render("?") + styles.Help.Render(" help") + "  " +
		styles.HelpKey.Render("q") + styles.Help.Render(" back")

	gap := v.width - lipgloss.Width(buttons) - lipgloss.Width(help)
	if gap < 1 {
		return buttons
	}
	return buttons + strings.Repeat(" ", gap) + help
}

// SetSize implements View
func (v *ReaderView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
