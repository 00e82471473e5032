// Package reader implements the continuous-scroll chapter reader: page
// surface layout, current-page tracking, page and chapter navigation,
// resize rescaling, swipe and double-tap zoom. It has no terminal or I/O
// dependency; a host view feeds it events and carries out its effects.
package reader

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Viewport is the scroll area size in terminal cells
type Viewport struct {
	Width  int
	Height int
}

// State is the load state of a session
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
)

// String returns a human-readable name for the state
func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PlaceholderTitle is shown when the chapter document is unavailable
const PlaceholderTitle = "Comic Preview Not Available"

// Session is the state of one chapter being read. It must only be used
// from a single goroutine (the host's event loop).
type Session struct {
	opts     Options
	log      *zap.Logger
	bindings Bindings
	controls ChapterControls

	chapter   int
	path      string
	state     State
	pageCount int
	current   int

	viewport  Viewport
	pendingVP Viewport
	class     SizeClass
	scrollTop int

	source     PageSource
	stack      *Stack
	generation uint64
	watch      *Watch
	watches    int

	debounce *Debouncer
	pointer  pointerTracker
	zoom     Zoom
}

// NewSession creates a session for a chapter. Out-of-range chapters are
// clamped; the session never fails to construct.
func NewSession(chapter int, vp Viewport, opts Options, bindings Bindings, log *zap.Logger) *Session {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	if clamped := clampChapter(chapter, opts.TotalChapters); clamped != chapter {
		log.Warn("chapter out of range",
			zap.Int("requested", chapter),
			zap.Int("chapter", clamped),
			zap.Int("total", opts.TotalChapters))
		chapter = clamped
	}

	s := &Session{
		opts:     opts,
		log:      log.With(zap.Int("chapter", chapter)),
		bindings: bindings,
		controls: ChapterControls{
			PrevEnabled: chapter > 1,
			NextEnabled: chapter < opts.TotalChapters,
		},
		chapter:   chapter,
		path:      DocumentPath(opts.SourcePattern, chapter),
		state:     StateLoading,
		current:   1,
		viewport:  vp,
		pendingVP: vp,
		class:     opts.Classify(vp.Width),
		debounce:  NewDebouncer(opts.ResizeQuiet),
		pointer:   pointerTracker{swipe: opts.Swipe, tap: opts.DoubleTap},
	}
	return s
}

// Accessors

func (s *Session) Chapter() int               { return s.chapter }
func (s *Session) TotalChapters() int         { return s.opts.TotalChapters }
func (s *Session) Path() string               { return s.path }
func (s *Session) State() State               { return s.state }
func (s *Session) PageCount() int             { return s.pageCount }
func (s *Session) CurrentPage() int           { return s.current }
func (s *Session) SizeClass() SizeClass       { return s.class }
func (s *Session) Scale() float64             { return s.opts.Profile(s.class).Scale }
func (s *Session) Stack() *Stack              { return s.stack }
func (s *Session) ScrollTop() int             { return s.scrollTop }
func (s *Session) Viewport() Viewport         { return s.viewport }
func (s *Session) Controls() ChapterControls  { return s.controls }
func (s *Session) Bindings() Bindings         { return s.bindings }
func (s *Session) Zoom() Zoom                 { return s.zoom }
func (s *Session) Options() Options           { return s.opts }
func (s *Session) ResizeQuiet() time.Duration { return s.debounce.Quiet() }

// ActiveWatches returns the number of connected visibility watches
func (s *Session) ActiveWatches() int { return s.watches }

// CurrentPageCounter returns the value for the current-page display
func (s *Session) CurrentPageCounter() (int, bool) {
	return s.current, s.bindings.Has(CurrentPageDisplay)
}

// PageCountCounter returns the value for the page-count display. A failed
// session reports the fallback count.
func (s *Session) PageCountCounter() (int, bool) {
	n := s.pageCount
	if s.state == StateFailed {
		n = s.opts.FallbackPageCount
	}
	return n, s.bindings.Has(PageCountDisplay)
}

// Placeholder returns the text shown instead of pages after a load failure
func (s *Session) Placeholder() []string {
	return []string{
		PlaceholderTitle,
		fmt.Sprintf("Chapter %d · Page %d", s.chapter, s.current),
	}
}

// MaxScroll returns the largest valid scroll top
func (s *Session) MaxScroll() int {
	return max(0, s.stack.Height()-s.viewport.Height)
}

// Start returns the load request for the chapter document
func (s *Session) Start() []Effect {
	s.log.Debug("loading chapter document", zap.String("path", s.path))
	return []Effect{Load{Chapter: s.chapter, Path: s.path}}
}

// DocumentLoaded lays out one surface per page and requests their rasters.
// Layout does not wait for any render to complete.
func (s *Session) DocumentLoaded(src PageSource) []Effect {
	if s.state != StateLoading {
		return nil
	}
	if src == nil || src.PageCount() < 1 {
		s.DocumentFailed(fmt.Errorf("%w: document has no pages", ErrDocumentUnavailable))
		return nil
	}

	s.source = src
	s.pageCount = src.PageCount()
	s.state = StateReady
	s.log.Info("chapter document loaded",
		zap.Int("pages", s.pageCount),
		zap.Stringer("class", s.class))

	return s.rebuild()
}

// DocumentFailed switches to the terminal placeholder state
func (s *Session) DocumentFailed(err error) {
	if s.state != StateLoading {
		return
	}
	s.state = StateFailed
	s.pageCount = 0
	s.current = 1
	s.log.Warn("chapter document unavailable", zap.String("path", s.path), zap.Error(err))
}

// PageRendered marks a surface usable. Completions for a discarded stack
// are ignored.
func (s *Session) PageRendered(generation uint64, page int) bool {
	if s.stack == nil || generation != s.stack.Generation {
		return false
	}
	surf := s.stack.Surface(page)
	if surf == nil {
		return false
	}
	surf.Rendered = true
	return true
}

// Close releases the visibility watch
func (s *Session) Close() {
	if s.watch != nil {
		s.watch.Disconnect()
		s.watch = nil
	}
}

// rebuild discards the current stack and lays out a new one at the
// current scale, keeping the current page in view.
func (s *Session) rebuild() []Effect {
	if s.watch != nil {
		s.watch.Disconnect()
		s.watch = nil
	}

	s.generation++
	scale := s.Scale()
	stack, unsized := buildStack(s.source, scale, s.geometry(), s.generation)
	if len(unsized) > 0 {
		s.log.Debug("page size unavailable, reusing previous page size", zap.Ints("pages", unsized))
	}
	s.stack = stack
	s.zoom = Zoom{}

	s.watches++
	s.watch = newWatch(s.opts.VisibilityThreshold, s.Intersections, func() { s.watches-- })
	for _, surf := range stack.Surfaces {
		s.watch.Observe(surf)
	}

	s.current = min(max(s.current, 1), s.pageCount)
	s.scrollTop = s.pageTop(s.current)
	s.watch.prime(s.scrollTop, s.viewport.Height)

	requests := make([]RenderRequest, 0, stack.Len())
	for _, surf := range stack.Surfaces {
		requests = append(requests, RenderRequest{
			Generation: stack.Generation,
			Page:       surf.Page,
			Scale:      scale,
		})
	}
	return []Effect{Render{Requests: requests}}
}

func (s *Session) geometry() geometry {
	return geometry{
		viewportWidth: s.viewport.Width,
		cellWidth:     s.opts.CellWidth,
		cellHeight:    s.opts.CellHeight,
		gap:           s.opts.PageGap,
	}
}

// pageTop returns the scroll top that puts a page just below the header offset
func (s *Session) pageTop(page int) int {
	surf := s.stack.Surface(page)
	if surf == nil {
		return 0
	}
	top := surf.Top - s.opts.Profile(s.class).HeaderOffset
	return min(max(top, 0), s.MaxScroll())
}

// Resize records a new viewport. The height applies immediately; the width,
// and with it the size class, applies once the returned token settles.
func (s *Session) Resize(vp Viewport) uint64 {
	s.pendingVP = vp
	s.viewport.Height = vp.Height
	s.scrollTop = min(s.scrollTop, s.MaxScroll())
	return s.debounce.Trigger()
}

// ResizeSettled applies the pending viewport if token is the latest resize.
// Crossing the size-class threshold rebuilds the whole stack.
func (s *Session) ResizeSettled(token uint64) []Effect {
	if !s.debounce.Settled(token) {
		return nil
	}

	widthChanged := s.pendingVP.Width != s.viewport.Width
	s.viewport = s.pendingVP
	class := s.opts.Classify(s.viewport.Width)
	classChanged := class != s.class
	s.class = class

	if s.state != StateReady {
		return nil
	}

	if classChanged {
		s.log.Debug("viewport class changed, rebuilding surfaces",
			zap.Stringer("class", class),
			zap.Float64("scale", s.Scale()))
		return s.rebuild()
	}

	if widthChanged {
		s.stack.layout(s.geometry())
		s.scrollTop = s.pageTop(s.current)
		s.watch.prime(s.scrollTop, s.viewport.Height)
	}
	return nil
}

// Scrolled records the scroll area's new top and recomputes the current
// page, then lets the visibility watch report threshold crossings.
func (s *Session) Scrolled(top int) {
	if !s.bindings.Has(ScrollContainer) {
		return
	}
	s.scrollTop = min(max(top, 0), s.MaxScroll())
	if s.state != StateReady {
		return
	}

	s.current = MostVisible(s.stack, s.scrollTop, s.viewport.Height, s.current)
	s.watch.Deliver(s.scrollTop, s.viewport.Height)
}

// Intersections applies watch entries; the last intersecting entry wins
func (s *Session) Intersections(entries []Entry) {
	for _, e := range entries {
		if e.Intersecting && e.Page >= 1 && e.Page <= s.pageCount {
			s.current = e.Page
		}
	}
}

// PreviousPage moves to the previous page, or the previous chapter from
// the first page.
func (s *Session) PreviousPage() []Effect {
	switch {
	case s.state == StateLoading:
		return nil
	case s.state == StateFailed || s.current <= 1:
		return s.crossChapter(-1)
	}
	s.current--
	return s.scrollToPage(s.current)
}

// NextPage moves to the next page, or the next chapter from the last page
func (s *Session) NextPage() []Effect {
	switch {
	case s.state == StateLoading:
		return nil
	case s.state == StateFailed || s.current >= s.pageCount:
		return s.crossChapter(1)
	}
	s.current++
	return s.scrollToPage(s.current)
}

// PreviousChapter navigates to the previous chapter, if any
func (s *Session) PreviousChapter() []Effect {
	return s.crossChapter(-1)
}

// NextChapter navigates to the next chapter, if any
func (s *Session) NextChapter() []Effect {
	return s.crossChapter(1)
}

func (s *Session) crossChapter(delta int) []Effect {
	target := s.chapter + delta
	if target < 1 || target > s.opts.TotalChapters {
		return nil
	}
	s.log.Debug("navigating to chapter", zap.Int("target", target))
	return []Effect{Navigate{Chapter: target}}
}

func (s *Session) scrollToPage(page int) []Effect {
	if s.stack.Surface(page) == nil || !s.bindings.Has(ScrollContainer) {
		return nil
	}
	return []Effect{ScrollTo{Top: s.pageTop(page), Smooth: true}}
}

// Press handles a click on a bound button. Absent or disabled buttons do
// nothing.
func (s *Session) Press(e Element) []Effect {
	if !s.bindings.Has(e) {
		return nil
	}
	switch e {
	case PrevPageButton:
		return s.PreviousPage()
	case NextPageButton:
		return s.NextPage()
	case PrevChapterButton:
		if s.controls.PrevEnabled {
			return s.PreviousChapter()
		}
	case NextChapterButton:
		if s.controls.NextEnabled {
			return s.NextChapter()
		}
	}
	return nil
}

// PointerDown starts a gesture
func (s *Session) PointerDown(at Point) {
	s.pointer.press(at)
}

// PointerUp completes a gesture: swipes navigate pages, double-taps toggle
// zoom on the tapped surface.
func (s *Session) PointerUp(at Point, now time.Time) []Effect {
	switch s.pointer.release(at, now) {
	case gestureSwipeLeft:
		return s.NextPage()
	case gestureSwipeRight:
		return s.PreviousPage()
	case gestureDoubleTap:
		s.ToggleZoomAt(at)
	}
	return nil
}

// ToggleZoomAt toggles zoom on the surface under a viewport pixel position
func (s *Session) ToggleZoomAt(at Point) {
	if s.stack == nil {
		return
	}
	col := at.X / float64(s.opts.CellWidth)
	row := float64(s.scrollTop) + at.Y/float64(s.opts.CellHeight)
	surf := s.stack.At(int(row))
	s.zoom = toggleZoom(s.zoom, surf, col, row, s.opts.ZoomFactor)
}

// ToggleZoomCurrent toggles zoom centred on the current page
func (s *Session) ToggleZoomCurrent() {
	surf := s.stack.Surface(s.current)
	if surf == nil {
		return
	}
	col := float64(surf.Left) + float64(surf.Width)/2
	row := float64(surf.Top) + float64(surf.Height)/2
	s.zoom = toggleZoom(s.zoom, surf, col, row, s.opts.ZoomFactor)
}
