package reader

import "time"

// Effect is an instruction from the session to its host view
type Effect interface {
	isEffect()
}

// Load asks the host to open the chapter document at Path
type Load struct {
	Chapter int
	Path    string
}

// RenderRequest asks for one page raster at a scale, for one stack build
type RenderRequest struct {
	Generation uint64
	Page       int
	Scale      float64
}

// Render carries render requests in ascending page order
type Render struct {
	Requests []RenderRequest
}

// ScrollTo asks the host to move the scroll area. Smooth scrolls report
// their intermediate positions back through Scrolled.
type ScrollTo struct {
	Top    int
	Smooth bool
}

// Navigate asks the host to replace the session with another chapter
type Navigate struct {
	Chapter int
}

func (Load) isEffect()     {}
func (Render) isEffect()   {}
func (ScrollTo) isEffect() {}
func (Navigate) isEffect() {}

// Event is a viewport or collaborator event delivered to the session
type Event interface {
	isEvent()
}

type (
	// DocumentLoadedEvent reports a successfully opened document
	DocumentLoadedEvent struct{ Source PageSource }
	// DocumentFailedEvent reports a document that could not be loaded
	DocumentFailedEvent struct{ Err error }
	// PageRenderedEvent reports a completed render request
	PageRenderedEvent struct {
		Generation uint64
		Page       int
		Err        error
	}
	// ResizeEvent reports a new viewport size; the rescale is debounced
	ResizeEvent struct{ Viewport Viewport }
	// ResizeSettledEvent fires after the quiet period of a resize
	ResizeSettledEvent struct{ Token uint64 }
	// ScrollEvent reports the scroll area's new top row
	ScrollEvent struct{ Top int }
	// IntersectionEvent carries watch entries
	IntersectionEvent struct{ Entries []Entry }
	// PointerDownEvent and PointerUpEvent bracket a touch or mouse press
	PointerDownEvent struct{ At Point }
	PointerUpEvent   struct {
		At   Point
		Time time.Time
	}
	// ButtonEvent reports a press on one of the bound buttons
	ButtonEvent struct{ Element Element }
	// PageKeyEvent and ChapterKeyEvent are keyboard navigation; Delta is ±1
	PageKeyEvent    struct{ Delta int }
	ChapterKeyEvent struct{ Delta int }
	// ZoomKeyEvent toggles zoom on the current page
	ZoomKeyEvent struct{}
)

func (DocumentLoadedEvent) isEvent() {}
func (DocumentFailedEvent) isEvent() {}
func (PageRenderedEvent) isEvent()   {}
func (ResizeEvent) isEvent()         {}
func (ResizeSettledEvent) isEvent()  {}
func (ScrollEvent) isEvent()         {}
func (IntersectionEvent) isEvent()   {}
func (PointerDownEvent) isEvent()    {}
func (PointerUpEvent) isEvent()      {}
func (ButtonEvent) isEvent()         {}
func (PageKeyEvent) isEvent()        {}
func (ChapterKeyEvent) isEvent()     {}
func (ZoomKeyEvent) isEvent()        {}

// Dispatch routes an event to the matching session operation
func (s *Session) Dispatch(ev Event) []Effect {
	switch ev := ev.(type) {
	case DocumentLoadedEvent:
		return s.DocumentLoaded(ev.Source)
	case DocumentFailedEvent:
		s.DocumentFailed(ev.Err)
	case PageRenderedEvent:
		if ev.Err == nil {
			s.PageRendered(ev.Generation, ev.Page)
		}
	case ResizeEvent:
		s.Resize(ev.Viewport)
	case ResizeSettledEvent:
		return s.ResizeSettled(ev.Token)
	case ScrollEvent:
		s.Scrolled(ev.Top)
	case IntersectionEvent:
		s.Intersections(ev.Entries)
	case PointerDownEvent:
		s.PointerDown(ev.At)
	case PointerUpEvent:
		return s.PointerUp(ev.At, ev.Time)
	case ButtonEvent:
		return s.Press(ev.Element)
	case PageKeyEvent:
		if ev.Delta < 0 {
			return s.PreviousPage()
		}
		return s.NextPage()
	case ChapterKeyEvent:
		if ev.Delta < 0 {
			return s.PreviousChapter()
		}
		return s.NextChapter()
	case ZoomKeyEvent:
		s.ToggleZoomCurrent()
	}
	return nil
}
