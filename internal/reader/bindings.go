package reader

// Element is an addressable control of the reader view
type Element int

const (
	PageCountDisplay Element = iota
	CurrentPageDisplay
	PrevPageButton
	NextPageButton
	PrevChapterButton
	NextChapterButton
	ScrollContainer

	elementCount
)

// String returns a human-readable name for the element
func (e Element) String() string {
	switch e {
	case PageCountDisplay:
		return "page-count"
	case CurrentPageDisplay:
		return "current-page"
	case PrevPageButton:
		return "prev-page"
	case NextPageButton:
		return "next-page"
	case PrevChapterButton:
		return "prev-chapter"
	case NextChapterButton:
		return "next-chapter"
	case ScrollContainer:
		return "scroll-container"
	default:
		return "unknown"
	}
}

// Bindings is the set of elements the hosting view actually provides.
// Features tied to an absent element are disabled; nothing else is.
type Bindings struct {
	present uint32
}

// Bind resolves the given elements as present
func Bind(elements ...Element) Bindings {
	var b Bindings
	for _, e := range elements {
		if e >= 0 && e < elementCount {
			b.present |= 1 << uint(e)
		}
	}
	return b
}

// BindAll returns bindings with every element present
func BindAll() Bindings {
	return Bindings{present: 1<<uint(elementCount) - 1}
}

// Has reports whether an element is present
func (b Bindings) Has(e Element) bool {
	return e >= 0 && e < elementCount && b.present&(1<<uint(e)) != 0
}

// ChapterControls is the enabled state of the chapter buttons, computed
// once per session.
type ChapterControls struct {
	PrevEnabled bool
	NextEnabled bool
}
