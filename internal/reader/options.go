package reader

import "time"

// SizeClass buckets the viewport width into one of two render tiers.
type SizeClass int

const (
	// Compact is used below Options.CompactBelow columns
	Compact SizeClass = iota
	// Full is used at or above Options.CompactBelow columns
	Full
)

// String returns a human-readable name for the size class
func (c SizeClass) String() string {
	switch c {
	case Compact:
		return "compact"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// Profile holds the settings that depend on the size class
type Profile struct {
	Scale        float64 // raster scale factor for page surfaces
	// HeaderOffset is the number of rows left above a page when navigating
	// to it. The tail of the previous page stays in view there as the cue
	// that the strip continues; zero aligns the page with the top edge.
	HeaderOffset int
}

// SwipeOptions gates horizontal swipe recognition, in pixels
type SwipeOptions struct {
	Threshold float64 // minimum horizontal distance
	Restraint float64 // maximum perpendicular distance
}

// DoubleTapOptions gates double-tap recognition
type DoubleTapOptions struct {
	Interval time.Duration // maximum time between taps
	Slop     float64       // maximum pointer travel, in pixels
}

// Options configures a reader session
type Options struct {
	TotalChapters int
	SourcePattern string

	CompactBelow int // viewport width (columns) below which Compact applies
	Compact      Profile
	Full         Profile

	PageGap    int // separator rows between consecutive surfaces
	CellWidth  int // pixels per terminal column
	CellHeight int // pixels per terminal row

	VisibilityThreshold float64
	ResizeQuiet         time.Duration
	FallbackPageCount   int

	Swipe      SwipeOptions
	DoubleTap  DoubleTapOptions
	ZoomFactor float64
}

// DefaultOptions returns the stock reader settings
func DefaultOptions() Options {
	return Options{
		TotalChapters: 8,
		SourcePattern: "assets/chapters/chapter-{chapter}.pdf",
		CompactBelow:  100,
		Compact:       Profile{Scale: 0.75, HeaderOffset: 1},
		Full:          Profile{Scale: 1.0, HeaderOffset: 2},
		PageGap:       1,
		CellWidth:     8,
		CellHeight:    16,

		VisibilityThreshold: 0.5,
		ResizeQuiet:         250 * time.Millisecond,
		FallbackPageCount:   10,

		Swipe:      SwipeOptions{Threshold: 50, Restraint: 100},
		DoubleTap:  DoubleTapOptions{Interval: 300 * time.Millisecond, Slop: 30},
		ZoomFactor: 1.5,
	}
}

// Classify returns the size class for a viewport width
func (o Options) Classify(width int) SizeClass {
	if width < o.CompactBelow {
		return Compact
	}
	return Full
}

// Profile returns the settings for a size class
func (o Options) Profile(c SizeClass) Profile {
	if c == Compact {
		return o.Compact
	}
	return o.Full
}

// withDefaults fills zero values so a partially populated Options is usable
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.TotalChapters < 1 {
		o.TotalChapters = d.TotalChapters
	}
	if o.SourcePattern == "" {
		o.SourcePattern = d.SourcePattern
	}
	if o.CompactBelow <= 0 {
		o.CompactBelow = d.CompactBelow
	}
	if o.Compact.Scale <= 0 {
		o.Compact = d.Compact
	}
	if o.Full.Scale <= 0 {
		o.Full = d.Full
	}
	if o.PageGap < 0 {
		o.PageGap = 0
	}
	if o.CellWidth <= 0 {
		o.CellWidth = d.CellWidth
	}
	if o.CellHeight <= 0 {
		o.CellHeight = d.CellHeight
	}
	if o.VisibilityThreshold <= 0 || o.VisibilityThreshold > 1 {
		o.VisibilityThreshold = d.VisibilityThreshold
	}
	if o.ResizeQuiet <= 0 {
		o.ResizeQuiet = d.ResizeQuiet
	}
	if o.FallbackPageCount <= 0 {
		o.FallbackPageCount = d.FallbackPageCount
	}
	if o.Swipe.Threshold <= 0 {
		o.Swipe.Threshold = d.Swipe.Threshold
	}
	if o.Swipe.Restraint <= 0 {
		o.Swipe.Restraint = d.Swipe.Restraint
	}
	if o.DoubleTap.Interval <= 0 {
		o.DoubleTap.Interval = d.DoubleTap.Interval
	}
	if o.DoubleTap.Slop <= 0 {
		o.DoubleTap.Slop = d.DoubleTap.Slop
	}
	if o.ZoomFactor <= 1 {
		o.ZoomFactor = d.ZoomFactor
	}
	return o
}
