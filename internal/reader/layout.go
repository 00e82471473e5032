package reader

import "math"

// PageSource is what the session needs from a loaded chapter document.
// Page indices are 1-based.
type PageSource interface {
	PageCount() int
	PageSize(page int) (width, height float64, err error)
}

// defaultPageSize is used when the first page's size cannot be read (A4, points)
var defaultPageSize = [2]float64{595, 842}

// Surface is the renderable target for one page. Geometry is in terminal
// cells relative to the top-left of the scroll area's content.
type Surface struct {
	Page int

	Top    int // first row
	Height int // rows
	Left   int // first column
	Width  int // columns

	// Raster size at the stack's scale
	PixelWidth  int
	PixelHeight int

	// Rendered is set once this surface's render request has completed
	Rendered bool

	intrinsicW float64
	intrinsicH float64
}

// Bottom returns the row just past the surface
func (s *Surface) Bottom() int {
	return s.Top + s.Height
}

// Stack is the vertical sequence of page surfaces for one build
type Stack struct {
	Generation uint64
	Scale      float64
	Surfaces   []*Surface
}

// Len returns the number of surfaces
func (st *Stack) Len() int {
	if st == nil {
		return 0
	}
	return len(st.Surfaces)
}

// Surface returns the surface for a 1-based page, or nil
func (st *Stack) Surface(page int) *Surface {
	if st == nil || page < 1 || page > len(st.Surfaces) {
		return nil
	}
	return st.Surfaces[page-1]
}

// Height returns the total rows occupied by the stack
func (st *Stack) Height() int {
	if st.Len() == 0 {
		return 0
	}
	return st.Surfaces[len(st.Surfaces)-1].Bottom()
}

// At returns the surface covering a content row, or nil for gaps
func (st *Stack) At(row int) *Surface {
	if st == nil {
		return nil
	}
	for _, s := range st.Surfaces {
		if row >= s.Top && row < s.Bottom() {
			return s
		}
	}
	return nil
}

// geometry is the cell metrics and viewport width used for layout
type geometry struct {
	viewportWidth int
	cellWidth     int
	cellHeight    int
	gap           int
}

// buildStack creates one surface per page in ascending page order
func buildStack(src PageSource, scale float64, g geometry, generation uint64) (*Stack, []int) {
	count := src.PageCount()
	st := &Stack{
		Generation: generation,
		Scale:      scale,
		Surfaces:   make([]*Surface, 0, count),
	}

	var unsized []int
	prevW, prevH := defaultPageSize[0], defaultPageSize[1]
	for page := 1; page <= count; page++ {
		w, h, err := src.PageSize(page)
		if err != nil || w <= 0 || h <= 0 {
			unsized = append(unsized, page)
			w, h = prevW, prevH
		}
		prevW, prevH = w, h

		st.Surfaces = append(st.Surfaces, &Surface{
			Page:       page,
			intrinsicW: w,
			intrinsicH: h,
		})
	}

	st.layout(g)
	return st, unsized
}

// layout recomputes surface geometry in place, keeping render state
func (st *Stack) layout(g geometry) {
	top := 0
	for i, s := range st.Surfaces {
		s.PixelWidth = max(1, int(math.Round(s.intrinsicW*st.Scale)))
		s.PixelHeight = max(1, int(math.Round(s.intrinsicH*st.Scale)))

		cols := int(math.Ceil(float64(s.PixelWidth) / float64(g.cellWidth)))
		if g.viewportWidth > 0 && cols > g.viewportWidth {
			cols = g.viewportWidth
		}
		cols = max(1, cols)

		// Preserve the aspect ratio in pixel space, then convert to rows
		displayPxW := float64(cols * g.cellWidth)
		displayPxH := displayPxW * s.intrinsicH / s.intrinsicW
		rows := max(1, int(math.Round(displayPxH/float64(g.cellHeight))))

		s.Width = cols
		s.Height = rows
		s.Left = max(0, (g.viewportWidth-cols)/2)
		s.Top = top

		top += rows
		if i < len(st.Surfaces)-1 {
			top += g.gap
		}
	}
}
