package reader

// Zoom describes the single zoomed surface, if any. Origin is the zoom
// centre as a fraction of the surface (0,0 top-left; 1,1 bottom-right).
type Zoom struct {
	Page    int // 0 when nothing is zoomed
	Factor  float64
	OriginX float64
	OriginY float64
}

// Active reports whether a surface is zoomed
func (z Zoom) Active() bool {
	return z.Page > 0
}

// toggleZoom zooms s around the given cell position, or clears the zoom
// when s is already the zoomed surface. Unrendered surfaces are ignored.
func toggleZoom(current Zoom, s *Surface, col, row, factor float64) Zoom {
	if s == nil || !s.Rendered {
		return current
	}
	if current.Page == s.Page {
		return Zoom{}
	}
	return Zoom{
		Page:    s.Page,
		Factor:  factor,
		OriginX: clamp01((col - float64(s.Left)) / float64(s.Width)),
		OriginY: clamp01((row - float64(s.Top)) / float64(s.Height)),
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
