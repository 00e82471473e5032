package reader

// VisibleFraction returns the share of a surface's rows inside the window
// [scrollTop, scrollTop+viewportHeight).
func VisibleFraction(s *Surface, scrollTop, viewportHeight int) float64 {
	if s == nil || s.Height <= 0 || viewportHeight <= 0 {
		return 0
	}
	top := max(s.Top, scrollTop)
	bottom := min(s.Bottom(), scrollTop+viewportHeight)
	visible := bottom - top
	if visible <= 0 {
		return 0
	}
	return float64(visible) / float64(s.Height)
}

// MostVisible picks the page with the largest visible fraction. Ties with
// the previously selected page keep it; otherwise the first page with the
// best fraction wins. A frame with nothing visible keeps prev.
func MostVisible(st *Stack, scrollTop, viewportHeight, prev int) int {
	if st.Len() == 0 {
		return prev
	}

	best := 0.0
	chosen := prev
	prevFraction := -1.0
	for _, s := range st.Surfaces {
		f := VisibleFraction(s, scrollTop, viewportHeight)
		if s.Page == prev {
			prevFraction = f
		}
		if f > best {
			best = f
			chosen = s.Page
		}
	}

	if best == 0 || prevFraction == best {
		return prev
	}
	return chosen
}
