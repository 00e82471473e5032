package reader

// Entry reports a surface whose threshold state changed
type Entry struct {
	Page         int
	Ratio        float64
	Intersecting bool // Ratio is at or above the watch threshold
}

// Watch reports threshold crossings for a set of surfaces, the way an
// intersection observer does. It only reports changes, never steady state.
type Watch struct {
	threshold float64
	callback  func([]Entry)

	targets []*Surface
	state   map[int]bool

	connected bool
	onClose   func()
}

// newWatch creates a connected watch. onClose runs once on Disconnect.
func newWatch(threshold float64, callback func([]Entry), onClose func()) *Watch {
	return &Watch{
		threshold: threshold,
		callback:  callback,
		state:     make(map[int]bool),
		connected: true,
		onClose:   onClose,
	}
}

// Observe adds a surface to the watch
func (w *Watch) Observe(s *Surface) {
	if !w.connected || s == nil {
		return
	}
	w.targets = append(w.targets, s)
}

// Connected reports whether the watch still delivers entries
func (w *Watch) Connected() bool {
	return w != nil && w.connected
}

// Deliver measures every target against the window and invokes the
// callback with the surfaces whose threshold state changed. Targets not
// yet primed only report when they are intersecting.
func (w *Watch) Deliver(scrollTop, viewportHeight int) {
	if !w.Connected() {
		return
	}

	var entries []Entry
	for _, s := range w.targets {
		ratio := VisibleFraction(s, scrollTop, viewportHeight)
		inside := ratio >= w.threshold

		was, seen := w.state[s.Page]
		w.state[s.Page] = inside
		if (seen && was == inside) || (!seen && !inside) {
			continue
		}
		entries = append(entries, Entry{Page: s.Page, Ratio: ratio, Intersecting: inside})
	}

	if len(entries) > 0 && w.callback != nil {
		w.callback(entries)
	}
}

// prime records the current threshold state of every target without
// reporting it, so later deliveries carry real crossings only
func (w *Watch) prime(scrollTop, viewportHeight int) {
	if !w.Connected() {
		return
	}
	clear(w.state)
	for _, s := range w.targets {
		w.state[s.Page] = VisibleFraction(s, scrollTop, viewportHeight) >= w.threshold
	}
}

// Disconnect stops delivery and releases the targets
func (w *Watch) Disconnect() {
	if !w.Connected() {
		return
	}
	w.connected = false
	w.targets = nil
	w.state = nil
	if w.onClose != nil {
		w.onClose()
	}
}
