package reader

import (
	"math"
	"time"
)

// Point is a pointer position in viewport pixels
type Point struct {
	X, Y float64
}

// SwipeDirection is the outcome of swipe classification
type SwipeDirection int

const (
	SwipeNone SwipeDirection = iota
	SwipeLeft
	SwipeRight
)

// String returns a human-readable name for the direction
func (d SwipeDirection) String() string {
	switch d {
	case SwipeLeft:
		return "left"
	case SwipeRight:
		return "right"
	default:
		return "none"
	}
}

// ClassifySwipe turns a pointer displacement into a swipe. Horizontal travel
// must reach the threshold and vertical travel must stay within restraint.
func ClassifySwipe(dx, dy float64, o SwipeOptions) SwipeDirection {
	if math.Abs(dx) < o.Threshold || math.Abs(dy) > o.Restraint {
		return SwipeNone
	}
	if dx < 0 {
		return SwipeLeft
	}
	return SwipeRight
}

// gesture is the outcome of a completed press/release pair
type gesture int

const (
	gestureNone gesture = iota
	gestureSwipeLeft
	gestureSwipeRight
	gestureTap
	gestureDoubleTap
)

// pointerTracker recognises swipes, taps and double-taps
type pointerTracker struct {
	swipe SwipeOptions
	tap   DoubleTapOptions

	down    bool
	start   Point
	lastTap Point
	tapAt   time.Time
	hasTap  bool
}

func (p *pointerTracker) press(at Point) {
	p.down = true
	p.start = at
}

func (p *pointerTracker) release(at Point, now time.Time) gesture {
	if !p.down {
		return gestureNone
	}
	p.down = false

	dx := at.X - p.start.X
	dy := at.Y - p.start.Y
	switch ClassifySwipe(dx, dy, p.swipe) {
	case SwipeLeft:
		p.hasTap = false
		return gestureSwipeLeft
	case SwipeRight:
		p.hasTap = false
		return gestureSwipeRight
	}

	if math.Hypot(dx, dy) > p.tap.Slop {
		return gestureNone
	}

	if p.hasTap && now.Sub(p.tapAt) <= p.tap.Interval &&
		math.Hypot(at.X-p.lastTap.X, at.Y-p.lastTap.Y) <= p.tap.Slop {
		p.hasTap = false
		return gestureDoubleTap
	}

	p.hasTap = true
	p.lastTap = at
	p.tapAt = now
	return gestureTap
}
