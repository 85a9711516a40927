package internal

import (
	"math"
	"sync"
)

const (
	// DefaultWindowSize is the number of trailing elements shown on first data
	DefaultWindowSize = 50
	// DefaultEdgeTolerance is how close, in track pixels, a pointer must be to grab an edge
	DefaultEdgeTolerance = 6.0
)

// Window is an inclusive index range [Start, End]
type Window struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Len returns the number of indices covered
func (w Window) Len() int {
	return w.End - w.Start + 1
}

// DragMode is the kind of interaction in progress
type DragMode int

const (
	DragNone DragMode = iota
	DragMove
	DragResizeLeft
	DragResizeRight
)

func (m DragMode) String() string {
	switch m {
	case DragMove:
		return "move"
	case DragResizeLeft:
		return "resize-left"
	case DragResizeRight:
		return "resize-right"
	default:
		return "idle"
	}
}

// RangeState is the complete state of a range selector. It is a value; transitions
// return a new state.
type RangeState struct {
	N      int
	Window Window
	// Valid is false while the series is empty
	Valid bool

	TrackWidth    float64
	EdgeTolerance float64
	DefaultSize   int

	Mode        DragMode
	dragOriginX float64
	dragWindow  Window
}

// Dragging reports whether a drag is in progress
func (s RangeState) Dragging() bool {
	return s.Mode != DragNone
}

// RangeEvent is an input to ReduceRange
type RangeEvent interface {
	isRangeEvent()
}

// ResizeEvent reports a new series length
type ResizeEvent struct{ N int }

// PointerDownEvent starts a drag at offset X within the track
type PointerDownEvent struct{ X float64 }

// PointerMoveEvent moves an active drag to offset X; X may lie outside the track
type PointerMoveEvent struct{ X float64 }

// PointerUpEvent ends an active drag
type PointerUpEvent struct{}

// TeardownEvent ends any drag because the owner is going away
type TeardownEvent struct{}

func (ResizeEvent) isRangeEvent()      {}
func (PointerDownEvent) isRangeEvent() {}
func (PointerMoveEvent) isRangeEvent() {}
func (PointerUpEvent) isRangeEvent()   {}
func (TeardownEvent) isRangeEvent()    {}

// NewRangeState returns an idle, empty state for a track of the given pixel width
func NewRangeState(trackWidth float64) RangeState {
	return RangeState{
		TrackWidth:    trackWidth,
		EdgeTolerance: DefaultEdgeTolerance,
		DefaultSize:   DefaultWindowSize,
	}
}

// ReduceRange applies ev to s. After every transition 0 <= Start <= End <= N-1 holds
// whenever Valid is true.
func ReduceRange(s RangeState, ev RangeEvent) RangeState {
	switch e := ev.(type) {
	case ResizeEvent:
		return resize(s, e.N)
	case PointerDownEvent:
		if !s.Valid || s.TrackWidth <= 0 || !finite(e.X) {
			return s
		}
		s.Mode = classify(s, e.X)
		s.dragOriginX = e.X
		s.dragWindow = s.Window
		return s
	case PointerMoveEvent:
		if !s.Dragging() || !s.Valid || !finite(e.X) {
			return s
		}
		s.Window = drag(s, e.X)
		return s
	case PointerUpEvent, TeardownEvent:
		s.Mode = DragNone
		return s
	}
	return s
}

func resize(s RangeState, n int) RangeState {
	if n < 0 {
		n = 0
	}
	wasValid := s.Valid
	s.N = n
	if n == 0 {
		s.Valid = false
		s.Window = Window{}
		return s
	}
	s.Valid = true

	if !wasValid {
		size := s.DefaultSize
		if size <= 0 {
			size = DefaultWindowSize
		}
		start := n - size
		if start < 0 {
			start = 0
		}
		s.Window = Window{Start: start, End: n - 1}
		s.dragWindow = s.Window
		return s
	}

	s.Window = reclamp(s.Window, n)
	s.dragWindow = reclamp(s.dragWindow, n)
	return s
}

// reclamp fits w into [0, n-1], keeping its width when possible and
// collapsing to the tail when the series shrank below w.Start.
func reclamp(w Window, n int) Window {
	width := w.End - w.Start
	if width > n-1 {
		width = n - 1
	}
	if width < 0 {
		width = 0
	}
	if w.End > n-1 || w.Start > n-1 {
		end := n - 1
		return Window{Start: end - width, End: end}
	}
	if w.Start < 0 {
		return Window{Start: 0, End: width}
	}
	return w
}

// classify maps a pointer offset to a drag mode. The window spans
// [Start/N, (End+1)/N] of the track.
func classify(s RangeState, x float64) DragMode {
	unit := s.TrackWidth / float64(s.N)
	left := float64(s.Window.Start) * unit
	right := float64(s.Window.End+1) * unit
	nearLeft := math.Abs(x-left) <= s.EdgeTolerance
	nearRight := math.Abs(x-right) <= s.EdgeTolerance

	switch {
	case nearLeft && nearRight:
		if x < (left+right)/2 {
			return DragResizeLeft
		}
		return DragResizeRight
	case nearLeft:
		return DragResizeLeft
	case nearRight:
		return DragResizeRight
	default:
		return DragMove
	}
}

func drag(s RangeState, x float64) Window {
	delta := int(math.Round((x - s.dragOriginX) / s.TrackWidth * float64(s.N)))
	w := s.dragWindow
	last := s.N - 1

	switch s.Mode {
	case DragMove:
		width := w.End - w.Start
		start := clampInt(w.Start+delta, 0, last-width)
		return Window{Start: start, End: start + width}
	case DragResizeLeft:
		hi := w.End - 1
		if w.Start > hi {
			hi = w.Start
		}
		return Window{Start: clampInt(w.Start+delta, 0, hi), End: w.End}
	case DragResizeRight:
		lo := w.Start + 1
		if w.End < lo {
			lo = w.End
		}
		return Window{Start: w.Start, End: clampInt(w.End+delta, lo, last)}
	}
	return s.Window
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// PointerSource delivers pointer movement and release for the whole screen, not
// just the track, so a drag keeps tracking after the pointer leaves it.
type PointerSource interface {
	// Subscribe registers handlers and returns a function that removes them
	Subscribe(onMove func(x float64), onUp func()) (unsubscribe func())
}

// RangeSelector owns a RangeState and the pointer listeners of an active drag.
// Instances are independent; callers translate windows between index spaces.
type RangeSelector struct {
	mu          sync.Mutex
	state       RangeState
	pointer     PointerSource
	unsubscribe func()
	drags       uint64
	onChange    func(Window, bool)
}

// NewRangeSelector creates a selector over a track of trackWidth pixels
func NewRangeSelector(trackWidth float64, pointer PointerSource) *RangeSelector {
	return &RangeSelector{
		state:   NewRangeState(trackWidth),
		pointer: pointer,
	}
}

// SetDefaultSize changes the size of the default window applied on first data
func (r *RangeSelector) SetDefaultSize(size int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.DefaultSize = size
}

// OnChange registers a callback invoked after the window changes
func (r *RangeSelector) OnChange(fn func(w Window, valid bool)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = fn
}

// State returns a copy of the current state
func (r *RangeSelector) State() RangeState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Window returns the current window; ok is false when the series is empty
func (r *RangeSelector) Window() (Window, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Window, r.state.Valid
}

// SetLength re-clamps the window to a series of length n
func (r *RangeSelector) SetLength(n int) {
	r.dispatch(ResizeEvent{N: n})
}

// PointerDown starts a drag and registers pointer listeners for its duration
func (r *RangeSelector) PointerDown(x float64) DragMode {
	r.mu.Lock()
	if r.state.Dragging() {
		r.mu.Unlock()
		return r.state.Mode
	}
	r.state = ReduceRange(r.state, PointerDownEvent{X: x})
	mode := r.state.Mode
	if mode != DragNone {
		r.drags++
	}
	gen := r.drags
	r.mu.Unlock()

	if mode == DragNone || r.pointer == nil {
		return mode
	}
	unsubscribe := r.pointer.Subscribe(r.PointerMove, r.PointerUp)

	// the drag may have ended, or been replaced, while subscribing
	r.mu.Lock()
	if r.state.Dragging() && r.drags == gen {
		r.unsubscribe = unsubscribe
		unsubscribe = nil
	}
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	return mode
}

// PointerMove applies pointer movement to the active drag
func (r *RangeSelector) PointerMove(x float64) {
	r.dispatch(PointerMoveEvent{X: x})
}

// PointerUp ends the drag and removes its listeners
func (r *RangeSelector) PointerUp() {
	r.end(PointerUpEvent{})
}

// Close ends any drag and removes its listeners
func (r *RangeSelector) Close() {
	r.end(TeardownEvent{})
}

func (r *RangeSelector) end(ev RangeEvent) {
	r.mu.Lock()
	r.state = ReduceRange(r.state, ev)
	unsubscribe := r.unsubscribe
	r.unsubscribe = nil
	r.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (r *RangeSelector) dispatch(ev RangeEvent) {
	r.mu.Lock()
	before := r.state
	r.state = ReduceRange(r.state, ev)
	after := r.state
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil && (before.Window != after.Window || before.Valid != after.Valid) {
		fn(after.Window, after.Valid)
	}
}
