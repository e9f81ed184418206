// Package gesture tells taps apart from drags on pitch slots.
//
// A Recognizer follows one slot through Idle -> Tracking -> Dragging and back
// to Idle. The Tracker owns one Recognizer per slot and the pointer capture
// table that routes move/up/cancel events for a pointer to the slot that saw
// its pointer-down. Neither type is safe for concurrent use.
package gesture

import (
	"math"

	"github.com/AlouiLouai/takwira/internal/model"
	"github.com/AlouiLouai/takwira/internal/pitch"
)

// DefaultThreshold is the movement in device-independent pixels a pointer has
// to exceed before a press becomes a drag. Tuned for finger-sized targets.
const DefaultThreshold = 15.0

type State int

const (
	Idle State = iota
	Tracking
	Dragging
)

func (s State) String() string {
	switch s {
	case Tracking:
		return "tracking"
	case Dragging:
		return "dragging"
	}
	return "idle"
}

// Capturer routes a pointer's later events to the recognizer that captured it.
type Capturer interface {
	Capture(pointerID int)
	Release(pointerID int)
}

// End describes a finished gesture.
type End struct {
	Moved     bool
	Cancelled bool
}

type Recognizer struct {
	threshold float64
	capturer  Capturer

	state     State
	pointerID int
	start     pitch.Point
}

func NewRecognizer(threshold float64, capturer Capturer) *Recognizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recognizer{threshold: threshold, capturer: capturer}
}

func (r *Recognizer) State() State {
	return r.state
}

// Down starts tracking a press. Presses on empty slots are not tracked, and a
// recognizer already following a pointer ignores a second one.
func (r *Recognizer) Down(pointerID int, p pitch.Point, occupied bool) bool {
	if !occupied || r.state != Idle {
		return false
	}
	r.state = Tracking
	r.pointerID = pointerID
	r.start = p
	if r.capturer != nil {
		r.capturer.Capture(pointerID)
	}
	return true
}

// Move reports whether the move should update the slot position. started is
// true only on the move that crossed the threshold.
func (r *Recognizer) Move(pointerID int, p pitch.Point) (update bool, started bool) {
	if r.state == Idle || pointerID != r.pointerID {
		return false, false
	}
	if r.state == Tracking && distance(r.start, p) > r.threshold {
		r.state = Dragging
		started = true
	}
	return r.state == Dragging, started
}

// Up finishes the gesture. ok is false when the pointer was not tracked here.
func (r *Recognizer) Up(pointerID int) (End, bool) {
	return r.finish(pointerID, false)
}

// Cancel cleans up exactly like Up so an interrupted gesture never leaves the
// slot stuck.
func (r *Recognizer) Cancel(pointerID int) (End, bool) {
	return r.finish(pointerID, true)
}

func (r *Recognizer) finish(pointerID int, cancelled bool) (End, bool) {
	if r.state == Idle || pointerID != r.pointerID {
		return End{}, false
	}
	end := End{Moved: r.state == Dragging, Cancelled: cancelled}
	if r.capturer != nil {
		r.capturer.Release(pointerID)
	}
	r.state = Idle
	r.pointerID = 0
	r.start = pitch.Point{}
	return end, true
}

func distance(a, b pitch.Point) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Move is a position update for a dragged slot.
type Move struct {
	Key     model.SlotKey
	Point   pitch.Point
	Started bool
}

// Finish is the drag-end event for a slot.
type Finish struct {
	Key   model.SlotKey
	Point pitch.Point
	End
}

type Tracker struct {
	threshold float64
	slots     map[model.SlotKey]*Recognizer
	captured  map[int]model.SlotKey
}

func NewTracker(threshold float64) *Tracker {
	return &Tracker{
		threshold: threshold,
		slots:     make(map[model.SlotKey]*Recognizer),
		captured:  make(map[int]model.SlotKey),
	}
}

func (t *Tracker) recognizer(key model.SlotKey) *Recognizer {
	r, ok := t.slots[key]
	if !ok {
		r = NewRecognizer(t.threshold, slotCapture{tracker: t, key: key})
		t.slots[key] = r
	}
	return r
}

// Down begins a gesture on key. A pointer that is already captured by a slot
// cannot start a second gesture.
func (t *Tracker) Down(key model.SlotKey, pointerID int, p pitch.Point, occupied bool) bool {
	if _, busy := t.captured[pointerID]; busy {
		return false
	}
	return t.recognizer(key).Down(pointerID, p, occupied)
}

func (t *Tracker) Move(pointerID int, p pitch.Point) (Move, bool) {
	key, ok := t.captured[pointerID]
	if !ok {
		return Move{}, false
	}
	update, started := t.recognizer(key).Move(pointerID, p)
	if !update {
		return Move{}, false
	}
	return Move{Key: key, Point: p, Started: started}, true
}

func (t *Tracker) Up(pointerID int, p pitch.Point) (Finish, bool) {
	return t.finish(pointerID, p, false)
}

func (t *Tracker) Cancel(pointerID int, p pitch.Point) (Finish, bool) {
	return t.finish(pointerID, p, true)
}

func (t *Tracker) finish(pointerID int, p pitch.Point, cancelled bool) (Finish, bool) {
	key, ok := t.captured[pointerID]
	if !ok {
		return Finish{}, false
	}
	r := t.recognizer(key)
	var end End
	if cancelled {
		end, ok = r.Cancel(pointerID)
	} else {
		end, ok = r.Up(pointerID)
	}
	if !ok {
		delete(t.captured, pointerID)
		return Finish{}, false
	}
	return Finish{Key: key, Point: p, End: end}, true
}

// Active returns the slot a pointer is captured by.
func (t *Tracker) Active(pointerID int) (model.SlotKey, bool) {
	key, ok := t.captured[pointerID]
	return key, ok
}

// State returns the gesture state of a slot.
func (t *Tracker) State(key model.SlotKey) State {
	if r, ok := t.slots[key]; ok {
		return r.State()
	}
	return Idle
}

type slotCapture struct {
	tracker *Tracker
	key     model.SlotKey
}

func (c slotCapture) Capture(pointerID int) {
	c.tracker.captured[pointerID] = c.key
}

func (c slotCapture) Release(pointerID int) {
	if c.tracker.captured[pointerID] == c.key {
		delete(c.tracker.captured, pointerID)
	}
}
