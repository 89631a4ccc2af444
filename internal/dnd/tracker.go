package dnd

// Button identifies the pointer button involved in an event.
type Button int

const (
	ButtonNone Button = iota
	ButtonPrimary
	ButtonMiddle
	ButtonSecondary
)

// PointerAction is the kind of raw pointer input.
type PointerAction int

const (
	PointerDown PointerAction = iota
	PointerMove
	PointerUp
)

// PointerEvent is one raw input sample.
type PointerEvent struct {
	Action   PointerAction
	Button   Button
	Position Point
}

// StartEvent is emitted when a drag begins.
type StartEvent struct {
	DraggableID string
	ItemType    ItemType
	ContainerID string
	Index       int
	Origin      Point
}

// MoveEvent is emitted for every pointer movement during a drag.
type MoveEvent struct {
	// Delta is the cumulative offset from the drag origin.
	Delta    Point
	Position Point
}

// DragListener receives the normalized drag lifecycle.
type DragListener interface {
	DragStart(StartEvent)
	DragMove(MoveEvent)
	DragEnd()
}

// TrackerState is the pointer tracker's lifecycle state.
type TrackerState int

const (
	TrackerIdle TrackerState = iota
	TrackerArmed
	TrackerDragging
)

func (s TrackerState) String() string {
	switch s {
	case TrackerArmed:
		return "armed"
	case TrackerDragging:
		return "dragging"
	default:
		return "idle"
	}
}

// PointerTracker turns raw pointer input over registered draggables into
// dragStart/dragMove/dragEnd notifications. It knows nothing about what
// is being dragged or where it may be dropped.
type PointerTracker struct {
	registry   *Registry
	listener   DragListener
	activation float64

	state  TrackerState
	armed  Draggable
	origin Point

	// captured is set between press and release; while it is set the
	// tracker consumes every move/up event regardless of position.
	captured bool
}

// NewPointerTracker creates a tracker over the registry's draggables.
// activation is the distance the pointer must travel after the press
// before the drag starts; zero starts the drag on press.
func NewPointerTracker(registry *Registry, listener DragListener, activation float64) *PointerTracker {
	return &PointerTracker{
		registry:   registry,
		listener:   listener,
		activation: activation,
	}
}

// State returns the current lifecycle state.
func (t *PointerTracker) State() TrackerState {
	return t.state
}

// Handle processes one raw pointer event.
func (t *PointerTracker) Handle(ev PointerEvent) {
	switch ev.Action {
	case PointerDown:
		t.press(ev)
	case PointerMove:
		t.move(ev)
	case PointerUp:
		t.release()
	}
}

func (t *PointerTracker) press(ev PointerEvent) {
	if t.state != TrackerIdle || ev.Button != ButtonPrimary {
		return
	}

	owner, ok := t.ownerAt(ev.Position)
	if !ok || !owner.handleContains(ev.Position) {
		return
	}

	t.state = TrackerArmed
	t.armed = owner
	t.origin = ev.Position
	t.captured = true

	if t.activation <= 0 {
		t.start()
	}
}

func (t *PointerTracker) move(ev PointerEvent) {
	if !t.captured {
		return
	}
	if t.state == TrackerArmed {
		if ev.Position.Dist(t.origin) < t.activation {
			return
		}
		t.start()
	}
	t.listener.DragMove(MoveEvent{
		Delta:    ev.Position.Sub(t.origin),
		Position: ev.Position,
	})
}

func (t *PointerTracker) release() {
	if !t.captured {
		return
	}
	dragging := t.state == TrackerDragging
	t.state = TrackerIdle
	t.armed = Draggable{}
	t.captured = false
	if dragging {
		t.listener.DragEnd()
	}
}

func (t *PointerTracker) start() {
	t.state = TrackerDragging
	t.listener.DragStart(StartEvent{
		DraggableID: t.armed.ID,
		ItemType:    t.armed.Type,
		ContainerID: t.armed.ContainerID,
		Index:       t.armed.Index,
		Origin:      t.origin,
	})
}

// ownerAt returns the innermost draggable whose bounds contain p. Nested
// draggables are smaller than their parents, so the smallest area wins;
// equal areas go to the most recently registered one.
func (t *PointerTracker) ownerAt(p Point) (Draggable, bool) {
	var (
		best  Draggable
		found bool
	)
	for _, d := range t.registry.draggablesInOrder() {
		if !d.Bounds.Contains(p) {
			continue
		}
		if !found || d.Bounds.Area() <= best.Bounds.Area() {
			best = d
			found = true
		}
	}
	return best, found
}
