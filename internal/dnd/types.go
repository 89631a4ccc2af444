// Package dnd implements a headless drag-and-drop engine: a pointer
// tracker that turns raw press/move/release input into a drag lifecycle,
// a resolver that finds the drop container and insertion index under the
// pointer, and a coordinator that owns the single active drag session and
// reports one DragEndResult per drag.
package dnd

import "fmt"

// ItemType distinguishes what is being dragged. Containers only accept
// items of their declared type.
type ItemType string

// Item types used by the board.
const (
	ItemTask   ItemType = "task"
	ItemColumn ItemType = "column"
)

// Location identifies a slot inside a container.
type Location struct {
	ContainerID string `json:"container_id"`
	Index       int    `json:"index"`
}

func (l Location) String() string {
	return fmt.Sprintf("%s[%d]", l.ContainerID, l.Index)
}

// DragEndResult is the sole output of a drag session. Destination is nil
// when the item was released outside every accepting container.
type DragEndResult struct {
	DraggableID string    `json:"draggable_id"`
	ItemType    ItemType  `json:"item_type"`
	Source      Location  `json:"source"`
	Destination *Location `json:"destination,omitempty"`
}

// IsNoop reports whether applying the result would leave the board
// unchanged: no destination, or a destination equal to the source.
func (r DragEndResult) IsNoop() bool {
	return r.Destination == nil || *r.Destination == r.Source
}

// SameContainer reports whether the item stays in its source container.
func (r DragEndResult) SameContainer() bool {
	return r.Destination != nil && r.Destination.ContainerID == r.Source.ContainerID
}

// DragSession is the ephemeral state of the active drag. It exists only
// between drag start and drag end and is never persisted.
type DragSession struct {
	DraggableID   string
	ItemType      ItemType
	Source        Location
	PointerOrigin Point
	CurrentOffset Point

	// Position is the last absolute pointer position.
	Position Point

	// CandidateContainerID is the container currently under the pointer,
	// or "" when there is none.
	CandidateContainerID string
}

// HasCandidate reports whether the pointer is over an accepting container.
func (s DragSession) HasCandidate() bool {
	return s.CandidateContainerID != ""
}

// Draggable describes an item that can be picked up.
type Draggable struct {
	ID          string
	Type        ItemType
	ContainerID string
	Index       int
	Bounds      Rect

	// Handle is the region sensitive to drag-initiating presses. When nil
	// the whole Bounds is the handle.
	Handle *Rect
}

// handleContains reports whether p lies in the draggable's handle region.
func (d Draggable) handleContains(p Point) bool {
	if d.Handle != nil {
		return d.Handle.Contains(p)
	}
	return d.Bounds.Contains(p)
}

// Droppable describes a container that accepts dropped items.
type Droppable struct {
	ID      string
	Accepts ItemType
	Bounds  Rect
	Axis    Axis
}
