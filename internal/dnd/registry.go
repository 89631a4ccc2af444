package dnd

import (
	"slices"
	"sort"
)

// Registry holds the draggables and droppables currently on screen.
// Registration order is kept so that ties resolve deterministically.
type Registry struct {
	draggables map[string]Draggable
	dragOrder  []string
	droppables map[string]Droppable
	dropOrder  []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		draggables: make(map[string]Draggable),
		droppables: make(map[string]Droppable),
	}
}

// RegisterDraggable adds or replaces a draggable. Re-registering an id
// keeps its original registration position.
func (r *Registry) RegisterDraggable(d Draggable) {
	if _, exists := r.draggables[d.ID]; !exists {
		r.dragOrder = append(r.dragOrder, d.ID)
	}
	r.draggables[d.ID] = d
}

// UnregisterDraggable removes a draggable. Unknown ids are ignored.
func (r *Registry) UnregisterDraggable(id string) {
	if _, exists := r.draggables[id]; !exists {
		return
	}
	delete(r.draggables, id)
	r.dragOrder = slices.DeleteFunc(r.dragOrder, func(s string) bool { return s == id })
}

// Draggable looks up a registered draggable.
func (r *Registry) Draggable(id string) (Draggable, bool) {
	d, ok := r.draggables[id]
	return d, ok
}

// RegisterDroppable adds or replaces a droppable.
func (r *Registry) RegisterDroppable(d Droppable) {
	if _, exists := r.droppables[d.ID]; !exists {
		r.dropOrder = append(r.dropOrder, d.ID)
	}
	r.droppables[d.ID] = d
}

// UnregisterDroppable removes a droppable. Unknown ids are ignored.
func (r *Registry) UnregisterDroppable(id string) {
	if _, exists := r.droppables[id]; !exists {
		return
	}
	delete(r.droppables, id)
	r.dropOrder = slices.DeleteFunc(r.dropOrder, func(s string) bool { return s == id })
}

// Droppable looks up a registered droppable.
func (r *Registry) Droppable(id string) (Droppable, bool) {
	d, ok := r.droppables[id]
	return d, ok
}

// Reset drops every registration.
func (r *Registry) Reset() {
	clear(r.draggables)
	clear(r.droppables)
	r.dragOrder = r.dragOrder[:0]
	r.dropOrder = r.dropOrder[:0]
}

// draggablesInOrder returns draggables in registration order.
func (r *Registry) draggablesInOrder() []Draggable {
	out := make([]Draggable, 0, len(r.dragOrder))
	for _, id := range r.dragOrder {
		out = append(out, r.draggables[id])
	}
	return out
}

// droppablesInOrder returns droppables in registration order.
func (r *Registry) droppablesInOrder() []Droppable {
	out := make([]Droppable, 0, len(r.dropOrder))
	for _, id := range r.dropOrder {
		out = append(out, r.droppables[id])
	}
	return out
}

// Children returns the draggables that live in containerID, excluding
// excludeID, in visual order (by Index, then registration order).
func (r *Registry) Children(containerID, excludeID string) []Draggable {
	var out []Draggable
	for _, d := range r.draggablesInOrder() {
		if d.ContainerID != containerID || d.ID == excludeID {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
