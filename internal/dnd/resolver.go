package dnd

// Target is a resolved drop location.
type Target struct {
	ContainerID string
	Index       int
}

// DropTargetResolver finds the container and insertion index under the
// pointer for an item of a given type.
type DropTargetResolver struct {
	registry *Registry
}

// NewDropTargetResolver creates a resolver over the registry's droppables.
func NewDropTargetResolver(registry *Registry) *DropTargetResolver {
	return &DropTargetResolver{registry: registry}
}

// Candidate returns the id of the container under pos that accepts
// itemType. When containers overlap the smallest one wins, and equal
// areas go to the earliest registered.
func (r *DropTargetResolver) Candidate(pos Point, itemType ItemType) (string, bool) {
	var (
		best  Droppable
		found bool
	)
	for _, d := range r.registry.droppablesInOrder() {
		if d.Accepts != itemType || !d.Bounds.Contains(pos) {
			continue
		}
		if !found || d.Bounds.Area() < best.Bounds.Area() {
			best = d
			found = true
		}
	}
	return best.ID, found
}

// InsertionIndex scans the container's children (without excludeID) in
// visual order and returns the position of the first child whose
// midpoint along the container's axis lies beyond pos. A pointer exactly
// on a midpoint counts as past it, so the later index wins. When no child
// qualifies the index is the child count.
func (r *DropTargetResolver) InsertionIndex(containerID string, pos Point, excludeID string) int {
	axis := Vertical
	if d, ok := r.registry.Droppable(containerID); ok {
		axis = d.Axis
	}

	children := r.registry.Children(containerID, excludeID)
	for i, child := range children {
		if axis.before(pos, child.Bounds) {
			return i
		}
	}
	return len(children)
}

// Resolve combines Candidate and InsertionIndex.
func (r *DropTargetResolver) Resolve(pos Point, itemType ItemType, excludeID string) (Target, bool) {
	id, ok := r.Candidate(pos, itemType)
	if !ok {
		return Target{}, false
	}
	return Target{ContainerID: id, Index: r.InsertionIndex(id, pos, excludeID)}, true
}
