package reconcile

import (
	"errors"
	"fmt"
)

// NotFoundError reports an operation on an id absent from the local board.
type NotFoundError struct {
	Kind string // "task", "column" or "ticket"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// IsNotFound reports whether err (or any error in its chain) is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidDragError reports a drag result whose destination names a
// container that is not on the board.
type InvalidDragError struct {
	DraggableID string
	ContainerID string
}

func (e *InvalidDragError) Error() string {
	return fmt.Sprintf("drag of %q cannot land in container %q", e.DraggableID, e.ContainerID)
}

// IsInvalidDrag reports whether err (or any error in its chain) is an InvalidDragError.
func IsInvalidDrag(err error) bool {
	var id *InvalidDragError
	return errors.As(err, &id)
}
