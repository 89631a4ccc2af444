package dnd

import (
	"io"

	log "github.com/sirupsen/logrus"
)

// DragCoordinator owns the single active drag session. It consumes the
// tracker's lifecycle, asks the resolver for the candidate container on
// every move, and emits exactly one DragEndResult per completed drag.
type DragCoordinator struct {
	resolver    *DropTargetResolver
	registry    *Registry
	session     *DragSession
	subscribers []func(DragEndResult)
	log         log.FieldLogger
}

// NewDragCoordinator creates a coordinator. A nil logger discards output.
func NewDragCoordinator(registry *Registry, resolver *DropTargetResolver, logger log.FieldLogger) *DragCoordinator {
	if logger == nil {
		l := log.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &DragCoordinator{
		resolver: resolver,
		registry: registry,
		log:      logger,
	}
}

// OnDragEnd registers fn to receive every completed drag's result.
func (c *DragCoordinator) OnDragEnd(fn func(DragEndResult)) {
	c.subscribers = append(c.subscribers, fn)
}

// Active reports whether a drag is in progress.
func (c *DragCoordinator) Active() bool {
	return c.session != nil
}

// Session returns a copy of the active session.
func (c *DragCoordinator) Session() (DragSession, bool) {
	if c.session == nil {
		return DragSession{}, false
	}
	return *c.session, true
}

// Preview returns where the item would land if released now.
func (c *DragCoordinator) Preview() (Target, bool) {
	if c.session == nil || !c.session.HasCandidate() {
		return Target{}, false
	}
	return Target{
		ContainerID: c.session.CandidateContainerID,
		Index:       c.resolver.InsertionIndex(c.session.CandidateContainerID, c.session.Position, c.session.DraggableID),
	}, true
}

// DragStart opens a session. It is ignored while another session is active.
func (c *DragCoordinator) DragStart(ev StartEvent) {
	if c.session != nil {
		c.log.WithFields(log.Fields{
			"draggable_id": ev.DraggableID,
			"active_id":    c.session.DraggableID,
		}).Debug("drag start ignored: session already active")
		return
	}

	c.session = &DragSession{
		DraggableID:   ev.DraggableID,
		ItemType:      ev.ItemType,
		Source:        Location{ContainerID: ev.ContainerID, Index: ev.Index},
		PointerOrigin: ev.Origin,
		Position:      ev.Origin,
	}
	if id, ok := c.resolver.Candidate(ev.Origin, ev.ItemType); ok {
		c.session.CandidateContainerID = id
	}

	c.log.WithFields(log.Fields{
		"draggable_id": ev.DraggableID,
		"item_type":    ev.ItemType,
		"source":       c.session.Source.String(),
	}).Debug("drag started")
}

// DragMove updates the session offset and the candidate container. The
// candidate always follows the resolver, including back to none.
func (c *DragCoordinator) DragMove(ev MoveEvent) {
	if c.session == nil {
		return
	}
	c.session.CurrentOffset = ev.Delta
	c.session.Position = ev.Position

	candidate, _ := c.resolver.Candidate(ev.Position, c.session.ItemType)
	if candidate != c.session.CandidateContainerID {
		c.session.CandidateContainerID = candidate
	}
}

// DragEnd closes the session and notifies subscribers with the result.
// It is a no-op when no session is active.
func (c *DragCoordinator) DragEnd() {
	if c.session == nil {
		return
	}
	s := *c.session
	c.session = nil

	result := DragEndResult{
		DraggableID: s.DraggableID,
		ItemType:    s.ItemType,
		Source:      s.Source,
	}
	if s.HasCandidate() {
		if _, ok := c.registry.Droppable(s.CandidateContainerID); ok {
			result.Destination = &Location{
				ContainerID: s.CandidateContainerID,
				Index:       c.resolver.InsertionIndex(s.CandidateContainerID, s.Position, s.DraggableID),
			}
		} else {
			c.log.WithField("container_id", s.CandidateContainerID).
				Warn("drop container unregistered during drag")
		}
	}

	entry := c.log.WithFields(log.Fields{
		"draggable_id": result.DraggableID,
		"item_type":    result.ItemType,
		"source":       result.Source.String(),
	})
	if result.Destination != nil {
		entry = entry.WithField("destination", result.Destination.String())
	}
	entry.Debug("drag ended")

	for _, fn := range c.subscribers {
		fn(result)
	}
}
