package dnd

import log "github.com/sirupsen/logrus"

// Context wires a registry, pointer tracker, resolver and coordinator
// into one mediator. Draggables, droppables and the drag-end subscriber
// all talk to the Context directly; there is no global event bus.
type Context struct {
	registry    *Registry
	tracker     *PointerTracker
	coordinator *DragCoordinator
}

// Option configures a Context.
type Option func(*contextOptions)

type contextOptions struct {
	logger     log.FieldLogger
	activation float64
}

// WithLogger sets the logger used for drag lifecycle events.
func WithLogger(l log.FieldLogger) Option {
	return func(o *contextOptions) { o.logger = l }
}

// WithActivationDistance delays the drag start until the pointer has
// moved d cells from the press.
func WithActivationDistance(d float64) Option {
	return func(o *contextOptions) { o.activation = d }
}

// NewContext builds a drag-and-drop context.
func NewContext(opts ...Option) *Context {
	var o contextOptions
	for _, opt := range opts {
		opt(&o)
	}

	registry := NewRegistry()
	coordinator := NewDragCoordinator(registry, NewDropTargetResolver(registry), o.logger)
	tracker := NewPointerTracker(registry, coordinator, o.activation)

	return &Context{
		registry:    registry,
		tracker:     tracker,
		coordinator: coordinator,
	}
}

// RegisterDraggable makes an item pickable.
func (c *Context) RegisterDraggable(d Draggable) { c.registry.RegisterDraggable(d) }

// UnregisterDraggable removes an item.
func (c *Context) UnregisterDraggable(id string) { c.registry.UnregisterDraggable(id) }

// RegisterDroppable makes a container a drop target.
func (c *Context) RegisterDroppable(d Droppable) { c.registry.RegisterDroppable(d) }

// UnregisterDroppable removes a container.
func (c *Context) UnregisterDroppable(id string) { c.registry.UnregisterDroppable(id) }

// ResetLayout drops every registration, typically before re-registering
// the freshly laid-out screen. An active drag session is kept.
func (c *Context) ResetLayout() { c.registry.Reset() }

// OnDragEnd subscribes fn to completed drags.
func (c *Context) OnDragEnd(fn func(DragEndResult)) { c.coordinator.OnDragEnd(fn) }

// HandlePointer feeds one raw pointer event into the engine.
func (c *Context) HandlePointer(ev PointerEvent) { c.tracker.Handle(ev) }

// Session returns the active drag session, if any.
func (c *Context) Session() (DragSession, bool) { return c.coordinator.Session() }

// Dragging reports whether a drag is in progress.
func (c *Context) Dragging() bool { return c.coordinator.Active() }

// Preview returns the drop target the active drag currently points at.
func (c *Context) Preview() (Target, bool) { return c.coordinator.Preview() }
