package chart

import "sort"

// EventType classifies a chart notification.
type EventType int

const (
	EventClassAdded EventType = iota
	EventEdgeAdded
	EventClassDeleted
	EventEdgeDeleted
	EventReset
	// EventUpdate follows every externally visible mutation.
	EventUpdate
)

func (t EventType) String() string {
	switch t {
	case EventClassAdded:
		return "class_added"
	case EventEdgeAdded:
		return "edge_added"
	case EventClassDeleted:
		return "class_deleted"
	case EventEdgeDeleted:
		return "edge_deleted"
	case EventReset:
		return "reset"
	case EventUpdate:
		return "update"
	default:
		return "unknown"
	}
}

// Event is a change notification. UUID names the affected entity and is
// empty for chart-wide events.
type Event struct {
	Type EventType
	UUID string
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. Handlers run synchronously on the mutating goroutine.
func (c *Chart) Subscribe(fn func(Event)) (cancel func()) {
	id := c.nextSub
	c.nextSub++
	if c.subs == nil {
		c.subs = make(map[int]func(Event))
	}
	c.subs[id] = fn
	return func() { delete(c.subs, id) }
}

// emit delivers ev, or buffers it while a batch is being applied.
func (c *Chart) emit(ev Event) {
	if c.buffer != nil {
		*c.buffer = append(*c.buffer, ev)
		return
	}
	c.deliver(ev)
}

// changed emits evs followed by a single EventUpdate.
func (c *Chart) changed(evs ...Event) {
	for _, ev := range evs {
		c.emit(ev)
	}
	c.emit(Event{Type: EventUpdate})
}

func (c *Chart) deliver(ev Event) {
	ids := make([]int, 0, len(c.subs))
	for id := range c.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		if fn, ok := c.subs[id]; ok {
			fn(ev)
		}
	}
}
