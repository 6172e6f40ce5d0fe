package chart

import (
	"time"

	"github.com/matzehuels/sseqchart/pkg/errors"
)

// Op is the operation of an [Update].
type Op string

const (
	OpAdd    Op = "add"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Target is the kind of entity an [Update] addresses.
type Target string

const (
	TargetChart Target = "chart"
	TargetClass Target = "class"
	TargetEdge  Target = "edge"
)

// Update is one message of a batch. Adding to the chart target inserts the
// "page_range" field into the page list.
type Update struct {
	Op     Op             `json:"op"`
	Target Target         `json:"target"`
	UUID   string         `json:"uuid,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}

// id returns the addressed uuid, falling back to the "uuid" field.
func (u Update) id() string {
	if u.UUID != "" {
		return u.UUID
	}
	s, _ := u.Fields["uuid"].(string)
	return s
}

// ApplyMessages applies updates in order as one batch.
//
// The batch is atomic: if any update fails, the chart returns to its state
// before the call and no events are delivered. Entities that existed before
// the call keep their identity. Otherwise the buffered
// events are delivered once the batch has committed, followed by a single
// EventUpdate.
//
// Edges added before their endpoints are parked as pending and resolved at
// the end of the batch; edges that still dangle remain pending for later
// batches.
func (c *Chart) ApplyMessages(updates []Update) error {
	start := time.Now()
	var (
		buf     []Event
		journal []func()
	)
	c.buffer = &buf
	c.journal = &journal
	for i, u := range updates {
		if err := c.apply(u); err != nil {
			c.buffer = nil
			c.journal = nil
			rollback(journal)
			code := errors.GetCode(err)
			if code == "" {
				code = errors.ErrCodeInvalidInput
			}
			c.logger.Debug("batch rolled back", "index", i, "op", u.Op, "target", u.Target, "err", err)
			return errors.Wrap(code, err, "message %d (%s %s)", i, u.Target, u.Op)
		}
	}
	if _, err := c.resolvePending(); err != nil {
		c.logger.Debug("edges still pending", "count", len(c.pendingOrder))
	}
	c.buffer = nil
	c.journal = nil

	for _, ev := range buf {
		if ev.Type != EventUpdate {
			c.deliver(ev)
		}
	}
	if len(buf) > 0 {
		c.deliver(Event{Type: EventUpdate})
	}
	c.logger.Debug("batch applied", "messages", len(updates), "duration", time.Since(start))
	return nil
}

func (c *Chart) apply(u Update) error {
	switch u.Target {
	case TargetChart:
		switch {
		case u.Op == OpUpdate:
			return c.Update(u.Fields)
		case u.Op == OpAdd && u.Fields["page_range"] != nil:
			r, err := toRange(u.Fields["page_range"])
			if err != nil {
				return fieldError("page_range", err)
			}
			c.AddPageRange(r)
			return nil
		}
		return errors.New(errors.ErrCodeUnsupported, "cannot %s the chart", u.Op)

	case TargetClass:
		switch u.Op {
		case OpAdd:
			cl, err := DecodeClass(u.Fields)
			if err != nil {
				return err
			}
			if err := c.commitClass(cl); err != nil {
				return err
			}
			c.emit(Event{Type: EventClassAdded, UUID: cl.uuid})
			return nil
		case OpUpdate:
			return c.UpdateClass(u.id(), u.Fields)
		case OpDelete:
			return c.DeleteClass(u.id())
		}

	case TargetEdge:
		switch u.Op {
		case OpAdd:
			e, err := DecodeEdge(u.Fields)
			if err != nil {
				return err
			}
			_, err = c.commitEdge(e, true)
			return err
		case OpUpdate:
			return c.UpdateEdge(u.id(), u.Fields)
		case OpDelete:
			return c.DeleteEdge(u.id())
		}

	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown target %q", u.Target).WithField("target")
	}
	return errors.New(errors.ErrCodeInvalidInput, "unknown operation %q", u.Op).WithField("op")
}
