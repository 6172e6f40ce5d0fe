package protocol

import (
	"context"
	stderrors "errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/sseqchart/pkg/chart"
	"github.com/matzehuels/sseqchart/pkg/errors"
	"github.com/matzehuels/sseqchart/pkg/observability"
)

// HandlerFunc applies msg to c. It must leave c unchanged when it fails.
type HandlerFunc func(ctx context.Context, c *chart.Chart, msg Message) error

// Dispatcher routes messages to handlers and owns the chart they mutate.
// It serializes access to the chart, so it is safe for concurrent use.
type Dispatcher struct {
	mu       sync.Mutex
	chart    *chart.Chart
	handlers map[string]HandlerFunc
	logger   *log.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher returns a dispatcher for c with every chart command
// registered.
func NewDispatcher(c *chart.Chart, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		chart:    c,
		handlers: make(map[string]HandlerFunc),
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	for _, cmd := range []string{
		CmdClassAdd, CmdClassUpdate, CmdClassDelete,
		CmdEdgeAdd, CmdEdgeUpdate, CmdEdgeDelete,
		CmdInsertPageRange, CmdSetXRange, CmdSetYRange,
		CmdSetInitialXRange, CmdSetInitialYRange, CmdUpdate,
	} {
		d.Register(cmd, handleUpdate)
	}
	d.Register(CmdBatched, handleUpdate)
	d.Register(CmdStateReset, handleReset)
	return d
}

// Register installs h for cmd, replacing any previous handler. A handler
// registered for a prefix ("chart.class") receives every command below it
// that has no more specific handler.
func (d *Dispatcher) Register(cmd string, h HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[cmd] = h
}

// Lookup returns the handler for the longest registered prefix of cmd.
func (d *Dispatcher) Lookup(cmd Command) (string, HandlerFunc, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lookup(cmd)
}

func (d *Dispatcher) lookup(cmd Command) (string, HandlerFunc, bool) {
	for _, key := range cmd {
		if h, ok := d.handlers[key]; ok {
			return key, h, true
		}
	}
	return "", nil, false
}

// View calls fn with the chart while holding the dispatcher lock. fn must
// not retain c.
func (d *Dispatcher) View(fn func(c *chart.Chart) error) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fn(d.chart)
}

// Handle applies one message.
func (d *Dispatcher) Handle(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()

	d.mu.Lock()
	key, h, ok := d.lookup(msg.Cmd)
	var err error
	if !ok {
		err = errors.New(errors.ErrCodeUnsupported, "unknown command %q", msg.Cmd.String()).WithField("cmd")
	} else {
		err = h(ctx, d.chart, msg)
	}
	d.mu.Unlock()

	if err != nil {
		d.logger.Warn("message rejected", "cmd", msg.Cmd, "uuid", msg.UUID, "code", errors.GetCode(err), "err", err)
		observability.Chart().OnMessageRejected(ctx, msg.Cmd.String(), err)
		return err
	}
	d.logger.Debug("message handled", "cmd", msg.Cmd, "handler", key, "uuid", msg.UUID)
	observability.Chart().OnMessageHandled(ctx, msg.Cmd.String(), time.Since(start))
	return nil
}

// HandleRaw decodes data as one message or a JSON array of messages and
// handles each in turn. A failing message does not stop the ones after it;
// the errors are joined.
func (d *Dispatcher) HandleRaw(ctx context.Context, data []byte) error {
	msgs, err := DecodeAll(data)
	if err != nil {
		d.logger.Warn("undecodable message", "err", err)
		observability.Chart().OnMessageRejected(ctx, "", err)
		return err
	}
	var errs []error
	for _, msg := range msgs {
		if err := d.Handle(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func handleUpdate(ctx context.Context, c *chart.Chart, msg Message) error {
	updates, err := ToUpdates(msg)
	if err != nil {
		return err
	}
	start := time.Now()
	err = c.ApplyMessages(updates)
	observability.Chart().OnBatchApplied(ctx, len(updates), time.Since(start), err)
	return err
}

func handleReset(_ context.Context, c *chart.Chart, msg Message) error {
	state, ok := msg.Kwargs["state"]
	if !ok {
		return missing("state")
	}
	next, err := chart.DecodeValue(state)
	if err != nil {
		return errors.Wrap(codeOf(err), err, "decode state").WithField("state")
	}
	c.Reset(next)
	return nil
}

func codeOf(err error) errors.Code {
	if code := errors.GetCode(err); code != "" {
		return code
	}
	return errors.ErrCodeInvalidInput
}
