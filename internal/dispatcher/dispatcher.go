package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mucoll/hitstats/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrDuplicateHandler is returned when a name is registered twice.
var ErrDuplicateHandler = errors.New("handler already registered")

// HandlerFunc processes one event.
type HandlerFunc func(ctx context.Context, ev *core.Event) error

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	logged   bool
	required []string
}

// Logged adds debug timing logs around the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Requires skips the handler for events that carry none of the named
// collections. The skip is logged at debug level and is not an error.
func Requires(collections ...string) Option {
	return func(c *config) {
		c.required = append(c.required, collections...)
	}
}

type entry struct {
	name    string
	handler HandlerFunc
	count   int64
	skipped int64
}

// Dispatcher hands every event to the registered handlers in registration
// order. The first handler error stops the event and is returned.
type Dispatcher struct {
	mu      sync.RWMutex
	entries []*entry
	byName  map[string]*entry
	logger  Logger

	processed metric.Int64Counter
	failed    metric.Int64Counter
	duration  metric.Float64Histogram
}

// New creates a Dispatcher using the global OTel meter (no-op if not
// configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		byName: make(map[string]*entry),
		logger: logger,
	}

	m := meter()
	var err error

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Events handled successfully, per handler"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	d.duration, err = m.Float64Histogram(
		"dispatcher.event.duration",
		metric.WithDescription("Handler time per event"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a named handler. Names must be unique.
func (d *Dispatcher) Register(name string, h HandlerFunc, opts ...Option) error {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h
	if len(cfg.required) > 0 {
		handler = d.withRequired(name, cfg.required, handler)
	}
	if cfg.logged {
		handler = d.withLogging(name, handler)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.byName[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, name)
	}
	e := &entry{name: name, handler: handler}
	d.entries = append(d.entries, e)
	d.byName[name] = e
	return nil
}

// Dispatch runs every handler on ev. A cancelled context stops dispatch
// before the first handler.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *core.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.RLock()
	entries := d.entries
	d.mu.RUnlock()

	for _, e := range entries {
		attrs := metric.WithAttributes(attribute.String("handler", e.name))
		start := time.Now()

		err := e.handler(ctx, ev)
		d.duration.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
		if err != nil {
			d.failed.Add(ctx, 1, attrs)
			return fmt.Errorf("%s: event %d: %w", e.name, ev.EventNumber, err)
		}
		d.processed.Add(ctx, 1, attrs)

		d.mu.Lock()
		e.count++
		d.mu.Unlock()
	}
	return nil
}

// HasHandler reports whether name is registered.
func (d *Dispatcher) HasHandler(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.byName[name]
	return ok
}

// Handlers returns registered names in dispatch order.
func (d *Dispatcher) Handlers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.entries))
	for i, e := range d.entries {
		names[i] = e.name
	}
	return names
}

// Processed returns how many events name has handled, including events
// it skipped through Requires.
func (d *Dispatcher) Processed(name string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.byName[name]; ok {
		return e.count
	}
	return 0
}

// Skipped returns how many events name skipped through Requires.
func (d *Dispatcher) Skipped(name string) int64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if e, ok := d.byName[name]; ok {
		return e.skipped
	}
	return 0
}

func (d *Dispatcher) withRequired(name string, collections []string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, ev *core.Event) error {
		for _, c := range collections {
			if _, ok := ev.Collection(c); ok {
				return h(ctx, ev)
			}
		}
		d.logger.Debug("no required collection in event", "handler", name, "event", ev.EventNumber)
		d.mu.Lock()
		if e, ok := d.byName[name]; ok {
			e.skipped++
		}
		d.mu.Unlock()
		return nil
	}
}

func (d *Dispatcher) withLogging(name string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, ev *core.Event) error {
		start := time.Now()
		d.logger.Debug("handling event", "handler", name, "event", ev.EventNumber)

		err := h(ctx, ev)

		if err != nil {
			d.logger.Error("event failed", "handler", name, "event", ev.EventNumber, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "handler", name, "event", ev.EventNumber, "duration", time.Since(start))
		}
		return err
	}
}
