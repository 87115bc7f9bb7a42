package runtime

import (
	"context"
	"fmt"
	"sync"

	"github.com/portabus/portabus/envelope"
	"github.com/portabus/portabus/internal/runtime/jsoncodec"
	loggingpkg "github.com/portabus/portabus/internal/runtime/logging"
)

// HandlerFunc processes one received envelope.
type HandlerFunc func(ctx context.Context, env envelope.Envelope) error

// Binding ties a topic/type pattern pair to a handler. "*" or empty
// patterns match anything, otherwise exact string match. An optional Filter
// further gates delivery.
type Binding struct {
	Name    string
	Topic   string
	Type    string
	Filter  envelope.Filter
	Handler HandlerFunc
}

// Source contributes bindings during phase-1 registration. The dispatcher
// collects sources and reads their bindings only when the index is built,
// avoiding initialization-order cycles.
type Source interface {
	EventBindings() []Binding
}

// Dispatcher routes received envelopes to pattern-matched handlers.
// Registration is two-phase: Register/RegisterSource record intent; the
// match index is built once, lazily, on first Dispatch (or an explicit
// Ready call), guarded by a lock with idempotent re-entry.
type Dispatcher struct {
	mu      sync.Mutex
	pending []Binding
	sources []Source
	index   []Binding
	built   bool

	logger  loggingpkg.ServiceLogger
	metrics *Metrics
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger loggingpkg.ServiceLogger, metrics *Metrics) *Dispatcher {
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	return &Dispatcher{logger: logger, metrics: metrics}
}

// Register binds a handler to a topic/type pattern pair.
func (d *Dispatcher) Register(topicPattern, typePattern string, h HandlerFunc) {
	d.RegisterBinding(Binding{Topic: topicPattern, Type: typePattern, Handler: h})
}

// RegisterBinding records one binding. Registrations after the index is
// built take effect immediately.
func (d *Dispatcher) RegisterBinding(b Binding) {
	if b.Handler == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.built {
		d.index = append(d.index, b)
		return
	}
	d.pending = append(d.pending, b)
}

// RegisterSource records a binding source whose bindings are collected when
// the index is built.
func (d *Dispatcher) RegisterSource(s Source) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.built {
		d.index = append(d.index, s.EventBindings()...)
		return
	}
	d.sources = append(d.sources, s)
}

// Ready builds the match index explicitly. Calling it more than once, or
// relying on the lazy first-dispatch build instead, is equivalent.
func (d *Dispatcher) Ready() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.buildIndexLocked()
}

func (d *Dispatcher) buildIndexLocked() {
	if d.built {
		return
	}
	d.index = append(d.index, d.pending...)
	for _, s := range d.sources {
		d.index = append(d.index, s.EventBindings()...)
	}
	d.pending = nil
	d.sources = nil
	d.built = true
}

// Dispatch delivers the envelope to every matching handler and returns the
// number of handlers invoked. Handler failures are caught per handler so
// one broken handler never blocks delivery to the others.
func (d *Dispatcher) Dispatch(ctx context.Context, env envelope.Envelope) int {
	d.mu.Lock()
	d.buildIndexLocked()
	bindings := d.index
	d.mu.Unlock()

	delivered := 0
	for _, b := range bindings {
		if !envelope.MatchPattern(b.Topic, env.Topic) || !envelope.MatchPattern(b.Type, env.Type) {
			continue
		}
		if b.Filter != nil && !b.Filter(env) {
			continue
		}
		delivered++
		d.invoke(ctx, b, env)
	}

	if delivered > 0 {
		d.metrics.Dispatched(env.Topic)
	}
	return delivered
}

func (d *Dispatcher) invoke(ctx context.Context, b Binding, env envelope.Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			d.metrics.HandlerFailure(env.Topic)
			d.logger.Error("Handler panicked", fmt.Errorf("panic: %v", rec), loggingpkg.LogFields{
				"handler":   b.Name,
				"operation": env.Operation(),
			})
		}
	}()

	if err := b.Handler(ctx, env); err != nil {
		d.metrics.HandlerFailure(env.Topic)
		d.logger.Error("Handler failed", err, loggingpkg.LogFields{
			"handler":   b.Name,
			"operation": env.Operation(),
		})
	}
}

// On registers a typed handler: the envelope payload is decoded into T
// before invocation. Raw []byte and string payloads are JSON-decoded;
// payloads already of type T pass through. Decode failures fall back to
// handing the raw payload to handlers that accept it ([]byte or string T),
// otherwise they are reported as handler failures.
func On[T any](d *Dispatcher, topicPattern, typePattern string, fn func(ctx context.Context, env envelope.Envelope, payload T) error) {
	d.Register(topicPattern, typePattern, func(ctx context.Context, env envelope.Envelope) error {
		payload, err := decodePayload[T](env.Payload)
		if err != nil {
			return fmt.Errorf("portabus: cannot decode payload for %s: %w", env.Operation(), err)
		}
		return fn(ctx, env, payload)
	})
}

func decodePayload[T any](payload any) (T, error) {
	if typed, ok := payload.(T); ok {
		return typed, nil
	}

	var raw []byte
	switch p := payload.(type) {
	case []byte:
		raw = p
	case string:
		raw = []byte(p)
	default:
		var zero T
		return zero, fmt.Errorf("payload type %T does not match handler", payload)
	}

	var decoded T
	if err := jsoncodec.Unmarshal(raw, &decoded); err == nil {
		return decoded, nil
	}

	// Best effort: a string-typed handler still gets the raw bytes.
	if s, ok := any(string(raw)).(T); ok {
		return s, nil
	}
	var zero T
	return zero, fmt.Errorf("payload is not valid JSON for handler type %T", zero)
}
