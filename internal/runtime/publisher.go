package runtime

import (
	"context"
	"errors"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/portabus/portabus/adapter"
	"github.com/portabus/portabus/envelope"
	errspkg "github.com/portabus/portabus/internal/runtime/errors"
	loggingpkg "github.com/portabus/portabus/internal/runtime/logging"
)

const tracerName = "portabus"

// SendStrategy is one mapping from an Envelope onto the bound transport
// client. Strategies are tried in order; one failing with ErrUnsupportedSend
// advances the chain, any other error ends the attempt.
type SendStrategy struct {
	Name string
	Send func(ctx context.Context, pub message.Publisher, env envelope.Envelope) error
}

// defaultSendStrategies builds the standard fallback chain:
// structured (topic+key+payload), enriched (topic/type/key as metadata),
// then bare topic+payload.
func defaultSendStrategies(ser envelope.Serializer) []SendStrategy {
	return []SendStrategy{
		{Name: "structured", Send: sendWith(envelope.ToStructuredMessage, ser)},
		{Name: "enriched", Send: sendWith(envelope.ToEnrichedMessage, ser)},
		{Name: "bare", Send: sendWith(envelope.ToBareMessage, ser)},
	}
}

func sendWith(marshal func(envelope.Envelope, envelope.Serializer) (*message.Message, error), ser envelope.Serializer) func(context.Context, message.Publisher, envelope.Envelope) error {
	return func(ctx context.Context, pub message.Publisher, env envelope.Envelope) error {
		msg, err := marshal(env, ser)
		if err != nil {
			return err
		}
		msg.SetContext(ctx)
		return pub.Publish(env.Topic, msg)
	}
}

// Publisher is the resolved publisher port: one adapter, decorated with the
// send-strategy chain and, when a policy is configured, bounded-attempt
// exponential-backoff retry. It is stateless per call and safe for
// concurrent use.
type Publisher struct {
	adapter    adapter.Adapter
	strategies []SendStrategy
	retry      *RetryPolicy // nil disables the retry decorator
	metrics    *Metrics
	logger     loggingpkg.ServiceLogger
	tracer     trace.Tracer
}

// NewPublisher wires the publish path for a resolved adapter. A nil retry
// policy means pass-through delivery (single attempt). A nil serializer
// falls back to JSON.
func NewPublisher(a adapter.Adapter, retry *RetryPolicy, ser envelope.Serializer, metrics *Metrics, logger loggingpkg.ServiceLogger) *Publisher {
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	if ser == nil {
		ser = envelope.JSONSerializer{}
	}
	if retry != nil {
		normalized := retry.withDefaults()
		retry = &normalized
	}
	return &Publisher{
		adapter:    a,
		strategies: defaultSendStrategies(ser),
		retry:      retry,
		metrics:    metrics,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
	}
}

// Publish hands the envelope to the transport asynchronously and returns a
// Receipt immediately. Ordinary transport failures surface only through the
// Receipt; an unbuilt envelope is a programming error and resolves the
// Receipt synchronously.
func (p *Publisher) Publish(ctx context.Context, env envelope.Envelope) *Receipt {
	if env.Topic == "" {
		return resolved(errspkg.ErrTopicRequired)
	}
	if p.adapter.Publisher == nil {
		return resolved(errspkg.ErrAdapterRequired)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	r := newReceipt()
	go p.deliver(ctx, env, r)
	return r
}

// Adapter returns the resolved adapter.
func (p *Publisher) Adapter() adapter.Adapter {
	return p.adapter
}

func (p *Publisher) deliver(ctx context.Context, env envelope.Envelope, r *Receipt) {
	ctx, span := p.tracer.Start(ctx, "portabus.publish")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.destination", env.Topic),
		attribute.String("messaging.operation_type", env.Operation()),
		attribute.String("messaging.message_id", env.UUID),
	)

	maxAttempts := 1
	if p.retry != nil {
		maxAttempts = p.retry.MaxAttempts
	}

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		attempts = attempt
		p.metrics.PublishAttempt(p.adapter.Name, env.Topic)

		lastErr = p.attempt(ctx, env)
		if lastErr == nil {
			p.metrics.PublishOutcome(p.adapter.Name, env.Topic, "success")
			r.resolve(nil)
			return
		}

		p.logger.Debug("Publish attempt failed", loggingpkg.LogFields{
			"adapter":   p.adapter.Name,
			"operation": env.Operation(),
			"attempt":   attempt,
			"error":     lastErr.Error(),
		})

		if p.retry == nil || attempt == maxAttempts || !p.retry.shouldRetry(lastErr) {
			break
		}
		if err := sleep(ctx, p.retry.Backoff(attempt)); err != nil {
			lastErr = err
			break
		}
	}

	p.metrics.PublishOutcome(p.adapter.Name, env.Topic, "failure")
	final := &errspkg.PublishError{
		Topic:    env.Topic,
		Type:     env.Type,
		Attempts: attempts,
		Cause:    lastErr,
	}
	p.logger.Error("Publish failed", final, loggingpkg.LogFields{
		"adapter":   p.adapter.Name,
		"operation": env.Operation(),
	})
	r.resolve(final)
}

// attempt runs the send-strategy chain once, within the per-attempt
// timeout when one is configured.
func (p *Publisher) attempt(ctx context.Context, env envelope.Envelope) error {
	if p.retry != nil && p.retry.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.retry.AttemptTimeout)
		defer cancel()
	}

	for _, strat := range p.strategies {
		err := p.send(ctx, strat, env)
		if err == nil {
			return nil
		}
		if errors.Is(err, adapter.ErrUnsupportedSend) {
			p.logger.Debug("Send strategy unsupported, trying next", loggingpkg.LogFields{
				"adapter":  p.adapter.Name,
				"strategy": strat.Name,
			})
			continue
		}
		return err
	}
	return adapter.ErrNoCompatibleSend
}

// send bounds one strategy invocation by ctx. A hung transport call is
// abandoned to its own goroutine rather than starving the retry budget.
func (p *Publisher) send(ctx context.Context, strat SendStrategy, env envelope.Envelope) error {
	done := make(chan error, 1)
	go func() {
		done <- strat.Send(ctx, p.adapter.Publisher, env)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
