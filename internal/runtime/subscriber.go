package runtime

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/portabus/portabus/adapter"
	"github.com/portabus/portabus/envelope"
	errspkg "github.com/portabus/portabus/internal/runtime/errors"
	loggingpkg "github.com/portabus/portabus/internal/runtime/logging"
)

// ConsumerOptions tunes the inbound consumption loops.
type ConsumerOptions struct {
	Topics []string
	// TypeHeader and KeyHeader name the metadata keys carrying the event
	// type and key on inbound messages.
	TypeHeader string
	KeyHeader  string
	// DrainTimeout bounds the Stop wait for in-flight handlers.
	DrainTimeout time.Duration
}

// Consumer pulls messages from the adapter's subscriber, decodes them into
// envelopes and hands them to the dispatcher. One goroutine per topic.
// Messages are acknowledged after dispatch regardless of handler outcome;
// handler failures are observed, not redelivered.
type Consumer struct {
	adapter    adapter.Adapter
	dispatcher *Dispatcher
	opts       ConsumerOptions
	logger     loggingpkg.ServiceLogger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewConsumer wires inbound consumption for a resolved adapter.
func NewConsumer(a adapter.Adapter, d *Dispatcher, opts ConsumerOptions, logger loggingpkg.ServiceLogger) *Consumer {
	if logger == nil {
		logger = loggingpkg.Nop()
	}
	if opts.TypeHeader == "" {
		opts.TypeHeader = envelope.MetadataKeyType
	}
	if opts.KeyHeader == "" {
		opts.KeyHeader = envelope.MetadataKeyKey
	}
	return &Consumer{adapter: a, dispatcher: d, opts: opts, logger: logger}
}

// Start subscribes to every configured topic. Starting an already running
// consumer is a no-op.
func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return nil
	}
	if c.adapter.Subscriber == nil {
		return errspkg.ErrAdapterRequired
	}
	if c.dispatcher == nil {
		return errspkg.ErrHandlerRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}

	loopCtx, cancel := context.WithCancel(ctx)

	for _, topic := range c.opts.Topics {
		messages, err := c.adapter.Subscriber.Subscribe(loopCtx, topic)
		if err != nil {
			cancel()
			return err
		}
		c.wg.Add(1)
		go c.consume(loopCtx, topic, messages)
	}

	c.cancel = cancel
	c.running = true
	c.logger.Info("Consumer started", loggingpkg.LogFields{
		"adapter": c.adapter.Name,
		"topics":  c.opts.Topics,
	})
	return nil
}

func (c *Consumer) consume(ctx context.Context, topic string, messages <-chan *message.Message) {
	defer c.wg.Done()
	for msg := range messages {
		c.handle(ctx, topic, msg)
	}
	c.logger.Debug("Consumer loop ended", loggingpkg.LogFields{
		"adapter": c.adapter.Name,
		"topic":   topic,
	})
}

func (c *Consumer) handle(ctx context.Context, topic string, msg *message.Message) {
	// Ack unconditionally: dispatch outcome is observed through logs and
	// metrics, redelivery of a failed handler would duplicate the others.
	defer msg.Ack()

	env := envelope.FromMessage(topic, msg, c.opts.TypeHeader, c.opts.KeyHeader)
	delivered := c.dispatcher.Dispatch(ctx, env)
	if delivered == 0 {
		c.logger.Trace("No handler matched", loggingpkg.LogFields{
			"operation": env.Operation(),
			"uuid":      env.UUID,
		})
	}
}

// Stop cancels the subscriptions and waits up to DrainTimeout for in-flight
// handlers to finish. It is idempotent.
func (c *Consumer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return nil
	}
	c.cancel()
	c.running = false

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	drain := c.opts.DrainTimeout
	if drain <= 0 {
		drain = 10 * time.Second
	}
	t := time.NewTimer(drain)
	defer t.Stop()
	select {
	case <-done:
		return nil
	case <-t.C:
		c.logger.Error("Consumer drain timed out", context.DeadlineExceeded, loggingpkg.LogFields{
			"adapter": c.adapter.Name,
			"timeout": drain.String(),
		})
		return context.DeadlineExceeded
	}
}

// Running reports whether the consumer loops are active.
func (c *Consumer) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
