// Package noop provides an adapter that accepts every envelope and reports
// success without performing any I/O. It disables publishing entirely, for
// example in tests.
package noop

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/portabus/portabus/adapter"
)

// TransportName is the name used to register this adapter.
const TransportName = "noop"

func init() {
	Register()
}

// Register registers the no-op adapter with the default registry.
func Register() {
	adapter.Register(TransportName, adapter.Registration{
		Builder:      Build,
		Probe:        Probe,
		Capabilities: adapter.NoopCapabilities,
	})
}

// Build creates a new no-op adapter.
func Build(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (adapter.Adapter, error) {
	return adapter.Adapter{
		Name:       TransportName,
		Publisher:  Publisher{},
		Subscriber: Subscriber{},
	}, nil
}

// Probe always reports available.
func Probe(ctx context.Context, cfg adapter.Config) bool {
	return true
}

// Capabilities returns the capabilities of this adapter.
func Capabilities() adapter.Capabilities {
	return adapter.NoopCapabilities
}

// Publisher reports success for every publish without I/O.
type Publisher struct{}

func (Publisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (Publisher) Close() error                                             { return nil }

// Subscriber delivers nothing; its channel closes when the context ends.
type Subscriber struct{}

func (Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	out := make(chan *message.Message)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

func (Subscriber) Close() error { return nil }
