// Package channel provides the in-process Go channel adapter. It depends
// only on the local event distribution mechanism, so it is always available
// and serves as the auto-selection fallback.
package channel

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/portabus/portabus/adapter"
)

// TransportName is the name used to register this adapter.
const TransportName = "channel"

// Factory allows overriding the channel creation for testing.
var Factory = func(cfg gochannel.Config, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber) {
	pubSub := gochannel.NewGoChannel(cfg, logger)
	return pubSub, pubSub
}

func init() {
	Register()
}

// Register registers the channel adapter with the default registry.
func Register() {
	adapter.Register(TransportName, adapter.Registration{
		Builder:      Build,
		Probe:        Probe,
		Capabilities: adapter.ChannelCapabilities,
	})
}

// Build creates a new in-process channel adapter.
func Build(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (adapter.Adapter, error) {
	pub, sub := Factory(gochannel.Config{}, logger)
	return adapter.Adapter{
		Name:       TransportName,
		Publisher:  pub,
		Subscriber: sub,
	}, nil
}

// Probe always reports available.
func Probe(ctx context.Context, cfg adapter.Config) bool {
	return true
}

// Capabilities returns the capabilities of this adapter.
func Capabilities() adapter.Capabilities {
	return adapter.ChannelCapabilities
}
