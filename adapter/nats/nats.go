// Package nats provides the NATS Core adapter.
package nats

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/portabus/portabus/adapter"
)

// TransportName is the name used to register this adapter.
const TransportName = "nats"

// probeTimeout bounds the dial performed by Probe.
const probeTimeout = 2 * time.Second

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return nats.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return nats.NewSubscriber(cfg, logger)
}

// Dialer allows overriding the probe connection for testing.
var Dialer = func(url string) error {
	conn, err := natsgo.Connect(url, natsgo.Timeout(probeTimeout), natsgo.RetryOnFailedConnect(false))
	if err != nil {
		return err
	}
	conn.Close()
	return nil
}

func init() {
	Register()
}

// Register registers the NATS adapter with the default registry.
func Register() {
	adapter.Register(TransportName, adapter.Registration{
		Builder:      Build,
		Probe:        Probe,
		Capabilities: adapter.NATSCapabilities,
	})
}

// Build creates a new NATS Core adapter.
func Build(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (adapter.Adapter, error) {
	url := cfg.GetNATSURL()
	marshaler := &nats.NATSMarshaler{}

	publisher, err := PublisherFactory(
		nats.PublisherConfig{
			URL:       url,
			Marshaler: marshaler,
		},
		logger,
	)
	if err != nil {
		return adapter.Adapter{}, err
	}

	subscriber, err := SubscriberFactory(
		nats.SubscriberConfig{
			URL:         url,
			Unmarshaler: marshaler,
		},
		logger,
	)
	if err != nil {
		return adapter.Adapter{}, err
	}

	return adapter.Adapter{
		Name:       TransportName,
		Publisher:  publisher,
		Subscriber: subscriber,
	}, nil
}

// Probe reports whether a NATS server is configured and answers a short
// dial. A live connection is required, not just a URL.
func Probe(ctx context.Context, cfg adapter.Config) bool {
	if cfg == nil || cfg.GetNATSURL() == "" {
		return false
	}
	return Dialer(cfg.GetNATSURL()) == nil
}

// Capabilities returns the capabilities of this adapter.
func Capabilities() adapter.Capabilities {
	return adapter.NATSCapabilities
}
