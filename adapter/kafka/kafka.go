// Package kafka provides the Apache Kafka adapter. The envelope key drives
// partition placement through a partitioning marshaler.
package kafka

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/portabus/portabus/adapter"
	"github.com/portabus/portabus/envelope"
)

// TransportName is the name used to register this adapter.
const TransportName = "kafka"

// PublisherFactory allows overriding the publisher creation for testing.
var PublisherFactory = func(cfg kafka.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	return kafka.NewPublisher(cfg, logger)
}

// SubscriberFactory allows overriding the subscriber creation for testing.
var SubscriberFactory = func(cfg kafka.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
	return kafka.NewSubscriber(cfg, logger)
}

func init() {
	Register()
}

// Register registers the Kafka adapter with the default registry.
func Register() {
	adapter.Register(TransportName, adapter.Registration{
		Builder:      Build,
		Probe:        Probe,
		Capabilities: adapter.KafkaCapabilities,
	})
}

// Build creates a new Kafka adapter. Messages carrying the well-known key
// metadata are partitioned by it; the rest fall back to random placement.
func Build(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (adapter.Adapter, error) {
	brokers := cfg.GetKafkaBrokers()
	marshaler := kafka.NewWithPartitioningMarshaler(partitionKey)

	publisher, err := PublisherFactory(
		kafka.PublisherConfig{
			Brokers:   brokers,
			Marshaler: marshaler,
		},
		logger,
	)
	if err != nil {
		return adapter.Adapter{}, err
	}

	subscriber, err := SubscriberFactory(
		kafka.SubscriberConfig{
			Brokers:       brokers,
			Unmarshaler:   marshaler,
			ConsumerGroup: cfg.GetKafkaConsumerGroup(),
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

// Probe reports whether a Kafka client can be constructed: at least one
// bootstrap broker must be configured.
func Probe(ctx context.Context, cfg adapter.Config) bool {
	return cfg != nil && len(cfg.GetKafkaBrokers()) > 0
}

// Capabilities returns the capabilities of this adapter.
func Capabilities() adapter.Capabilities {
	return adapter.KafkaCapabilities
}

func partitionKey(topic string, msg *message.Message) (string, error) {
	return msg.Metadata.Get(envelope.MetadataKeyKey), nil
}
