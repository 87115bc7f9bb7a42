// Package adapter defines the publisher port all transports implement, the
// registry they register into, and the selector that resolves one adapter
// from configuration or runtime capability probing. Each transport lives in
// its own sub-package and registers itself here.
package adapter

import (
	"context"
	"errors"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

// Adapter binds one transport: a publisher/subscriber pair plus the name it
// was registered under. The resolved Adapter is chosen once at startup and
// shared read-only for the process lifetime.
type Adapter struct {
	Name       string
	Publisher  message.Publisher
	Subscriber message.Subscriber
}

// Builder creates an adapter from config. Each transport package provides
// one and registers it.
type Builder func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Adapter, error)

// Probe reports whether the transport's client dependency is reachable:
// configured and, where cheap to check, answering. The selector consults
// probes during auto selection and to hard-fail explicit misconfiguration.
type Probe func(ctx context.Context, cfg Config) bool

// Config exposes the configuration values adapters need, so transport
// packages do not depend on the full config package.
type Config interface {
	// GetAdapter returns the selected adapter name ("auto", "noop", or a
	// concrete transport name).
	GetAdapter() string

	// GetAutoOrder returns the probe priority order for auto selection.
	// Empty means the default order.
	GetAutoOrder() []string

	// Kafka
	GetKafkaBrokers() []string
	GetKafkaConsumerGroup() string

	// NATS
	GetNATSURL() string

	// RabbitMQ
	GetRabbitMQURL() string

	// Redis Streams
	GetRedisAddr() string
	GetRedisConsumerGroup() string
	GetRedisConsumerName() string

	// AWS SNS/SQS
	GetAWSRegion() string
	GetAWSAccountID() string
	GetAWSAccessKeyID() string
	GetAWSSecretAccessKey() string
	GetAWSEndpoint() string
	GetAWSTopicARN() string

	// Inbound polling
	GetPollBatchSize() int
	GetPollWait() time.Duration
}

var (
	// ErrUnsupportedSend signals that the bound client does not support the
	// attempted send variant. The publish path catches it and advances to
	// the next mapping in the fallback chain.
	ErrUnsupportedSend = errors.New("portabus: send variant unsupported by bound client")

	// ErrNoCompatibleSend is raised when every mapping in the fallback
	// chain is unsupported. It is permanent, never retried.
	ErrNoCompatibleSend = errors.New("portabus: no compatible send method for adapter")
)
