package adapter

// Capabilities describes what a transport backend can do. The core does not
// strengthen any of these guarantees; they exist for introspection.
type Capabilities struct {
	// Name is the transport name as registered.
	Name string

	// SupportsOrdering indicates the transport preserves ordering within a
	// partition or stream. The core provides no cross-call ordering either way.
	SupportsOrdering bool

	// SupportsKeyedPartitioning indicates the envelope Key influences
	// message placement.
	SupportsKeyedPartitioning bool

	// SupportsAck indicates explicit message acknowledgment.
	SupportsAck bool

	// SupportsNack indicates negative acknowledgment (redelivery).
	SupportsNack bool

	// SupportsBatching indicates the transport can batch sends.
	SupportsBatching bool

	// MaxMessageSize is the maximum message size in bytes (0 = unknown).
	MaxMessageSize int64
}

// SupportsReliableDelivery reports at-least-once semantics (ack + nack).
func (c Capabilities) SupportsReliableDelivery() bool {
	return c.SupportsAck && c.SupportsNack
}

// Predefined capability sets for the built-in transports.
var (
	ChannelCapabilities = Capabilities{
		Name:             "channel",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	KafkaCapabilities = Capabilities{
		Name:                      "kafka",
		SupportsOrdering:          true,
		SupportsKeyedPartitioning: true,
		SupportsAck:               true,
		SupportsBatching:          true,
		MaxMessageSize:            1048576,
	}

	NATSCapabilities = Capabilities{
		Name:           "nats",
		MaxMessageSize: 1048576,
	}

	RabbitMQCapabilities = Capabilities{
		Name:             "rabbitmq",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	RedisStreamCapabilities = Capabilities{
		Name:             "redis",
		SupportsOrdering: true,
		SupportsAck:      true,
		SupportsNack:     true,
	}

	AWSCapabilities = Capabilities{
		Name:                      "aws",
		SupportsOrdering:          true,
		SupportsKeyedPartitioning: true,
		SupportsAck:               true,
		SupportsNack:              true,
		SupportsBatching:          true,
		MaxMessageSize:            262144,
	}

	NoopCapabilities = Capabilities{
		Name: "noop",
	}
)

// GetCapabilities returns the capabilities registered for a transport name.
func GetCapabilities(name string) Capabilities {
	return DefaultRegistry.GetCapabilities(name)
}
