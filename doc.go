// Package portabus is a pluggable domain-event publishing layer on top of
// Watermill. Application code emits Envelopes through one Publisher port;
// which broker actually carries them (Kafka, RabbitMQ, AWS SNS/SQS, NATS,
// Redis Streams, in-process channels, or a no-op sink) is resolved from
// Config at startup, not compiled into the call sites.
//
// # Adapter selection
//
// Config.Adapter picks the transport: a concrete name binds that adapter and
// hard-fails with a ConfigError when its client dependency is unavailable,
// "noop" installs a discarding publisher, and "auto" (the default) probes the
// registered transports in priority order and falls back to the in-process
// channel bus. The channel and noop adapters are always registered; the
// broker-backed ones self-register on import, individually or all at once:
//
//	_ "github.com/portabus/portabus/adapter/kafka"
//	_ "github.com/portabus/portabus/adapter/adapters"
//
// # Publishing
//
// Publish is asynchronous: it returns a Receipt immediately and delivers on a
// background goroutine, retrying transient failures with exponential backoff
// when a retry policy is configured. Callers that need the outcome wait on
// the Receipt; fire-and-forget callers just drop it.
//
// # Consuming
//
// When Config.ConsumerEnabled is set, Start subscribes to the configured
// topics and routes inbound envelopes through the Dispatcher to handlers
// registered by topic/type pattern. The Dispatcher also serves purely local
// fan-out without any broker in the path.
//
// A minimal setup fills Config, creates a Service with NewService, registers
// handlers on the Dispatcher, and calls Start.
package portabus
