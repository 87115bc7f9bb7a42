/*
Package runtime assembles the portabus publish and dispatch paths.

# Components

  - service.go: the Service orchestrator. Validates and normalizes
    configuration, resolves the adapter through the registry selector, and
    wires the publisher, dispatcher and consumer.
  - publisher.go: the asynchronous publish path. Maps envelopes onto the
    bound transport through a send-strategy fallback chain and decorates
    delivery with retry, tracing and metrics.
  - retry.go: the retry policy with exponential backoff and the transient
    error classifier.
  - receipt.go: the per-publish outcome handle returned to callers.
  - dispatcher.go: topic/type pattern routing of received envelopes to
    registered handlers, with per-handler failure isolation.
  - subscriber.go: the inbound consumer that drains adapter subscriptions
    into the dispatcher.
  - metrics.go: Prometheus counters for the publish and dispatch paths.

# Sub-packages

  - config/: service configuration with validation and defaults
  - errors/: sentinel errors and structured error types
  - ids/: ULID generation for envelope identity
  - jsoncodec/: shared JSON configuration
  - logging/: logger contract and Watermill bridging

Transport adapters live outside this package tree, under adapter/, and are
consumed only through the adapter registry.
*/
package runtime
