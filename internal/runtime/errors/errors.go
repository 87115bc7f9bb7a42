// Package errors defines the sentinel errors and structured error types
// shared across the portabus runtime and adapter packages.
package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	ErrTopicRequired     = sterrors.New("portabus: topic is required")
	ErrEnvelopeRequired  = sterrors.New("portabus: envelope is required")
	ErrPublisherRequired = sterrors.New("portabus: publisher is required")
	ErrAdapterRequired   = sterrors.New("portabus: adapter is required")
	ErrConfigRequired    = sterrors.New("portabus: config is required")
	ErrLoggerRequired    = sterrors.New("portabus: logger is required")
	ErrHandlerRequired   = sterrors.New("portabus: handler function is required")
	ErrConsumerStopped   = sterrors.New("portabus: consumer is stopped")

	// ErrThrottled marks a broker-reported rate-limit condition. The retry
	// decorator treats it as transient.
	ErrThrottled = sterrors.New("portabus: publish throttled by transport")

	// ErrRetriable marks a broker-reported retriable condition that does not
	// map onto a more specific category.
	ErrRetriable = sterrors.New("portabus: transport reported retriable failure")
)

// ConfigError reports a startup misconfiguration: an adapter was selected
// explicitly but its client dependency is missing or unreachable. It names
// both the dependency and the config property so the failure is actionable.
type ConfigError struct {
	Adapter    string // selected adapter name
	Dependency string // what is missing (client, endpoint, package)
	Property   string // config property to set
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("portabus: adapter %q is not usable: %s is unavailable (set %s or choose another adapter)",
		e.Adapter, e.Dependency, e.Property)
}

// PublishError is the final failure surfaced on a Receipt after the retry
// budget is exhausted or a permanent error is hit. Topic and Type identify
// the operation for diagnostics; Cause is the last underlying error.
type PublishError struct {
	Topic    string
	Type     string
	Attempts int
	Cause    error
}

func (e *PublishError) Error() string {
	op := e.Topic
	if e.Type != "" {
		op += "/" + e.Type
	}
	return fmt.Sprintf("portabus: publish %s failed after %d attempt(s): %v", op, e.Attempts, e.Cause)
}

func (e *PublishError) Unwrap() error { return e.Cause }
