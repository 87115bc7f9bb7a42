package adapter

import (
	"context"
	"strings"

	"github.com/ThreeDotsLabs/watermill"

	errspkg "github.com/portabus/portabus/internal/runtime/errors"
)

// Adapter selection modes. Concrete transport names ("kafka", "aws", ...)
// come from the transport sub-packages themselves.
const (
	ModeAuto = "auto"
	ModeNoop = "noop"
)

// FallbackName is the adapter auto selection falls back to when nothing
// else is available. The channel transport depends only on the in-process
// event bus, so it always succeeds.
const FallbackName = "channel"

// DefaultAutoOrder is the probe priority for auto selection. Deployments can
// override it through Config.GetAutoOrder; the order is configuration, not
// policy baked into the selector.
var DefaultAutoOrder = []string{"aws", "kafka", "rabbitmq", "redis", "nats", FallbackName}

// Select resolves exactly one adapter for the process:
//
//   - a concrete configured name builds that adapter and hard-fails with a
//     ConfigError when its client dependency is unavailable, so
//     misconfiguration surfaces at startup instead of degrading silently;
//   - "noop" installs the no-op publisher;
//   - "auto" (or empty) probes transports in priority order and picks the
//     first available, falling back to the in-process channel bus.
func Select(ctx context.Context, cfg Config, reg *Registry, logger watermill.LoggerAdapter) (Adapter, error) {
	if cfg == nil {
		return Adapter{}, errspkg.ErrConfigRequired
	}
	if reg == nil {
		reg = DefaultRegistry
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	name := strings.ToLower(strings.TrimSpace(cfg.GetAdapter()))
	switch name {
	case "", ModeAuto:
		return selectAuto(ctx, cfg, reg, logger)
	case ModeNoop:
		return reg.Build(ctx, ModeNoop, cfg, logger)
	default:
		return selectExplicit(ctx, name, cfg, reg, logger)
	}
}

func selectExplicit(ctx context.Context, name string, cfg Config, reg *Registry, logger watermill.LoggerAdapter) (Adapter, error) {
	if !reg.Has(name) {
		return Adapter{}, &errspkg.ConfigError{
			Adapter:    name,
			Dependency: "adapter package (not registered)",
			Property:   "Adapter",
		}
	}

	if !reg.Available(ctx, name, cfg) {
		dep, prop := dependencyHint(name)
		return Adapter{}, &errspkg.ConfigError{
			Adapter:    name,
			Dependency: dep,
			Property:   prop,
		}
	}

	return reg.Build(ctx, name, cfg, logger)
}

func selectAuto(ctx context.Context, cfg Config, reg *Registry, logger watermill.LoggerAdapter) (Adapter, error) {
	order := cfg.GetAutoOrder()
	if len(order) == 0 {
		order = DefaultAutoOrder
	}

	for _, name := range order {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || !reg.Available(ctx, name, cfg) {
			continue
		}
		logger.Info("Auto-selected adapter", watermill.LogFields{"adapter": name})
		return reg.Build(ctx, name, cfg, logger)
	}

	logger.Info("No transport available, falling back to in-process channel", nil)
	return reg.Build(ctx, FallbackName, cfg, logger)
}

// dependencyHint names the client dependency and config property for each
// built-in transport so explicit misconfiguration errors are actionable.
func dependencyHint(name string) (dependency, property string) {
	switch name {
	case "kafka":
		return "Kafka broker client", "KafkaBrokers"
	case "nats":
		return "NATS server connection", "NATSURL"
	case "rabbitmq":
		return "RabbitMQ connection", "RabbitMQURL"
	case "redis":
		return "Redis server connection", "RedisAddr"
	case "aws":
		return "AWS SNS/SQS client", "AWSRegion"
	default:
		return "transport client", "Adapter"
	}
}
