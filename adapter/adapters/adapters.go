// Package adapters imports all built-in adapters for auto-registration.
// Import this package to have every transport registered with the default
// registry.
package adapters

import (
	// Import all adapters for side-effect registration
	_ "github.com/portabus/portabus/adapter/aws"
	_ "github.com/portabus/portabus/adapter/channel"
	_ "github.com/portabus/portabus/adapter/kafka"
	_ "github.com/portabus/portabus/adapter/nats"
	_ "github.com/portabus/portabus/adapter/noop"
	_ "github.com/portabus/portabus/adapter/rabbitmq"
	_ "github.com/portabus/portabus/adapter/redisstream"
)
