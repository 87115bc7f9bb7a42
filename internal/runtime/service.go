package runtime

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/portabus/portabus/adapter"
	"github.com/portabus/portabus/envelope"
	configpkg "github.com/portabus/portabus/internal/runtime/config"
	errspkg "github.com/portabus/portabus/internal/runtime/errors"
	loggingpkg "github.com/portabus/portabus/internal/runtime/logging"
)

// ServiceDependencies holds optional collaborators. Leave fields nil (or
// zero) to use the defaults.
type ServiceDependencies struct {
	// Registry overrides the default adapter registry, mostly for tests.
	Registry *adapter.Registry
	// Serializer overrides the JSON payload serializer.
	Serializer envelope.Serializer
	// MetricsRegisterer receives the Prometheus collectors when metrics are
	// enabled. Nil means the default registerer.
	MetricsRegisterer prometheus.Registerer
}

// Service is the assembled runtime: one resolved adapter, the async
// publisher with its retry decorator, the dispatcher, and (when enabled)
// the inbound consumer.
type Service struct {
	Conf   *configpkg.Config
	Logger loggingpkg.ServiceLogger

	adapter    adapter.Adapter
	registry   *adapter.Registry
	publisher  *Publisher
	dispatcher *Dispatcher
	consumer   *Consumer
	metrics    *Metrics

	mu      sync.Mutex
	started bool
	stopped bool
}

// NewService constructs a Service or panics on invalid configuration.
// Prefer TryNewService when the caller can handle the error.
func NewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) *Service {
	s, err := TryNewService(ctx, conf, log, deps)
	if err != nil {
		panic(err)
	}
	return s
}

// TryNewService validates the configuration, resolves the adapter and wires
// the publish and dispatch paths. Misconfigured explicit adapters fail here
// with a ConfigError rather than at first publish.
func TryNewService(ctx context.Context, conf *configpkg.Config, log loggingpkg.ServiceLogger, deps ServiceDependencies) (*Service, error) {
	if conf == nil {
		return nil, errspkg.ErrConfigRequired
	}
	if log == nil {
		log = loggingpkg.Nop()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	normalized := conf.Normalize()
	conf = &normalized

	log.Info("Creating event service", loggingpkg.LogFields{
		"adapter": conf.Adapter,
		"config":  conf,
	})

	registry := deps.Registry
	if registry == nil {
		registry = adapter.DefaultRegistry
	}

	wmLogger := loggingpkg.NewWatermillAdapter(log)
	a, err := adapter.Select(ctx, conf, registry, wmLogger)
	if err != nil {
		return nil, err
	}

	var metrics *Metrics
	if conf.MetricsEnabled {
		metrics = NewMetrics(deps.MetricsRegisterer)
	}

	retry := &RetryPolicy{
		MaxAttempts:     conf.RetryMaxAttempts,
		InitialInterval: conf.RetryInitialInterval,
		MaxInterval:     conf.RetryMaxInterval,
		Multiplier:      conf.RetryMultiplier,
		AttemptTimeout:  conf.AttemptTimeout,
	}

	s := &Service{
		Conf:       conf,
		Logger:     log,
		adapter:    a,
		registry:   registry,
		metrics:    metrics,
		dispatcher: NewDispatcher(log, metrics),
	}
	s.publisher = NewPublisher(a, retry, deps.Serializer, metrics, log)

	if conf.ConsumerEnabled {
		s.consumer = NewConsumer(a, s.dispatcher, ConsumerOptions{
			Topics:       conf.ConsumerTopics,
			TypeHeader:   conf.TypeHeader,
			KeyHeader:    conf.KeyHeader,
			DrainTimeout: conf.DrainTimeout,
		}, log)
	}

	return s, nil
}

// Publish hands the envelope to the adapter asynchronously.
func (s *Service) Publish(ctx context.Context, env envelope.Envelope) *Receipt {
	return s.publisher.Publish(ctx, env)
}

// Dispatcher exposes handler registration.
func (s *Service) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// Publisher exposes the wired publish path.
func (s *Service) Publisher() *Publisher {
	return s.publisher
}

// Adapter returns the resolved adapter.
func (s *Service) Adapter() adapter.Adapter {
	return s.adapter
}

// Start begins inbound consumption when the configuration enables it.
// Register handlers before calling Start. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.dispatcher.Ready()
	if s.consumer != nil {
		if err := s.consumer.Start(ctx); err != nil {
			return err
		}
	}
	s.started = true
	return nil
}

// Stop drains the consumer and closes the adapter's transport clients.
// Idempotent; safe to call without Start.
func (s *Service) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true

	var firstErr error
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			firstErr = err
		}
	}
	if s.adapter.Publisher != nil {
		if err := s.adapter.Publisher.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.adapter.Subscriber != nil {
		if err := s.adapter.Subscriber.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.Logger.Info("Service stopped", loggingpkg.LogFields{"adapter": s.adapter.Name})
	return firstErr
}

// Healthy reports whether the resolved adapter's backing dependency still
// answers its availability probe. Adapters without a probe are always
// healthy.
func (s *Service) Healthy(ctx context.Context) bool {
	return s.registry.Available(ctx, s.adapter.Name, s.Conf)
}

// Status summarises the runtime state for diagnostics endpoints.
type Status struct {
	Adapter         string `json:"adapter"`
	Started         bool   `json:"started"`
	ConsumerRunning bool   `json:"consumer_running"`
}

// Status reports the current runtime state.
func (s *Service) Status() Status {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()

	st := Status{Adapter: s.adapter.Name, Started: started}
	if s.consumer != nil {
		st.ConsumerRunning = s.consumer.Running()
	}
	return st
}
