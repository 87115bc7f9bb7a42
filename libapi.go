package portabus

import (
	"context"

	adapterpkg "github.com/portabus/portabus/adapter"
	envelopepkg "github.com/portabus/portabus/envelope"
	runtimepkg "github.com/portabus/portabus/internal/runtime"
	configpkg "github.com/portabus/portabus/internal/runtime/config"
	errspkg "github.com/portabus/portabus/internal/runtime/errors"
	idspkg "github.com/portabus/portabus/internal/runtime/ids"
	jsoncodec "github.com/portabus/portabus/internal/runtime/jsoncodec"
	loggingpkg "github.com/portabus/portabus/internal/runtime/logging"

	// The dependency-free transports are always linked so auto selection can
	// fall back to the in-process bus and noop mode works without further
	// imports. Broker-backed adapters register on import, individually or via
	// adapter/adapters.
	_ "github.com/portabus/portabus/adapter/channel"
	_ "github.com/portabus/portabus/adapter/noop"
)

type (
	Config              = configpkg.Config
	Service             = runtimepkg.Service
	ServiceDependencies = runtimepkg.ServiceDependencies
	Status              = runtimepkg.Status

	Envelope        = envelopepkg.Envelope
	EnvelopeBuilder = envelopepkg.Builder
	Filter          = envelopepkg.Filter
	Serializer      = envelopepkg.Serializer
	JSONSerializer  = envelopepkg.JSONSerializer

	Publisher       = runtimepkg.Publisher
	Receipt         = runtimepkg.Receipt
	SendStrategy    = runtimepkg.SendStrategy
	RetryPolicy     = runtimepkg.RetryPolicy
	RetryableError  = runtimepkg.RetryableError
	Dispatcher      = runtimepkg.Dispatcher
	Binding         = runtimepkg.Binding
	BindingSource   = runtimepkg.Source
	HandlerFunc     = runtimepkg.HandlerFunc
	Consumer        = runtimepkg.Consumer
	ConsumerOptions = runtimepkg.ConsumerOptions
	Metrics         = runtimepkg.Metrics

	Adapter             = adapterpkg.Adapter
	AdapterBuilder      = adapterpkg.Builder
	AdapterProbe        = adapterpkg.Probe
	AdapterConfig       = adapterpkg.Config
	AdapterRegistry     = adapterpkg.Registry
	AdapterRegistration = adapterpkg.Registration
	Capabilities        = adapterpkg.Capabilities

	ConfigError  = errspkg.ConfigError
	PublishError = errspkg.PublishError

	LogFields     = loggingpkg.LogFields
	ServiceLogger = loggingpkg.ServiceLogger
)

var (
	NewService     = runtimepkg.NewService
	TryNewService  = runtimepkg.TryNewService
	ValidateConfig = configpkg.ValidateConfig

	NewEnvelope  = envelopepkg.New
	FromMessage  = envelopepkg.FromMessage
	MatchTopic   = envelopepkg.MatchTopic
	MatchType    = envelopepkg.MatchType
	MatchPattern = envelopepkg.MatchPattern
	And          = envelopepkg.And
	Or           = envelopepkg.Or
	Not          = envelopepkg.Not

	NewPublisher  = runtimepkg.NewPublisher
	NewDispatcher = runtimepkg.NewDispatcher
	NewConsumer   = runtimepkg.NewConsumer
	NewMetrics    = runtimepkg.NewMetrics
	Retryable     = runtimepkg.Retryable

	// Adapter registry. Individual adapters self-register on import:
	//   _ "github.com/portabus/portabus/adapter/kafka"
	DefaultAdapterRegistry = adapterpkg.DefaultRegistry
	NewAdapterRegistry     = adapterpkg.NewRegistry
	RegisterAdapter        = adapterpkg.Register
	SelectAdapter          = adapterpkg.Select
	GetCapabilities        = adapterpkg.GetCapabilities

	Marshal       = jsoncodec.Marshal
	MarshalIndent = jsoncodec.MarshalIndent
	Unmarshal     = jsoncodec.Unmarshal
	Encode        = jsoncodec.Encode
	Decode        = jsoncodec.Decode

	ErrTopicRequired     = errspkg.ErrTopicRequired
	ErrEnvelopeRequired  = errspkg.ErrEnvelopeRequired
	ErrPublisherRequired = errspkg.ErrPublisherRequired
	ErrAdapterRequired   = errspkg.ErrAdapterRequired
	ErrConfigRequired    = errspkg.ErrConfigRequired
	ErrLoggerRequired    = errspkg.ErrLoggerRequired
	ErrHandlerRequired   = errspkg.ErrHandlerRequired
	ErrConsumerStopped   = errspkg.ErrConsumerStopped
	ErrThrottled         = errspkg.ErrThrottled
	ErrRetriable         = errspkg.ErrRetriable
	ErrUnsupportedSend   = adapterpkg.ErrUnsupportedSend
	ErrNoCompatibleSend  = adapterpkg.ErrNoCompatibleSend

	NewSlogServiceLogger      = loggingpkg.NewSlogServiceLogger
	NewWatermillServiceLogger = loggingpkg.NewWatermillServiceLogger
	NopLogger                 = loggingpkg.Nop

	NewULID = idspkg.NewULID
)

// Adapter selection modes and metadata keys.
const (
	ModeAuto = adapterpkg.ModeAuto
	ModeNoop = adapterpkg.ModeNoop

	MetadataKeyType  = envelopepkg.MetadataKeyType
	MetadataKeyKey   = envelopepkg.MetadataKeyKey
	MetadataKeyTopic = envelopepkg.MetadataKeyTopic
)

// On registers a typed handler on a service's dispatcher: the envelope
// payload is decoded into T before invocation.
func On[T any](svc *Service, topicPattern, typePattern string, fn func(ctx context.Context, env Envelope, payload T) error) {
	runtimepkg.On(svc.Dispatcher(), topicPattern, typePattern, fn)
}
