package nats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portabus/portabus/adapter"
)

func TestRegister(t *testing.T) {
	adapter.DefaultRegistry = adapter.NewRegistry()
	Register()

	caps := adapter.GetCapabilities(TransportName)
	assert.Equal(t, "nats", caps.Name)
}

func TestProbe(t *testing.T) {
	originalDialer := Dialer
	defer func() { Dialer = originalDialer }()

	assert.False(t, Probe(context.Background(), nil))
	assert.False(t, Probe(context.Background(), &mockConfig{}), "no URL, no probe dial")

	Dialer = func(url string) error {
		assert.Equal(t, "nats://localhost:4222", url)
		return nil
	}
	assert.True(t, Probe(context.Background(), &mockConfig{url: "nats://localhost:4222"}))

	Dialer = func(url string) error { return errors.New("connection refused") }
	assert.False(t, Probe(context.Background(), &mockConfig{url: "nats://localhost:4222"}))
}

func TestBuild(t *testing.T) {
	t.Run("creates adapter with mocked factories", func(t *testing.T) {
		originalPub := PublisherFactory
		originalSub := SubscriberFactory
		defer func() {
			PublisherFactory = originalPub
			SubscriberFactory = originalSub
		}()

		mockPub := &mockPublisher{}
		mockSub := &mockSubscriber{}

		PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			assert.Equal(t, "nats://localhost:4222", cfg.URL)
			return mockPub, nil
		}
		SubscriberFactory = func(cfg nats.SubscriberConfig, logger watermill.LoggerAdapter) (message.Subscriber, error) {
			assert.Equal(t, "nats://localhost:4222", cfg.URL)
			return mockSub, nil
		}

		a, err := Build(context.Background(), &mockConfig{url: "nats://localhost:4222"}, watermill.NopLogger{})
		require.NoError(t, err)
		assert.Equal(t, TransportName, a.Name)
		assert.Equal(t, mockPub, a.Publisher)
		assert.Equal(t, mockSub, a.Subscriber)
	})

	t.Run("returns error when publisher factory fails", func(t *testing.T) {
		original := PublisherFactory
		defer func() { PublisherFactory = original }()

		PublisherFactory = func(cfg nats.PublisherConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
			return nil, errors.New("publisher error")
		}

		_, err := Build(context.Background(), &mockConfig{url: "nats://localhost:4222"}, watermill.NopLogger{})
		assert.ErrorContains(t, err, "publisher error")
	})
}

type mockConfig struct {
	url string
}

func (m *mockConfig) GetAdapter() string            { return "nats" }
func (m *mockConfig) GetAutoOrder() []string        { return nil }
func (m *mockConfig) GetKafkaBrokers() []string     { return nil }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }
func (m *mockConfig) GetNATSURL() string            { return m.url }
func (m *mockConfig) GetRabbitMQURL() string        { return "" }
func (m *mockConfig) GetRedisAddr() string          { return "" }
func (m *mockConfig) GetRedisConsumerGroup() string { return "" }
func (m *mockConfig) GetRedisConsumerName() string  { return "" }
func (m *mockConfig) GetAWSRegion() string          { return "" }
func (m *mockConfig) GetAWSAccountID() string       { return "" }
func (m *mockConfig) GetAWSAccessKeyID() string     { return "" }
func (m *mockConfig) GetAWSSecretAccessKey() string { return "" }
func (m *mockConfig) GetAWSEndpoint() string        { return "" }
func (m *mockConfig) GetAWSTopicARN() string        { return "" }
func (m *mockConfig) GetPollBatchSize() int         { return 0 }
func (m *mockConfig) GetPollWait() time.Duration    { return 0 }

type mockPublisher struct{}

func (m *mockPublisher) Publish(topic string, messages ...*message.Message) error { return nil }
func (m *mockPublisher) Close() error                                             { return nil }

type mockSubscriber struct{}

func (m *mockSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return make(chan *message.Message), nil
}
func (m *mockSubscriber) Close() error { return nil }
