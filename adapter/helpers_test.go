package adapter

import (
	"context"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

type mockConfig struct {
	adapter   string
	autoOrder []string

	kafkaBrokers []string
	natsURL      string
	rabbitMQURL  string
	redisAddr    string
	awsRegion    string
	awsEndpoint  string
}

func (m *mockConfig) GetAdapter() string            { return m.adapter }
func (m *mockConfig) GetAutoOrder() []string        { return m.autoOrder }
func (m *mockConfig) GetKafkaBrokers() []string     { return m.kafkaBrokers }
func (m *mockConfig) GetKafkaConsumerGroup() string { return "" }
func (m *mockConfig) GetNATSURL() string            { return m.natsURL }
func (m *mockConfig) GetRabbitMQURL() string        { return m.rabbitMQURL }
func (m *mockConfig) GetRedisAddr() string          { return m.redisAddr }
func (m *mockConfig) GetRedisConsumerGroup() string { return "" }
func (m *mockConfig) GetRedisConsumerName() string  { return "" }
func (m *mockConfig) GetAWSRegion() string          { return m.awsRegion }
func (m *mockConfig) GetAWSAccountID() string       { return "" }
func (m *mockConfig) GetAWSAccessKeyID() string     { return "" }
func (m *mockConfig) GetAWSSecretAccessKey() string { return "" }
func (m *mockConfig) GetAWSEndpoint() string        { return m.awsEndpoint }
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

// fakeRegistration builds a registration whose availability is fixed.
func fakeRegistration(name string, available bool) Registration {
	return Registration{
		Builder: func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Adapter, error) {
			return Adapter{Name: name, Publisher: &mockPublisher{}, Subscriber: &mockSubscriber{}}, nil
		},
		Probe:        func(ctx context.Context, cfg Config) bool { return available },
		Capabilities: Capabilities{Name: name},
	}
}
