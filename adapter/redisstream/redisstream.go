// Package redisstream provides a Redis Streams adapter built directly on
// go-redis: XADD for publishing and consumer-group XREADGROUP loops for
// consumption.
package redisstream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/portabus/portabus/adapter"
)

// TransportName is the name used to register this adapter.
const TransportName = "redis"

// Stream field names. Metadata entries are flattened under the meta prefix
// to avoid nested structures in the stream record.
const (
	fieldUUID       = "uuid"
	fieldPayload    = "payload"
	fieldMetaPrefix = "m:"
)

const (
	probeTimeout    = 2 * time.Second
	defaultGroup    = "portabus"
	defaultConsumer = "portabus-consumer"
	pollBackoffMin  = 100 * time.Millisecond
	pollBackoffMax  = 5 * time.Second
)

// ClientFactory allows overriding the Redis client creation for testing.
var ClientFactory = func(addr string) redis.UniversalClient {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func init() {
	Register()
}

// Register registers the Redis Streams adapter with the default registry.
func Register() {
	adapter.Register(TransportName, adapter.Registration{
		Builder:      Build,
		Probe:        Probe,
		Capabilities: adapter.RedisStreamCapabilities,
	})
}

// Build creates a new Redis Streams adapter sharing one client between the
// publisher and subscriber.
func Build(ctx context.Context, cfg adapter.Config, logger watermill.LoggerAdapter) (adapter.Adapter, error) {
	addr := cfg.GetRedisAddr()
	client := ClientFactory(addr)

	group := cfg.GetRedisConsumerGroup()
	if group == "" {
		group = defaultGroup
	}
	consumer := cfg.GetRedisConsumerName()
	if consumer == "" {
		consumer = defaultConsumer
	}

	return adapter.Adapter{
		Name:      TransportName,
		Publisher: &Publisher{client: client},
		Subscriber: &Subscriber{
			client:    client,
			group:     group,
			consumer:  consumer,
			batchSize: cfg.GetPollBatchSize(),
			block:     cfg.GetPollWait(),
			logger:    logger,
		},
	}, nil
}

// Probe reports whether a Redis server is configured and answers PING.
func Probe(ctx context.Context, cfg adapter.Config) bool {
	if cfg == nil || cfg.GetRedisAddr() == "" {
		return false
	}

	client := ClientFactory(cfg.GetRedisAddr())
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return client.Ping(pingCtx).Err() == nil
}

// Capabilities returns the capabilities of this adapter.
func Capabilities() adapter.Capabilities {
	return adapter.RedisStreamCapabilities
}

// Publisher appends messages to the topic stream with XADD, pipelining
// batches.
type Publisher struct {
	client redis.UniversalClient

	closed   bool
	closedMu sync.Mutex
}

func (p *Publisher) Publish(topic string, messages ...*message.Message) error {
	if len(messages) == 0 {
		return nil
	}

	pipe := p.client.Pipeline()
	for _, msg := range messages {
		vals := make(map[string]any, 2+len(msg.Metadata))
		vals[fieldUUID] = msg.UUID
		vals[fieldPayload] = []byte(msg.Payload)
		for k, v := range msg.Metadata {
			vals[fieldMetaPrefix+k] = v
		}

		pipe.XAdd(msg.Context(), &redis.XAddArgs{
			Stream: topic,
			ID:     "*",
			Values: vals,
		})
	}

	_, err := pipe.Exec(context.Background())
	return err
}

func (p *Publisher) Close() error {
	p.closedMu.Lock()
	defer p.closedMu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.client.Close()
}

// Subscriber reads the topic stream through a consumer group, one poll loop
// per subscription. Messages are XACKed when the consumer acks them;
// nacked messages stay pending for redelivery.
type Subscriber struct {
	client    redis.UniversalClient
	group     string
	consumer  string
	batchSize int
	block     time.Duration
	logger    watermill.LoggerAdapter

	wg sync.WaitGroup
}

func (s *Subscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	// Idempotent group creation; BUSYGROUP means it already exists.
	err := s.client.XGroupCreateMkStream(ctx, topic, s.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, err
	}

	out := make(chan *message.Message)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)
		s.pollLoop(ctx, topic, out)
	}()

	return out, nil
}

func (s *Subscriber) Close() error {
	s.wg.Wait()
	return s.client.Close()
}

func (s *Subscriber) pollLoop(ctx context.Context, topic string, out chan<- *message.Message) {
	count := int64(s.batchSize)
	if count < 1 {
		count = 1
	}
	block := s.block
	if block <= 0 {
		block = time.Second
	}

	backoff := pollBackoffMin
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    s.group,
			Consumer: s.consumer,
			Streams:  []string{topic, ">"},
			Count:    count,
			Block:    block,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, redis.Nil) {
				// Block timeout, nothing pending.
				backoff = pollBackoffMin
				continue
			}

			s.logger.Error("Redis stream read failed", err, watermill.LogFields{"topic": topic})
			select {
			case <-time.After(backoff):
				backoff = min(backoff*2, pollBackoffMax)
			case <-ctx.Done():
				return
			}
			continue
		}
		backoff = pollBackoffMin

		for _, stream := range res {
			for _, entry := range stream.Messages {
				if !s.deliver(ctx, topic, entry, out) {
					return
				}
			}
		}
	}
}

// deliver pushes one stream entry to the consumer and waits for its ack
// decision. Returns false when the subscription context ended.
func (s *Subscriber) deliver(ctx context.Context, topic string, entry redis.XMessage, out chan<- *message.Message) bool {
	msg := decode(entry)
	msg.SetContext(ctx)

	select {
	case out <- msg:
	case <-ctx.Done():
		return false
	}

	select {
	case <-msg.Acked():
		if err := s.client.XAck(ctx, topic, s.group, entry.ID).Err(); err != nil && ctx.Err() == nil {
			s.logger.Error("Redis XACK failed", err, watermill.LogFields{"topic": topic, "id": entry.ID})
		}
	case <-msg.Nacked():
		// Left pending for redelivery through the consumer group.
	case <-ctx.Done():
		return false
	}
	return true
}

func decode(entry redis.XMessage) *message.Message {
	uuid, _ := entry.Values[fieldUUID].(string)
	if uuid == "" {
		uuid = entry.ID
	}

	var payload []byte
	switch p := entry.Values[fieldPayload].(type) {
	case string:
		payload = []byte(p)
	case []byte:
		payload = p
	}

	msg := message.NewMessage(uuid, payload)
	for k, v := range entry.Values {
		if !strings.HasPrefix(k, fieldMetaPrefix) {
			continue
		}
		if str, ok := v.(string); ok {
			msg.Metadata.Set(strings.TrimPrefix(k, fieldMetaPrefix), str)
		}
	}
	return msg
}
