package runtime

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
)

// scriptedPublisher fails the first failures calls, then succeeds. A nil
// errs slice means every call succeeds.
type scriptedPublisher struct {
	mu     sync.Mutex
	errs   []error
	calls  int
	topics []string
	msgs   []*message.Message
}

func (p *scriptedPublisher) Publish(topic string, messages ...*message.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	call := p.calls
	p.calls++
	p.topics = append(p.topics, topic)
	p.msgs = append(p.msgs, messages...)

	if call < len(p.errs) {
		return p.errs[call]
	}
	return nil
}

func (p *scriptedPublisher) Close() error { return nil }

func (p *scriptedPublisher) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *scriptedPublisher) lastMessage() *message.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.msgs) == 0 {
		return nil
	}
	return p.msgs[len(p.msgs)-1]
}

// feedSubscriber replays a fixed set of messages on every Subscribe call.
type feedSubscriber struct {
	mu     sync.Mutex
	feeds  map[string][]*message.Message
	closed bool
}

func newFeedSubscriber() *feedSubscriber {
	return &feedSubscriber{feeds: make(map[string][]*message.Message)}
}

func (s *feedSubscriber) add(topic string, msgs ...*message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[topic] = append(s.feeds[topic], msgs...)
}

func (s *feedSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	s.mu.Lock()
	msgs := s.feeds[topic]
	s.mu.Unlock()

	out := make(chan *message.Message)
	go func() {
		defer close(out)
		for _, msg := range msgs {
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	return out, nil
}

func (s *feedSubscriber) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
