package envelope

import (
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/portabus/portabus/internal/runtime/jsoncodec"
)

// Metadata keys used when mapping envelopes onto transport messages.
// Inbound extraction key names are configurable; these are the defaults.
const (
	MetadataKeyType  = "portabus_type"
	MetadataKeyKey   = "portabus_key"
	MetadataKeyTopic = "portabus_topic"
)

// Serializer turns an opaque payload into wire bytes. The core is
// serializer-agnostic; JSONSerializer is the default.
type Serializer interface {
	Marshal(v any) ([]byte, error)
	ContentType() string
}

// JSONSerializer marshals payloads to JSON via the shared sonic codec.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(v any) ([]byte, error) { return jsoncodec.Marshal(v) }
func (JSONSerializer) ContentType() string           { return "application/json" }

// EncodePayload converts the envelope payload to bytes:
// []byte and string pass through, proto messages use protojson, everything
// else goes through the serializer. A nil serializer falls back to a plain
// string conversion, never an error.
func EncodePayload(payload any, ser Serializer) ([]byte, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case []byte:
		return p, nil
	case string:
		return []byte(p), nil
	case proto.Message:
		return protojson.Marshal(p)
	default:
		if ser == nil {
			return fmt.Appendf(nil, "%v", p), nil
		}
		return ser.Marshal(p)
	}
}

// ToStructuredMessage is the preferred mapping: payload as body, headers and
// meta carried as message metadata, type and key under their well-known keys
// so key-aware transports can partition on them.
func ToStructuredMessage(env Envelope, ser Serializer) (*message.Message, error) {
	msg, err := baseMessage(env, ser)
	if err != nil {
		return nil, err
	}
	if env.Type != "" {
		msg.Metadata.Set(MetadataKeyType, env.Type)
	}
	if env.Key != "" {
		msg.Metadata.Set(MetadataKeyKey, env.Key)
	}
	return msg, nil
}

// ToEnrichedMessage is the first fallback: a generic message with topic,
// type and key flattened into metadata alongside the headers.
func ToEnrichedMessage(env Envelope, ser Serializer) (*message.Message, error) {
	msg, err := ToStructuredMessage(env, ser)
	if err != nil {
		return nil, err
	}
	msg.Metadata.Set(MetadataKeyTopic, env.Topic)
	return msg, nil
}

// ToBareMessage is the last-resort mapping: topic plus payload only,
// dropping key and headers.
func ToBareMessage(env Envelope, ser Serializer) (*message.Message, error) {
	body, err := EncodePayload(env.Payload, ser)
	if err != nil {
		return nil, err
	}
	return message.NewMessage(env.UUID, body), nil
}

// FromMessage reconstructs an Envelope from a received transport message.
// Topic comes from the subscription; type and key are extracted from the
// configured metadata key names. The remaining metadata becomes headers.
func FromMessage(topic string, msg *message.Message, typeKey, keyKey string) Envelope {
	if typeKey == "" {
		typeKey = MetadataKeyType
	}
	if keyKey == "" {
		keyKey = MetadataKeyKey
	}

	headers := make(map[string]string, len(msg.Metadata))
	for k, v := range msg.Metadata {
		switch k {
		case typeKey, keyKey, MetadataKeyTopic:
			continue
		}
		headers[k] = v
	}

	return Envelope{
		UUID:    msg.UUID,
		Topic:   topic,
		Type:    msg.Metadata.Get(typeKey),
		Key:     msg.Metadata.Get(keyKey),
		Payload: []byte(msg.Payload),
		Headers: headers,
		Meta:    map[string]string{},
	}
}

func baseMessage(env Envelope, ser Serializer) (*message.Message, error) {
	body, err := EncodePayload(env.Payload, ser)
	if err != nil {
		return nil, fmt.Errorf("portabus: failed to encode payload for %s: %w", env.Operation(), err)
	}

	msg := message.NewMessage(env.UUID, body)
	for k, v := range env.Headers {
		msg.Metadata.Set(k, v)
	}
	for k, v := range env.Meta {
		msg.Metadata.Set(k, v)
	}
	return msg, nil
}
