// Package envelope defines the normalized event record passed across the
// publish boundary, plus the filters and message mappings adapters use to
// translate it onto transport-native sends.
package envelope

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	errspkg "github.com/portabus/portabus/internal/runtime/errors"
	idspkg "github.com/portabus/portabus/internal/runtime/ids"
)

// Envelope is the immutable event record carried across the publish
// boundary. Topic is the only required field; Headers and Meta are never nil
// on a built Envelope.
type Envelope struct {
	// UUID is a ULID assigned at build time.
	UUID string

	// Topic is the destination channel name. Required.
	Topic string

	// Type is the logical event type, used for routing and filtering.
	Type string

	// Key is a partition/dedup/correlation key.
	Key string

	// Payload is opaque application data, serialized by the adapter path.
	Payload any

	// Headers carries transport metadata (correlation id, trace id).
	Headers map[string]string

	// Meta carries publisher-internal annotations (retry provenance etc.).
	Meta map[string]string
}

// IsZero reports whether the envelope was never built.
func (e Envelope) IsZero() bool {
	return e.Topic == "" && e.UUID == ""
}

// Operation identifies the publish operation (topic plus type) for
// diagnostics and metrics labels.
func (e Envelope) Operation() string {
	if e.Type == "" {
		return e.Topic
	}
	return e.Topic + "/" + e.Type
}

// Header returns the named header, or "" when absent.
func (e Envelope) Header(key string) string {
	return e.Headers[key]
}

// Builder assembles an Envelope. Obtain one via New.
type Builder struct {
	env Envelope
}

// New starts building an Envelope for the given topic.
func New(topic string) *Builder {
	return &Builder{env: Envelope{Topic: topic}}
}

// WithType sets the logical event type.
func (b *Builder) WithType(eventType string) *Builder {
	b.env.Type = eventType
	return b
}

// WithKey sets the partition/correlation key.
func (b *Builder) WithKey(key string) *Builder {
	b.env.Key = key
	return b
}

// WithPayload sets the opaque payload.
func (b *Builder) WithPayload(payload any) *Builder {
	b.env.Payload = payload
	return b
}

// WithHeader adds a single transport header.
func (b *Builder) WithHeader(key, value string) *Builder {
	if b.env.Headers == nil {
		b.env.Headers = make(map[string]string)
	}
	b.env.Headers[key] = value
	return b
}

// WithHeaders merges the given headers. A nil map is a no-op.
func (b *Builder) WithHeaders(headers map[string]string) *Builder {
	for k, v := range headers {
		b.WithHeader(k, v)
	}
	return b
}

// WithMeta adds a single publisher-internal annotation.
func (b *Builder) WithMeta(key, value string) *Builder {
	if b.env.Meta == nil {
		b.env.Meta = make(map[string]string)
	}
	b.env.Meta[key] = value
	return b
}

// Build validates and returns the Envelope. An empty topic fails with
// ErrTopicRequired; nil header/meta maps are normalized to empty maps and
// both maps are copied so later builder mutation cannot leak in.
func (b *Builder) Build() (Envelope, error) {
	if err := validation.Validate(b.env.Topic, validation.Required); err != nil {
		return Envelope{}, errspkg.ErrTopicRequired
	}

	env := b.env
	env.UUID = idspkg.NewULID()
	env.Headers = copyMap(b.env.Headers)
	env.Meta = copyMap(b.env.Meta)
	return env, nil
}

// MustBuild is Build for static envelopes; it panics on validation failure.
func (b *Builder) MustBuild() Envelope {
	env, err := b.Build()
	if err != nil {
		panic(err)
	}
	return env
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
