package adapter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPredefinedCapabilities(t *testing.T) {
	assert.Equal(t, "kafka", KafkaCapabilities.Name)
	assert.True(t, KafkaCapabilities.SupportsKeyedPartitioning)
	assert.True(t, KafkaCapabilities.SupportsOrdering)

	assert.Equal(t, "channel", ChannelCapabilities.Name)
	assert.True(t, ChannelCapabilities.SupportsReliableDelivery())

	assert.Equal(t, "noop", NoopCapabilities.Name)
	assert.False(t, NoopCapabilities.SupportsReliableDelivery())
}

func TestSupportsReliableDelivery(t *testing.T) {
	assert.False(t, Capabilities{SupportsAck: true}.SupportsReliableDelivery())
	assert.False(t, Capabilities{SupportsNack: true}.SupportsReliableDelivery())
	assert.True(t, Capabilities{SupportsAck: true, SupportsNack: true}.SupportsReliableDelivery())
}
