package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryRegisterAndHas(t *testing.T) {
	reg := NewRegistry()
	assert.False(t, reg.Has("fake"))

	reg.Register("fake", fakeRegistration("fake", true))
	assert.True(t, reg.Has("fake"))
	assert.Contains(t, reg.Names(), "fake")
}

func TestRegistryCapabilities(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fake", Registration{Capabilities: Capabilities{Name: "fake", SupportsAck: true}})

	caps := reg.GetCapabilities("fake")
	assert.Equal(t, "fake", caps.Name)
	assert.True(t, caps.SupportsAck)

	// Unknown names return a zero Capabilities carrying the name.
	unknown := reg.GetCapabilities("missing")
	assert.Equal(t, "missing", unknown.Name)
	assert.False(t, unknown.SupportsAck)
}

func TestRegistryAvailable(t *testing.T) {
	reg := NewRegistry()
	reg.Register("up", fakeRegistration("up", true))
	reg.Register("down", fakeRegistration("down", false))
	reg.Register("noprobe", Registration{
		Builder: fakeRegistration("noprobe", true).Builder,
	})

	ctx := context.Background()
	cfg := &mockConfig{}
	assert.True(t, reg.Available(ctx, "up", cfg))
	assert.False(t, reg.Available(ctx, "down", cfg))
	assert.True(t, reg.Available(ctx, "noprobe", cfg), "registration without a probe counts as available")
	assert.False(t, reg.Available(ctx, "unregistered", cfg))
}

func TestRegistryBuild(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fake", fakeRegistration("fake", true))

	a, err := reg.Build(context.Background(), "fake", &mockConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "fake", a.Name)
	assert.NotNil(t, a.Publisher)
	assert.NotNil(t, a.Subscriber)
}

func TestRegistryBuildErrors(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Build(context.Background(), "fake", nil, watermill.NopLogger{})
	assert.Error(t, err)

	_, err = reg.Build(context.Background(), "missing", &mockConfig{}, watermill.NopLogger{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unknown adapter")
}

func TestRegistryBuildPropagatesBuilderError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("broker unavailable")
	reg.Register("fake", Registration{
		Builder: func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Adapter, error) {
			return Adapter{}, boom
		},
	})

	_, err := reg.Build(context.Background(), "fake", &mockConfig{}, watermill.NopLogger{})
	assert.ErrorIs(t, err, boom)
}

func TestRegistryBuildFillsMissingName(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fake", Registration{
		Builder: func(ctx context.Context, cfg Config, logger watermill.LoggerAdapter) (Adapter, error) {
			return Adapter{Publisher: &mockPublisher{}}, nil
		},
	})

	a, err := reg.Build(context.Background(), "fake", &mockConfig{}, watermill.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, "fake", a.Name)
}
