package trail

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

func TestBufferBoundsAndOrder(t *testing.T) {
	b := New(50)

	for i := 0; i < 60; i++ {
		b.Append("V1", model.Position{Lat: float64(i), Lng: float64(-i)})
	}

	got := b.Get("V1")
	require.Len(t, got, 50)
	for i, p := range got {
		assert.Equal(t, float64(i+10), p.Lat, "position %d", i)
	}
}

func TestBufferIgnoresNonFinite(t *testing.T) {
	b := New(3)

	assert.False(t, b.Append("V1", model.Position{Lat: math.NaN(), Lng: 1}))
	assert.False(t, b.Append("V1", model.Position{Lat: 1, Lng: math.Inf(1)}))
	assert.True(t, b.Append("V1", model.Position{Lat: 1, Lng: 1}))

	assert.Len(t, b.Get("V1"), 1)
}

func TestBufferUnknownVehicle(t *testing.T) {
	b := New(0)

	got := b.Get("nope")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, DefaultCapacity, b.Capacity())
}

func TestBufferGetReturnsCopy(t *testing.T) {
	b := New(5)
	b.Append("V1", model.Position{Lat: 1, Lng: 1})

	got := b.Get("V1")
	got[0].Lat = 42

	assert.Equal(t, 1.0, b.Get("V1")[0].Lat)
}

func TestBufferVehiclesFirstSeenOrder(t *testing.T) {
	b := New(5)
	b.Append("B", model.Position{Lat: 1, Lng: 1})
	b.Append("A", model.Position{Lat: 1, Lng: 1})
	b.Append("B", model.Position{Lat: 2, Lng: 2})

	assert.Equal(t, []string{"B", "A"}, b.Vehicles())
}
