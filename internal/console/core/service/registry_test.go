package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
)

func nan() float64 { return math.NaN() }

func newRegistry() *Registry {
	return NewRegistry(Config{
		Clock:    clocktesting.NewFakeClock(time.Unix(1700000000, 0)),
		Notifier: newFakeNotifier(),
	})
}

func TestRegistryLifecycle(t *testing.T) {
	active := testutil.ToFloat64(metrics.SessionsActive)
	r := newRegistry()
	defer r.CloseAll()

	assert.Equal(t, []string{DefaultSessionID}, r.IDs())

	s := r.Open()
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, active+2, testutil.ToFloat64(metrics.SessionsActive))

	got, err := r.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	require.NoError(t, r.Close(s.ID()))
	_, err = r.Get(s.ID())
	assert.ErrorIs(t, err, core.ErrSessionNotFound)
	assert.ErrorIs(t, r.Close(s.ID()), core.ErrSessionNotFound)
	assert.Equal(t, active+1, testutil.ToFloat64(metrics.SessionsActive))
}

func TestRegistryFansOutTelemetry(t *testing.T) {
	ctx := context.Background()
	r := newRegistry()
	defer r.CloseAll()
	other := r.Open()

	require.NoError(t, r.Ingest(ctx, at("V1", 1, 1)))

	def, err := r.Get(DefaultSessionID)
	require.NoError(t, err)
	assert.Len(t, def.Vehicles(), 1)
	assert.Len(t, other.Vehicles(), 1)

	// Operator state stays per session.
	require.NoError(t, other.Select(ctx, "V9"))
	assert.Equal(t, "V1", def.Selected())
}

func TestRegistryIngestReportsPartial(t *testing.T) {
	r := newRegistry()
	defer r.CloseAll()
	r.Open()

	err := r.Ingest(context.Background(), &model.Snapshot{VehicleID: "V1"})
	assert.ErrorIs(t, err, core.ErrMalformedTelemetry)
}

func TestRegistryReconfigure(t *testing.T) {
	r := newRegistry()
	defer r.CloseAll()

	r.Reconfigure(func(c *Config) { c.TrailLength = 3 })
	s := r.Open()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Ingest(ctx, at("V1", float64(i), 0)))
	}
	assert.Len(t, s.Trail("V1"), 3)
}
