package mission

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autopeer-io/fleetlink/internal/console/core/mode"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

type route struct {
	vehicleID string
	target    model.Position
}

type fakeRouter struct {
	sent []route
}

func (r *fakeRouter) SendRoute(_ context.Context, vehicleID string, target model.Position) bool {
	r.sent = append(r.sent, route{vehicleID, target})
	return true
}

type fixedTarget string

func (t fixedTarget) Current() string { return string(t) }

func newPlanner(target string) (*Planner, *mode.Machine, *fakeRouter) {
	modes := mode.New(nil)
	router := &fakeRouter{}
	return New(modes, router, fixedTarget(target), nil), modes, router
}

var (
	wpA = model.Position{Lat: 10, Lng: 10}
	wpB = model.Position{Lat: 20, Lng: 20}
)

func TestSkipRoutesNextInAuto(t *testing.T) {
	ctx := context.Background()
	p, _, router := newPlanner("V1")
	p.Enqueue(wpA)
	p.Enqueue(wpB)
	require.Empty(t, router.sent, "enqueue does not send")

	assert.True(t, p.Skip(ctx))

	assert.Equal(t, []model.Position{wpB}, p.Queue())
	require.Len(t, router.sent, 1)
	assert.Equal(t, route{"V1", wpB}, router.sent[0])
}

func TestSkipLastWaypointSendsNothing(t *testing.T) {
	ctx := context.Background()
	p, _, router := newPlanner("V1")
	p.Enqueue(wpA)

	assert.True(t, p.Skip(ctx))
	assert.Empty(t, p.Queue())
	assert.Empty(t, router.sent)

	assert.False(t, p.Skip(ctx))
}

func TestSkipWhilePausedOrManualSendsNothing(t *testing.T) {
	ctx := context.Background()

	p, modes, router := newPlanner("V1")
	p.Enqueue(wpA)
	p.Enqueue(wpB)
	require.NoError(t, modes.Pause(ctx))
	p.Skip(ctx)
	assert.Empty(t, router.sent)

	p, modes, router = newPlanner("V1")
	p.Enqueue(wpA)
	p.Enqueue(wpB)
	require.NoError(t, modes.TakeManual(ctx))
	p.Skip(ctx)
	assert.Empty(t, router.sent)
	assert.Equal(t, []model.Position{wpB}, p.Queue(), "queue state survives a manual excursion")
}

func TestResumeReannouncesFront(t *testing.T) {
	ctx := context.Background()
	p, _, router := newPlanner("V1")
	p.Enqueue(wpA)
	p.Enqueue(wpB)

	got, err := p.ToggleMission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModePaused, got)
	assert.Empty(t, router.sent)

	got, err = p.ToggleMission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAuto, got)
	require.Len(t, router.sent, 1)
	assert.Equal(t, route{"V1", wpA}, router.sent[0])
}

func TestResumeFromManual(t *testing.T) {
	ctx := context.Background()
	p, modes, router := newPlanner("V1")
	p.Enqueue(wpA)
	require.NoError(t, modes.TakeManual(ctx))

	got, err := p.ToggleMission(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ModeAuto, got)
	assert.Len(t, router.sent, 1)
}

func TestResumeWithEmptyQueueOrNoTarget(t *testing.T) {
	ctx := context.Background()

	p, _, router := newPlanner("V1")
	p.ToggleMission(ctx)
	p.ToggleMission(ctx)
	assert.Empty(t, router.sent)

	p, _, router = newPlanner("")
	p.Enqueue(wpA)
	p.ToggleMission(ctx)
	p.ToggleMission(ctx)
	assert.Empty(t, router.sent)
}

func TestRemoveAt(t *testing.T) {
	p, _, _ := newPlanner("V1")
	p.Enqueue(wpA)
	p.Enqueue(wpB)

	assert.False(t, p.RemoveAt(-1))
	assert.False(t, p.RemoveAt(2))
	assert.Len(t, p.Queue(), 2)

	assert.True(t, p.RemoveAt(0))
	assert.Equal(t, []model.Position{wpB}, p.Queue())

	p.Clear()
	assert.Empty(t, p.Queue())
	_, ok := p.Front()
	assert.False(t, ok)
}

func TestProgressBaselineAndBounds(t *testing.T) {
	p, _, _ := newPlanner("V1")

	// No waypoint: nothing to measure.
	p.UpdateProgress(&model.Position{Lat: 0, Lng: 0})
	assert.Equal(t, 0.0, p.Progress())

	p.Enqueue(model.Position{Lat: 0, Lng: 1})

	p.UpdateProgress(&model.Position{Lat: 0, Lng: 0})
	assert.Equal(t, 0.0, p.Progress(), "first report captures the baseline")

	p.UpdateProgress(&model.Position{Lat: 0, Lng: 0.5})
	assert.InDelta(t, 50, p.Progress(), 0.01)

	p.UpdateProgress(&model.Position{Lat: 0, Lng: 1})
	assert.InDelta(t, 100, p.Progress(), 1e-9)

	// Moving away past the start clamps to zero.
	p.UpdateProgress(&model.Position{Lat: 0, Lng: -1})
	assert.Equal(t, 0.0, p.Progress())

	// Unknown or non-finite positions leave progress alone.
	p.UpdateProgress(&model.Position{Lat: 0, Lng: 0.5})
	p.UpdateProgress(nil)
	p.UpdateProgress(&model.Position{Lat: math.NaN(), Lng: 0})
	assert.InDelta(t, 50, p.Progress(), 0.01)
}

func TestProgressResetsOnNewFront(t *testing.T) {
	ctx := context.Background()
	p, _, _ := newPlanner("V1")
	p.Enqueue(model.Position{Lat: 0, Lng: 1})
	p.Enqueue(model.Position{Lat: 0, Lng: 3})

	p.UpdateProgress(&model.Position{Lat: 0, Lng: 0})
	p.UpdateProgress(&model.Position{Lat: 0, Lng: 1})
	assert.InDelta(t, 100, p.Progress(), 1e-9)

	p.Skip(ctx)
	assert.Equal(t, 0.0, p.Progress())

	p.UpdateProgress(&model.Position{Lat: 0, Lng: 1})
	p.UpdateProgress(&model.Position{Lat: 0, Lng: 2})
	assert.InDelta(t, 50, p.Progress(), 0.01)
}

func TestProgressFunction(t *testing.T) {
	assert.Equal(t, 100.0, Progress(0, 0))
	assert.Equal(t, 0.0, Progress(0, 5))
	assert.Equal(t, 0.0, Progress(math.NaN(), 1))
	assert.Equal(t, 0.0, Progress(10, 20))
	assert.Equal(t, 100.0, Progress(10, -1))
	assert.InDelta(t, 25, Progress(100, 75), 1e-9)
}

func TestDistance(t *testing.T) {
	// One degree of longitude on the equator.
	want := EarthRadiusMeters * math.Pi / 180
	assert.InDelta(t, want, Distance(model.Position{}, model.Position{Lng: 1}), 1e-6)
	assert.Equal(t, 0.0, Distance(wpA, wpA))
}
