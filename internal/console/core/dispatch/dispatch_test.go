package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/mode"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
)

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)

type fakeNotifier struct {
	mu        sync.Mutex
	sent      []model.CommandIntent
	connected atomic.Bool
	fail      error
}

func newFakeNotifier() *fakeNotifier {
	n := &fakeNotifier{}
	n.connected.Store(true)
	return n
}

func (n *fakeNotifier) Notify(_ context.Context, cmd *model.CommandIntent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, *cmd)
	return nil
}

func (n *fakeNotifier) Connected() bool { return n.connected.Load() }

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func (n *fakeNotifier) last() model.CommandIntent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sent[len(n.sent)-1]
}

func newDispatcher() (*Dispatcher, *fakeNotifier, *mode.Machine, *clocktesting.FakeClock) {
	n := newFakeNotifier()
	modes := mode.New(nil)
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))
	return New(n, modes, clk, 500*time.Millisecond, nil), n, modes, clk
}

// stepTick advances one interval and waits until want commands were sent.
func stepTick(t *testing.T, clk *clocktesting.FakeClock, n *fakeNotifier, want int) {
	t.Helper()
	clk.Step(500 * time.Millisecond)
	require.Eventually(t, func() bool { return n.count() == want }, waitFor, tick)
}

func TestBeginManualIsIdempotent(t *testing.T) {
	ctx := context.Background()
	d, n, modes, clk := newDispatcher()

	assert.True(t, d.BeginManual(ctx, "V1"))
	assert.False(t, d.BeginManual(ctx, "V1"))
	assert.Equal(t, model.ModeManual, modes.Current())
	assert.True(t, d.Active("V1"))

	stepTick(t, clk, n, 1)
	stepTick(t, clk, n, 2)
	assert.Never(t, func() bool { return n.count() > 2 }, 50*time.Millisecond, tick)

	d.StopAll()
}

func TestTicksCarryLiveValues(t *testing.T) {
	ctx := context.Background()
	d, n, _, clk := newDispatcher()

	assert.Equal(t, 90.0, d.SetRudder(ctx, "V1", 200))
	assert.Equal(t, 40.0, d.SetThrottle(ctx, "V1", 40))
	assert.Equal(t, 0, n.count(), "setters do not emit immediately")

	stepTick(t, clk, n, 1)
	got := n.last()
	assert.Equal(t, "V1", got.VehicleID)
	assert.Equal(t, model.ModeManual, got.Mode)
	assert.Equal(t, 90.0, *got.Rudder)
	assert.Equal(t, 40.0, *got.Throttle)

	d.SetRudder(ctx, "V1", -15)
	stepTick(t, clk, n, 2)
	assert.Equal(t, -15.0, *n.last().Rudder)

	d.StopAll()
}

func TestEndManualFlushesOnce(t *testing.T) {
	ctx := context.Background()
	d, n, modes, clk := newDispatcher()

	d.SetThrottle(ctx, "V1", 60)
	d.SetRudder(ctx, "V1", 45)
	stepTick(t, clk, n, 1)

	assert.True(t, d.EndManual(ctx, "V1"))
	require.Equal(t, 2, n.count())
	final := n.last()
	assert.Equal(t, 0.0, *final.Rudder)
	assert.Equal(t, 60.0, *final.Throttle)
	assert.Equal(t, model.ModeManual, final.Mode)

	assert.False(t, d.EndManual(ctx, "V1"), "second end is a no-op")
	assert.Equal(t, 2, n.count())
	assert.False(t, d.Active("V1"))
	assert.Equal(t, model.ModeManual, modes.Current(), "ending the stream does not leave manual mode")

	clk.Step(500 * time.Millisecond)
	assert.Never(t, func() bool { return n.count() > 2 }, 50*time.Millisecond, tick)

	rudder, throttle := d.Live("V1")
	assert.Equal(t, 0.0, rudder)
	assert.Equal(t, 60.0, throttle)
}

func TestEndManualBeforeFirstTick(t *testing.T) {
	ctx := context.Background()
	d, n, _, _ := newDispatcher()

	d.SetRudder(ctx, "V1", 30)
	assert.True(t, d.EndManual(ctx, "V1"))

	require.Equal(t, 1, n.count())
	assert.Equal(t, 0.0, *n.last().Rudder)
	assert.Equal(t, 0.0, *n.last().Throttle)
}

func TestEndManualWithoutStream(t *testing.T) {
	d, n, _, _ := newDispatcher()
	assert.False(t, d.EndManual(context.Background(), "ghost"))
	assert.Equal(t, 0, n.count())
}

func TestOneStreamPerVehicle(t *testing.T) {
	ctx := context.Background()
	d, n, _, clk := newDispatcher()

	d.SetRudder(ctx, "V1", 10)
	d.SetRudder(ctx, "V2", -10)
	stepTick(t, clk, n, 2)

	assert.Equal(t, 2, d.EndAllManual(ctx))
	assert.Equal(t, 4, n.count())
	assert.Equal(t, 0, d.EndAllManual(ctx))
}

func TestDisconnectedDropsAndKeepsTicking(t *testing.T) {
	ctx := context.Background()
	d, n, _, clk := newDispatcher()
	dropped := testutil.ToFloat64(metrics.CommandsTotal.WithLabelValues("manual", "dropped"))

	n.connected.Store(false)
	d.SetThrottle(ctx, "V1", 20)

	clk.Step(500 * time.Millisecond)
	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.CommandsTotal.WithLabelValues("manual", "dropped")) == dropped+1
	}, waitFor, tick)
	assert.Equal(t, 0, n.count())
	assert.True(t, d.Active("V1"))

	n.connected.Store(true)
	stepTick(t, clk, n, 1)
	assert.Equal(t, 20.0, *n.last().Throttle)

	d.StopAll()
}

func TestNotifyErrorIsDropped(t *testing.T) {
	d, n, _, _ := newDispatcher()
	n.fail = core.ErrChannelUnavailable

	assert.False(t, d.SendRoute(context.Background(), "V1", model.Position{Lat: 1, Lng: 2}))
}

func TestSendRoute(t *testing.T) {
	d, n, modes, _ := newDispatcher()

	assert.True(t, d.SendRoute(context.Background(), "unknown-boat", model.Position{Lat: 1.5, Lng: 2.5}))
	require.Equal(t, 1, n.count())
	got := n.last()
	assert.Equal(t, "unknown-boat", got.VehicleID)
	assert.Equal(t, model.ModeAuto, got.Mode)
	assert.Equal(t, 1.5, *got.TargetLat)
	assert.Equal(t, 2.5, *got.TargetLng)
	assert.Equal(t, model.ModeAuto, modes.Current())
}

func TestStopDoesNotEmit(t *testing.T) {
	ctx := context.Background()
	d, n, _, clk := newDispatcher()

	d.SetRudder(ctx, "V1", 10)
	assert.True(t, d.Stop("V1"))
	assert.False(t, d.Stop("V1"))

	clk.Step(time.Second)
	assert.Never(t, func() bool { return n.count() > 0 }, 50*time.Millisecond, tick)
}
