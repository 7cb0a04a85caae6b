package dispatch

import (
	"context"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/mode"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
	"github.com/autopeer-io/fleetlink/internal/pkg/schedule"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// DefaultInterval is the manual command cadence.
const DefaultInterval = 500 * time.Millisecond

// control is the live manual state of one vehicle.
type control struct {
	rudder   float64
	throttle float64
	task     *schedule.Repeating
}

// Dispatcher streams manual rudder/throttle commands at a fixed cadence, at
// most one stream per vehicle, and sends one-shot routing commands.
//
// The mode machine is only touched from the operator-facing methods, which
// the owning session serializes. Ticks only read the live values under mu.
type Dispatcher struct {
	mu sync.Mutex

	notifier core.CommandNotifier
	modes    *mode.Machine
	clock    clock.WithTicker
	interval time.Duration
	log      log.Logger

	controls map[string]*control
}

// New returns a Dispatcher sending through notifier.
func New(notifier core.CommandNotifier, modes *mode.Machine, clk clock.WithTicker, interval time.Duration, logger log.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Dispatcher{
		notifier: notifier,
		modes:    modes,
		clock:    clk,
		interval: interval,
		log:      logger,
		controls: make(map[string]*control),
	}
}

// BeginManual switches the session to manual mode and starts the periodic
// stream for vehicleID. Calling it while the stream runs changes nothing.
func (d *Dispatcher) BeginManual(ctx context.Context, vehicleID string) bool {
	if err := d.modes.TakeManual(ctx); err != nil {
		d.log.Error(err, "Failed to enter manual mode", "vehicleID", vehicleID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.beginLocked(vehicleID)
}

// SetRudder stores the clamped rudder angle used by the next tick and makes
// sure the stream runs.
func (d *Dispatcher) SetRudder(ctx context.Context, vehicleID string, degrees float64) float64 {
	v := model.ClampRudder(degrees)
	d.mu.Lock()
	d.controlLocked(vehicleID).rudder = v
	d.mu.Unlock()

	d.BeginManual(ctx, vehicleID)
	return v
}

// SetThrottle stores the clamped throttle used by the next tick and makes
// sure the stream runs.
func (d *Dispatcher) SetThrottle(ctx context.Context, vehicleID string, percent float64) float64 {
	v := model.ClampThrottle(percent)
	d.mu.Lock()
	d.controlLocked(vehicleID).throttle = v
	d.mu.Unlock()

	d.BeginManual(ctx, vehicleID)
	return v
}

// EndManual stops the stream for vehicleID and immediately sends one final
// command with the rudder centered and the last throttle. It is a no-op when
// no stream runs. The mode is left unchanged.
func (d *Dispatcher) EndManual(ctx context.Context, vehicleID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.endLocked(ctx, vehicleID)
}

// EndAllManual ends every running stream with its final command.
func (d *Dispatcher) EndAllManual(ctx context.Context) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for id := range d.controls {
		if d.endLocked(ctx, id) {
			n++
		}
	}
	return n
}

// SendRoute sends a one-shot autonomous routing command.
func (d *Dispatcher) SendRoute(ctx context.Context, vehicleID string, target model.Position) bool {
	return d.emit(ctx, model.RouteIntent(vehicleID, target))
}

// Stop cancels the stream for vehicleID without sending anything.
func (d *Dispatcher) Stop(vehicleID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stopLocked(vehicleID)
}

// StopAll cancels every stream without sending anything.
func (d *Dispatcher) StopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range d.controls {
		d.stopLocked(id)
	}
}

// Live returns the current rudder and throttle for vehicleID.
func (d *Dispatcher) Live(vehicleID string) (rudder, throttle float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.controls[vehicleID]; ok {
		return c.rudder, c.throttle
	}
	return 0, 0
}

// Active reports whether a stream runs for vehicleID.
func (d *Dispatcher) Active(vehicleID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.controls[vehicleID]
	return ok && c.task.Running()
}

func (d *Dispatcher) controlLocked(vehicleID string) *control {
	c, ok := d.controls[vehicleID]
	if !ok {
		c = &control{task: schedule.NewRepeating(d.clock, &d.mu)}
		d.controls[vehicleID] = c
	}
	return c
}

func (d *Dispatcher) beginLocked(vehicleID string) bool {
	c := d.controlLocked(vehicleID)
	started := c.task.Start(d.interval, func() {
		d.emit(context.Background(), model.ManualIntent(vehicleID, c.rudder, c.throttle))
	})
	if started {
		metrics.ManualDispatchActive.Inc()
		d.log.Info("Manual dispatch started", "vehicleID", vehicleID, "interval", d.interval)
	}
	return started
}

func (d *Dispatcher) endLocked(ctx context.Context, vehicleID string) bool {
	c, ok := d.controls[vehicleID]
	if !ok || !d.stopLocked(vehicleID) {
		return false
	}
	c.rudder = 0
	// The final command outlives the request that ended the stream.
	d.emit(context.WithoutCancel(ctx), model.ManualIntent(vehicleID, c.rudder, c.throttle))
	return true
}

func (d *Dispatcher) stopLocked(vehicleID string) bool {
	c, ok := d.controls[vehicleID]
	if !ok || !c.task.Stop() {
		return false
	}
	metrics.ManualDispatchActive.Dec()
	d.log.Info("Manual dispatch stopped", "vehicleID", vehicleID)
	return true
}

// emit hands cmd to the notifier. A disconnected or saturated channel drops
// the command.
func (d *Dispatcher) emit(ctx context.Context, cmd *model.CommandIntent) bool {
	if !d.notifier.Connected() {
		metrics.CommandsTotal.WithLabelValues(string(cmd.Mode), "dropped").Inc()
		d.log.Debug("Command channel unavailable, command dropped", "vehicleID", cmd.VehicleID, "mode", cmd.Mode)
		return false
	}
	if err := d.notifier.Notify(ctx, cmd); err != nil {
		metrics.CommandsTotal.WithLabelValues(string(cmd.Mode), "dropped").Inc()
		d.log.Debug("Command dropped", "vehicleID", cmd.VehicleID, "mode", cmd.Mode, "error", err.Error())
		return false
	}
	metrics.CommandsTotal.WithLabelValues(string(cmd.Mode), "sent").Inc()
	return true
}
