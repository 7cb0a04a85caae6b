package mission

import (
	"context"

	"github.com/autopeer-io/fleetlink/internal/console/core/mode"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// Router sends a one-shot routing command to a vehicle.
type Router interface {
	SendRoute(ctx context.Context, vehicleID string, target model.Position) bool
}

// Target reports the vehicle the mission is currently directing.
type Target interface {
	Current() string
}

// Planner owns the waypoint queue of a session. The front of the queue is the
// active target. Progress toward it is measured from the distance captured
// on the first position report after the front (or the target vehicle)
// changed.
//
// Planner is not safe for concurrent use; the owning session serializes access.
type Planner struct {
	queue  []model.Position
	modes  *mode.Machine
	router Router
	target Target
	log    log.Logger

	progress    float64
	total       float64
	hasBaseline bool
}

// New returns an empty Planner.
func New(modes *mode.Machine, router Router, target Target, logger log.Logger) *Planner {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Planner{
		modes:  modes,
		router: router,
		target: target,
		log:    logger,
	}
}

// Enqueue appends a waypoint. Nothing is sent.
func (p *Planner) Enqueue(pos model.Position) {
	p.queue = append(p.queue, pos)
	if len(p.queue) == 1 {
		p.ResetProgress()
	}
}

// RemoveAt deletes the waypoint at index i. Out-of-range indexes are ignored.
func (p *Planner) RemoveAt(i int) bool {
	if i < 0 || i >= len(p.queue) {
		return false
	}
	p.queue = append(p.queue[:i], p.queue[i+1:]...)
	if i == 0 {
		p.ResetProgress()
	}
	return true
}

// Skip drops the active waypoint. In auto mode the new front, if any, is
// routed to the target vehicle.
func (p *Planner) Skip(ctx context.Context) bool {
	if len(p.queue) == 0 {
		return false
	}
	p.queue = p.queue[1:]
	p.ResetProgress()

	if p.modes.Current() == model.ModeAuto {
		p.announce(ctx)
	}
	return true
}

// ToggleMission flips auto and paused, or leaves manual for auto. Entering
// auto re-announces the active waypoint.
func (p *Planner) ToggleMission(ctx context.Context) (model.Mode, error) {
	next, err := p.modes.Toggle(ctx)
	if err != nil {
		return next, err
	}
	if next == model.ModeAuto {
		p.announce(ctx)
	}
	return next, nil
}

// UpdateProgress recomputes progress from the target vehicle's position.
func (p *Planner) UpdateProgress(pos *model.Position) {
	if pos == nil || !pos.Valid() || len(p.queue) == 0 {
		return
	}

	remaining := Distance(*pos, p.queue[0])
	if !p.hasBaseline {
		p.total = remaining
		p.hasBaseline = true
	}
	p.progress = Progress(p.total, remaining)
}

// ResetProgress forgets the captured baseline. Called when the active
// waypoint or the target vehicle changes.
func (p *Planner) ResetProgress() {
	p.hasBaseline = false
	p.total = 0
	p.progress = 0
}

// Clear empties the queue.
func (p *Planner) Clear() {
	p.queue = nil
	p.ResetProgress()
}

// Queue returns a copy of the pending waypoints, front first.
func (p *Planner) Queue() []model.Position {
	out := make([]model.Position, len(p.queue))
	copy(out, p.queue)
	return out
}

// Front returns the active waypoint.
func (p *Planner) Front() (model.Position, bool) {
	if len(p.queue) == 0 {
		return model.Position{}, false
	}
	return p.queue[0], true
}

// Progress returns the completion toward the active waypoint in [0,100].
func (p *Planner) Progress() float64 {
	return p.progress
}

func (p *Planner) announce(ctx context.Context) {
	front, ok := p.Front()
	if !ok {
		return
	}
	vehicleID := p.target.Current()
	if vehicleID == "" {
		p.log.Debug("No target vehicle, waypoint not sent", "lat", front.Lat, "lng", front.Lng)
		return
	}
	p.router.SendRoute(ctx, vehicleID, front)
}
