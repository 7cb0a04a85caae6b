package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/dispatch"
	"github.com/autopeer-io/fleetlink/internal/console/core/mission"
	"github.com/autopeer-io/fleetlink/internal/console/core/mode"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/console/core/notify"
	"github.com/autopeer-io/fleetlink/internal/console/core/selector"
	"github.com/autopeer-io/fleetlink/internal/console/core/trail"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// Config carries the dependencies and tuning of a session.
type Config struct {
	Clock    clock.WithTickerAndDelayedExecution
	Notifier core.CommandNotifier
	Logger   log.Logger

	DispatchInterval time.Duration
	NotificationTTL  time.Duration
	TrailLength      int
}

func (c Config) withDefaults() Config {
	if c.Clock == nil {
		c.Clock = clock.RealClock{}
	}
	if c.Logger == nil {
		c.Logger = log.NewNopLogger()
	}
	if c.DispatchInterval <= 0 {
		c.DispatchInterval = dispatch.DefaultInterval
	}
	if c.NotificationTTL <= 0 {
		c.NotificationTTL = notify.DefaultTTL
	}
	if c.TrailLength <= 0 {
		c.TrailLength = trail.DefaultCapacity
	}
	return c
}

// Overview is the operator-facing summary of a session.
type Overview struct {
	ID           string              `json:"id"`
	Mode         model.Mode          `json:"mode"`
	Selected     string              `json:"selected,omitempty"`
	Notification *model.Notification `json:"notification,omitempty"`
	Waypoints    []model.Position    `json:"waypoints"`
	Progress     float64             `json:"progress"`
	Picked       *model.Position     `json:"picked,omitempty"`
	Manual       bool                `json:"manual"`
	Rudder       float64             `json:"rudder"`
	Throttle     float64             `json:"throttle"`
	Connected    bool                `json:"connected"`
}

// Session is one operator's fleet controller. It owns the vehicle table,
// trails, notifications, selection, mission and manual dispatch, and
// serializes every operation on them.
type Session struct {
	id  string
	log log.Logger

	mu     sync.Mutex
	closed bool
	clock  clock.PassiveClock

	notifier   core.CommandNotifier
	vehicles   *vehicleStore
	trails     *trail.Buffer
	notices    *notify.Manager
	selector   *selector.Selector
	modes      *mode.Machine
	planner    *mission.Planner
	dispatcher *dispatch.Dispatcher

	picked *model.Position
}

// NewSession builds an empty session.
func NewSession(id string, cfg Config) *Session {
	cfg = cfg.withDefaults()
	logger := cfg.Logger.WithValues("sessionID", id)

	s := &Session{
		id:       id,
		log:      logger,
		clock:    cfg.Clock,
		notifier: cfg.Notifier,
		vehicles: newVehicleStore(),
		trails:   trail.New(cfg.TrailLength),
		notices:  notify.New(cfg.Clock, cfg.NotificationTTL, logger.WithName("notify")),
		selector: &selector.Selector{},
		modes:    mode.New(logger.WithName("mode")),
	}
	s.dispatcher = dispatch.New(cfg.Notifier, s.modes, cfg.Clock, cfg.DispatchInterval, logger.WithName("dispatch"))
	s.planner = mission.New(s.modes, s.dispatcher, s.selector, logger.WithName("mission"))
	return s
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Ingest applies one telemetry snapshot. A snapshot without a usable
// position still updates the other fields and returns ErrMalformedTelemetry.
func (s *Session) Ingest(_ context.Context, snap *model.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}

	v, err := s.vehicles.apply(snap, s.clock.Now())
	if err != nil {
		return err
	}

	s.notices.Scan(v)
	v.LastNotificationID = s.notices.LastID(v.ID)
	s.selector.EnsureDefault(s.vehicles.ids())

	if v.Position == nil || !v.Position.Valid() {
		return fmt.Errorf("vehicle %s: %w", v.ID, core.ErrMalformedTelemetry)
	}

	s.trails.Append(v.ID, *v.Position)
	if v.ID == s.selector.Current() {
		s.planner.UpdateProgress(v.Position)
	}
	return nil
}

// Select targets vehicleID. Manual control of the previous target ends
// with its final command and mission progress is measured afresh.
func (s *Session) Select(ctx context.Context, vehicleID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return core.ErrSessionClosed
	}

	prev := s.selector.Current()
	if prev == vehicleID {
		return nil
	}
	if prev != "" {
		s.dispatcher.EndManual(ctx, prev)
	}
	s.selector.Select(vehicleID)
	s.planner.ResetProgress()
	s.log.Info("Vehicle selected", "vehicleID", vehicleID, "previous", prev)
	return nil
}

// SetRudder sets the target's rudder angle and takes manual control.
func (s *Session) SetRudder(ctx context.Context, degrees float64) (float64, error) {
	return s.manual(func(id string) float64 { return s.dispatcher.SetRudder(ctx, id, degrees) })
}

// SetThrottle sets the target's throttle and takes manual control.
func (s *Session) SetThrottle(ctx context.Context, percent float64) (float64, error) {
	return s.manual(func(id string) float64 { return s.dispatcher.SetThrottle(ctx, id, percent) })
}

func (s *Session) manual(set func(id string) float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.targetLocked()
	if err != nil {
		return 0, err
	}
	return set(id), nil
}

// ReleaseManual ends the manual stream of the target with a final command.
// The session stays in manual mode until the mission is toggled.
func (s *Session) ReleaseManual(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.targetLocked()
	if err != nil {
		return false, err
	}
	return s.dispatcher.EndManual(ctx, id), nil
}

// SendRoute sends an ad-hoc routing command to the target. A running manual
// stream for the target is ended first and the session returns to auto.
func (s *Session) SendRoute(ctx context.Context, target model.Position) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sendRouteLocked(ctx, target)
}

func (s *Session) sendRouteLocked(ctx context.Context, target model.Position) (bool, error) {
	if !target.Valid() {
		return false, core.ErrInvalidPosition
	}
	id, err := s.targetLocked()
	if err != nil {
		return false, err
	}

	s.dispatcher.EndManual(ctx, id)
	if s.modes.Current() == model.ModeManual {
		if err := s.modes.Resume(ctx); err != nil {
			return false, err
		}
	}
	return s.dispatcher.SendRoute(ctx, id, target), nil
}

// Pick holds a map position, rounded to six decimals, for a later send or
// enqueue. It replaces any earlier pick.
func (s *Session) Pick(pos model.Position) (model.Position, error) {
	if !pos.Valid() {
		return model.Position{}, core.ErrInvalidPosition
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p := pos.Round6()
	s.picked = &p
	return p, nil
}

// SendPicked routes the target to the picked position and clears it.
func (s *Session) SendPicked(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.picked == nil {
		return false, core.ErrNoPickedPosition
	}
	ok, err := s.sendRouteLocked(ctx, *s.picked)
	if err != nil {
		return false, err
	}
	s.picked = nil
	return ok, nil
}

// QueuePicked appends the picked position to the mission and clears it.
func (s *Session) QueuePicked() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.picked == nil {
		return core.ErrNoPickedPosition
	}
	s.planner.Enqueue(*s.picked)
	s.picked = nil
	return nil
}

// Enqueue appends a waypoint to the mission.
func (s *Session) Enqueue(pos model.Position) error {
	if !pos.Valid() {
		return core.ErrInvalidPosition
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planner.Enqueue(pos)
	return nil
}

// RemoveWaypoint deletes the waypoint at index i. It reports whether the
// index existed.
func (s *Session) RemoveWaypoint(i int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planner.RemoveAt(i)
}

// ClearMission drops every waypoint. The mode is unchanged.
func (s *Session) ClearMission() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planner.Clear()
}

// Skip drops the active waypoint; in auto mode the next one is sent.
func (s *Session) Skip(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.planner.Skip(ctx)
}

// ToggleMission pauses or resumes the mission. Leaving manual mode ends
// every manual stream with its final command before the active waypoint is
// re-announced.
func (s *Session) ToggleMission(ctx context.Context) (model.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.modes.Current() == model.ModeManual {
		s.dispatcher.EndAllManual(ctx)
	}
	return s.planner.ToggleMission(ctx)
}

// Mode returns the current mode.
func (s *Session) Mode() model.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes.Current()
}

// Selected returns the target vehicle id.
func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Current()
}

// Vehicles returns a copy of every known vehicle in first-seen order.
func (s *Session) Vehicles() []model.Vehicle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.vehicles.list()
}

// Vehicle returns a copy of one vehicle.
func (s *Session) Vehicle(id string) (model.Vehicle, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.vehicles.get(id)
	if !ok {
		return model.Vehicle{}, false
	}
	return *v.DeepCopy(), true
}

// Trail returns the recent positions of a vehicle, oldest first.
func (s *Session) Trail(id string) []model.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trails.Get(id)
}

// TrailSet is every vehicle trail of a session with the per-vehicle bound.
type TrailSet struct {
	Capacity int                         `json:"capacity"`
	Trails   map[string][]model.Position `json:"trails"`
}

// Trails returns the trails of all vehicles seen so far.
func (s *Session) Trails() TrailSet {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.trails.Vehicles()
	set := TrailSet{Capacity: s.trails.Capacity(), Trails: make(map[string][]model.Position, len(ids))}
	for _, id := range ids {
		set.Trails[id] = s.trails.Get(id)
	}
	return set
}

// Position returns the last known position of id, or of the target when id
// is empty.
func (s *Session) Position(id string) (model.Position, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		id = s.selector.Current()
	}
	v, ok := s.vehicles.get(id)
	if !ok || v.Position == nil {
		return model.Position{}, false
	}
	return *v.Position, true
}

// Notification returns the live notification, if any.
func (s *Session) Notification() (model.Notification, bool) {
	return s.notices.Current()
}

// DismissNotification clears the live notification.
func (s *Session) DismissNotification() bool {
	return s.notices.Dismiss()
}

// Overview summarizes the session for the presentation layer.
func (s *Session) Overview() Overview {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.selector.Current()
	o := Overview{
		ID:        s.id,
		Mode:      s.modes.Current(),
		Selected:  id,
		Waypoints: s.planner.Queue(),
		Progress:  s.planner.Progress(),
		Manual:    s.dispatcher.Active(id),
	}
	o.Rudder, o.Throttle = s.dispatcher.Live(id)
	if s.notifier != nil {
		o.Connected = s.notifier.Connected()
	}
	if n, ok := s.notices.Current(); ok {
		o.Notification = &n
	}
	if s.picked != nil {
		p := *s.picked
		o.Picked = &p
	}
	return o
}

// Close tears the session down. Timers are canceled without sending
// anything.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.dispatcher.StopAll()
	s.notices.Close()
	s.log.Info("Session closed")
}

func (s *Session) targetLocked() (string, error) {
	if s.closed {
		return "", core.ErrSessionClosed
	}
	id := s.selector.Current()
	if id == "" {
		return "", core.ErrNoVehicleSelected
	}
	return id, nil
}
