package mode

import (
	"context"
	"fmt"

	"github.com/looplab/fsm"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	fsmutil "github.com/autopeer-io/fleetlink/internal/pkg/util/fsm"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// Mode events.
const (
	EventTakeManual = "take_manual"
	EventPause      = "pause"
	EventResume     = "resume"
)

// ChangeFunc observes a completed mode change.
type ChangeFunc func(from, to model.Mode)

// Machine is the session's auto/manual/paused state machine. Every mode
// change goes through one of its named events.
type Machine struct {
	fsm      *fsm.FSM
	log      log.Logger
	onChange ChangeFunc
}

// New returns a Machine in auto mode.
func New(logger log.Logger) *Machine {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	m := &Machine{log: logger}

	m.fsm = fsm.NewFSM(
		string(model.ModeAuto),
		fsm.Events{
			{Name: EventTakeManual, Src: []string{string(model.ModeAuto), string(model.ModePaused), string(model.ModeManual)}, Dst: string(model.ModeManual)},
			{Name: EventPause, Src: []string{string(model.ModeAuto)}, Dst: string(model.ModePaused)},
			{Name: EventResume, Src: []string{string(model.ModePaused), string(model.ModeManual)}, Dst: string(model.ModeAuto)},
		},
		fsm.Callbacks{
			"enter_state": fsmutil.WrapEvent(m.enterState),
		},
	)
	return m
}

// OnChange registers fn to be called after every mode change.
func (m *Machine) OnChange(fn ChangeFunc) {
	m.onChange = fn
}

// Current returns the current mode.
func (m *Machine) Current() model.Mode {
	return model.Mode(m.fsm.Current())
}

// TakeManual enters manual mode. It is a no-op when already manual.
func (m *Machine) TakeManual(ctx context.Context) error {
	return m.fire(ctx, EventTakeManual)
}

// Pause enters paused mode from auto.
func (m *Machine) Pause(ctx context.Context) error {
	return m.fire(ctx, EventPause)
}

// Resume returns to auto from paused or manual.
func (m *Machine) Resume(ctx context.Context) error {
	return m.fire(ctx, EventResume)
}

// Toggle flips auto to paused, and paused or manual back to auto. It
// returns the resulting mode.
func (m *Machine) Toggle(ctx context.Context) (model.Mode, error) {
	event := EventResume
	if m.Current() == model.ModeAuto {
		event = EventPause
	}
	if err := m.fire(ctx, event); err != nil {
		return m.Current(), err
	}
	return m.Current(), nil
}

func (m *Machine) fire(ctx context.Context, event string) error {
	err := m.fsm.Event(ctx, event)
	switch {
	case err == nil, fsmutil.IsNoTransition(err):
		return nil
	case fsmutil.IsRejected(err):
		return fmt.Errorf("%s from %s: %w", event, m.fsm.Current(), core.ErrInvalidTransition)
	default:
		return fmt.Errorf("mode event %s: %w", event, err)
	}
}

func (m *Machine) enterState(_ context.Context, e *fsm.Event) error {
	m.log.Info("Mode changed", "event", e.Event, "from", e.Src, "to", e.Dst)
	if m.onChange != nil {
		m.onChange(model.Mode(e.Src), model.Mode(e.Dst))
	}
	return nil
}
