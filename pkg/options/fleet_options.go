package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*FleetOptions)(nil)

// FleetOptions tunes the per-session control engine.
type FleetOptions struct {
	// DispatchInterval is the cadence of manual rudder/throttle commands.
	DispatchInterval time.Duration `json:"dispatch-interval" mapstructure:"dispatch-interval"`

	// NotificationTTL is how long a "reached" notification stays live.
	NotificationTTL time.Duration `json:"notification-ttl" mapstructure:"notification-ttl"`

	// TrailLength caps the per-vehicle position history.
	TrailLength int `json:"trail-length" mapstructure:"trail-length"`

	// OutboxSize is the number of commands buffered for the MQTT publisher
	// before new ones are dropped.
	OutboxSize int `json:"outbox-size" mapstructure:"outbox-size"`
}

func NewFleetOptions() *FleetOptions {
	return &FleetOptions{
		DispatchInterval: 500 * time.Millisecond,
		NotificationTTL:  2 * time.Second,
		TrailLength:      50,
		OutboxSize:       256,
	}
}

func (o *FleetOptions) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error

	if o.DispatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("--fleet.dispatch-interval must be positive, got %s", o.DispatchInterval))
	}
	if o.NotificationTTL <= 0 {
		errs = append(errs, fmt.Errorf("--fleet.notification-ttl must be positive, got %s", o.NotificationTTL))
	}
	if o.TrailLength < 1 {
		errs = append(errs, fmt.Errorf("--fleet.trail-length must be at least 1, got %d", o.TrailLength))
	}
	if o.OutboxSize < 1 {
		errs = append(errs, fmt.Errorf("--fleet.outbox-size must be at least 1, got %d", o.OutboxSize))
	}

	return errs
}

func (o *FleetOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.DurationVar(&o.DispatchInterval, "fleet.dispatch-interval", o.DispatchInterval, "Interval between manual control commands.")
	fs.DurationVar(&o.NotificationTTL, "fleet.notification-ttl", o.NotificationTTL, "How long a destination-reached notification stays visible.")
	fs.IntVar(&o.TrailLength, "fleet.trail-length", o.TrailLength, "Number of recent positions kept per vehicle.")
	fs.IntVar(&o.OutboxSize, "fleet.outbox-size", o.OutboxSize, "Commands buffered for publishing before new ones are dropped.")
}
