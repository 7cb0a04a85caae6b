package core

import (
	"context"

	"github.com/autopeer-io/fleetlink/internal/console/core/model"
)

// CommandNotifier is the outbound command channel to vehicles.
// It is implemented by the MQTT outbound adapter.
type CommandNotifier interface {
	// Notify hands the command to the transport without waiting for delivery.
	Notify(ctx context.Context, cmd *model.CommandIntent) error

	// Connected reports the transport's current connectivity.
	Connected() bool
}
