package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetlink/internal/console/core"
	"github.com/autopeer-io/fleetlink/internal/console/core/model"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
	"github.com/autopeer-io/fleetlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetlink/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetlink/pkg/mqtt"
	"github.com/autopeer-io/fleetlink/pkg/mqtt/topic"
)

// DefaultOutboxSize bounds the number of commands waiting to be published.
const DefaultOutboxSize = 256

// commandQoS is fixed: commands are superseded by the next tick or intent,
// so redelivery is never wanted.
const commandQoS = 0

// wireCommand is the command payload understood by the boats.
type wireCommand struct {
	ID        string   `json:"id"`
	Mode      string   `json:"md"`
	Rudder    *float64 `json:"r,omitempty"`
	Throttle  *float64 `json:"th,omitempty"`
	TargetLat *float64 `json:"tlat,omitempty"`
	TargetLng *float64 `json:"tlng,omitempty"`
}

// wireMode maps a session mode to its wire spelling.
func wireMode(m model.Mode) string {
	if m == model.ModeManual {
		return "mnl"
	}
	return string(model.ModeAuto)
}

// Encode renders cmd as the boats' JSON command payload.
func Encode(cmd *model.CommandIntent) ([]byte, error) {
	return json.Marshal(wireCommand{
		ID:        cmd.VehicleID,
		Mode:      wireMode(cmd.Mode),
		Rudder:    cmd.Rudder,
		Throttle:  cmd.Throttle,
		TargetLat: cmd.TargetLat,
		TargetLng: cmd.TargetLng,
	})
}

// MQTTNotifier publishes commands to {root}/command/{vehicleID}. Notify only
// enqueues; a single publisher drains the outbox in order.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
	outbox chan *model.CommandIntent
	log    log.Logger
}

var _ core.CommandNotifier = (*MQTTNotifier)(nil)

// NewMQTTNotifier returns a notifier publishing through client. The client
// is started and stopped by its owner.
func NewMQTTNotifier(client pkgmqtt.Client, topics *topic.Builder, outboxSize int) *MQTTNotifier {
	if outboxSize <= 0 {
		outboxSize = DefaultOutboxSize
	}
	return &MQTTNotifier{
		client: client,
		topics: topics,
		outbox: make(chan *model.CommandIntent, outboxSize),
		log:    log.WithName("notifier"),
	}
}

// Connected reports the broker connectivity of the underlying client.
func (n *MQTTNotifier) Connected() bool {
	return n.client.IsConnected()
}

// Notify queues cmd for publishing. It never blocks: when the client is
// disconnected or the outbox is full the command is rejected. ctx is not
// consulted, so a final command raised by a finished request is still queued.
func (n *MQTTNotifier) Notify(_ context.Context, cmd *model.CommandIntent) error {
	if !n.Connected() {
		return core.ErrChannelUnavailable
	}
	select {
	case n.outbox <- cmd:
		return nil
	default:
		return fmt.Errorf("outbox full (%d): %w", cap(n.outbox), core.ErrChannelUnavailable)
	}
}

// Start drains the outbox until ctx is done. Commands still queued at
// shutdown are discarded.
func (n *MQTTNotifier) Start(ctx context.Context) error {
	n.log.Info("Command publisher started")
	for {
		select {
		case <-ctx.Done():
			n.log.Info("Command publisher stopped", "discarded", len(n.outbox))
			return nil
		case cmd := <-n.outbox:
			n.publish(ctx, cmd)
		}
	}
}

func (n *MQTTNotifier) publish(ctx context.Context, cmd *model.CommandIntent) {
	payload, err := Encode(cmd)
	if err != nil {
		n.log.Error(err, "Failed to encode command", "vehicleID", cmd.VehicleID)
		return
	}

	t := n.topics.Build(paths.Command, cmd.VehicleID)
	start := time.Now()
	err = n.client.Publish(ctx, t, commandQoS, false, payload)
	metrics.CommandPublishLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		n.log.Debug("Failed to publish command", "topic", t, "error", err.Error())
	}
}
