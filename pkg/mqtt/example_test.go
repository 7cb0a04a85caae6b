package mqtt_test

import (
	"context"
	"fmt"
	"time"

	"github.com/autopeer-io/fleetlink/pkg/log"
	"github.com/autopeer-io/fleetlink/pkg/mqtt"
	"github.com/autopeer-io/fleetlink/pkg/mqtt/topic"
)

// ExampleClient shows how the console wires the client: subscribe to every
// vehicle's telemetry and publish a command to one of them.
func ExampleClient() {
	cfg := &mqtt.ClientConfig{
		BrokerURL:      "tcp://localhost:1883",
		ClientID:       "fleet-console-example",
		KeepAlive:      30,
		ConnectTimeout: 5 * time.Second,
		CleanStart:     true,
	}

	client, err := mqtt.NewClient(cfg)
	if err != nil {
		log.Error(err, "Failed to create MQTT client")
		return
	}

	ctx := context.Background()
	if err := client.Start(ctx); err != nil {
		log.Error(err, "Failed to start MQTT client")
		return
	}
	defer client.Disconnect(ctx)

	topics := topic.NewBuilder("fleet/v1")

	// Handlers run on the reader goroutine; keep them short.
	onTelemetry := func(ctx context.Context, t string, payload []byte) {
		fmt.Printf("telemetry on %s: %s\n", t, payload)
	}
	if err := client.Subscribe(ctx, topics.BuildWildcard("telemetry"), 0, onTelemetry); err != nil {
		log.Error(err, "Failed to subscribe")
	}

	if err := client.AwaitConnection(ctx); err != nil {
		log.Error(err, "Connection timed out")
		return
	}

	payload := []byte(`{"id":"boat-1","md":"mnl","r":0,"th":40}`)
	if err := client.Publish(ctx, topics.Build("command", "boat-1"), 0, false, payload); err != nil {
		log.Error(err, "Failed to publish command")
	}
}
