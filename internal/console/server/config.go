package server

import (
	pkgmqtt "github.com/autopeer-io/fleetlink/pkg/mqtt"
	"github.com/autopeer-io/fleetlink/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetlink/pkg/options"
)

type Config struct {
	HttpOptions *options.HttpOptions
	MqttOptions *options.MqttOptions

	// Client is shared by telemetry ingress and the command publisher.
	Client pkgmqtt.Client
	Topics *topic.Builder

	// ConsoleID names this console on the presence topic.
	ConsoleID string
}
