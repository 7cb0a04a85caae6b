package console

import (
	"fmt"
	"os"

	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetlink/internal/console/core/service"
	"github.com/autopeer-io/fleetlink/internal/console/notifier"
	"github.com/autopeer-io/fleetlink/internal/console/server"
	"github.com/autopeer-io/fleetlink/internal/console/server/mqtt"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
	"github.com/autopeer-io/fleetlink/internal/pkg/mqtt/paths"
	"github.com/autopeer-io/fleetlink/pkg/log"
	pkgmqtt "github.com/autopeer-io/fleetlink/pkg/mqtt"
	"github.com/autopeer-io/fleetlink/pkg/mqtt/topic"
	"github.com/autopeer-io/fleetlink/pkg/options"
)

type Config struct {
	HttpOptions  *options.HttpOptions
	MqttOptions  *options.MqttOptions
	FleetOptions *options.FleetOptions
}

// SessionConfig maps the fleet tuning onto a session configuration.
func SessionConfig(fo *options.FleetOptions, c *service.Config) {
	c.DispatchInterval = fo.DispatchInterval
	c.NotificationTTL = fo.NotificationTTL
	c.TrailLength = fo.TrailLength
}

func (cfg *Config) NewConsoleServer() (*ConsoleServer, error) {
	topics := topic.NewBuilder(cfg.MqttOptions.TopicRoot)

	// 1. Infrastructure: MQTT client shared by ingress and egress.
	clientCfg := cfg.MqttOptions.ToClientConfig()
	if clientCfg.ClientID == "" {
		hostname, _ := os.Hostname()
		clientCfg.ClientID = fmt.Sprintf("fleet-console-%s-%d", hostname, os.Getpid())
	}
	clientCfg.WillTopic = topics.Build(paths.Online, clientCfg.ClientID)
	clientCfg.WillPayload = mqtt.PresencePayload(false)
	clientCfg.WillQoS = 1
	clientCfg.WillRetain = true
	clientCfg.OnConnectionChange = metrics.SetChannelConnected

	client, err := pkgmqtt.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}

	// 2. Infrastructure: Notifier (Secondary Adapter)
	publisher := notifier.NewMQTTNotifier(client, topics, cfg.FleetOptions.OutboxSize)

	// 3. Core: operator sessions sharing one command channel.
	sessionCfg := service.Config{
		Clock:    clock.RealClock{},
		Notifier: publisher,
		Logger:   log.WithName("console"),
	}
	SessionConfig(cfg.FleetOptions, &sessionCfg)
	sessions := service.NewRegistry(sessionCfg)

	// 4. Ingress Servers (Primary Adapters)
	serverConfig := &server.Config{
		HttpOptions: cfg.HttpOptions,
		MqttOptions: cfg.MqttOptions,
		Client:      client,
		Topics:      topics,
		ConsoleID:   clientCfg.ClientID,
	}
	srvManager, err := server.NewManager(serverConfig, sessions, publisher)
	if err != nil {
		return nil, fmt.Errorf("failed to init server manager: %w", err)
	}

	return &ConsoleServer{
		serverManager: srvManager,
		sessions:      sessions,
	}, nil
}
