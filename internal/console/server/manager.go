package server

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/autopeer-io/fleetlink/internal/console/core/service"
	"github.com/autopeer-io/fleetlink/internal/console/notifier"
	"github.com/autopeer-io/fleetlink/internal/console/server/http"
	"github.com/autopeer-io/fleetlink/internal/console/server/mqtt"
	"github.com/autopeer-io/fleetlink/pkg/log"
)

// Server defines the common interface for all sub-servers (mqtt, http,
// command publisher).
type Server interface {
	Start(ctx context.Context) error
}

// Manager manages the lifecycle of all protocol servers.
type Manager struct {
	servers []Server
}

// NewManager creates a new server manager and initializes all sub-servers.
func NewManager(cfg *Config, sessions *service.Registry, publisher *notifier.MQTTNotifier) (*Manager, error) {
	if cfg.Client == nil || cfg.Topics == nil {
		return nil, fmt.Errorf("server config: mqtt client and topic builder are required")
	}

	var servers []Server

	// 1. MQTT ingress: telemetry in, presence out.
	servers = append(servers, mqtt.NewServer(cfg.Client, cfg.Topics, sessions, cfg.MqttOptions.TelemetryQoS, cfg.ConsoleID))

	// 2. Command publisher draining the notifier outbox.
	servers = append(servers, publisher)

	// 3. HTTP: health checks, metrics and the operator API.
	servers = append(servers, http.NewServer(cfg.HttpOptions, sessions, cfg.Client.IsConnected))

	return &Manager{
		servers: servers,
	}, nil
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, srv := range m.servers {
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("All servers starting...")
	return g.Wait()
}
