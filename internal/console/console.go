package console

import (
	"context"

	"github.com/autopeer-io/fleetlink/internal/console/core/service"
	"github.com/autopeer-io/fleetlink/internal/console/server"
	"github.com/autopeer-io/fleetlink/pkg/log"
	"github.com/autopeer-io/fleetlink/pkg/options"
)

// ConsoleServer runs the fleet operator console.
type ConsoleServer struct {
	serverManager *server.Manager
	sessions      *service.Registry
}

// Run blocks until ctx is canceled or a server fails. Every session is torn
// down on the way out.
func (s *ConsoleServer) Run(ctx context.Context) error {
	log.Info("Starting fleet console")
	defer func() {
		s.sessions.CloseAll()
		log.Info("Fleet console stopped")
	}()

	return s.serverManager.Start(ctx)
}

// Reconfigure applies new fleet tuning to sessions opened from now on.
func (s *ConsoleServer) Reconfigure(fo *options.FleetOptions) {
	s.sessions.Reconfigure(func(c *service.Config) { SessionConfig(fo, c) })
	log.Info("Fleet tuning reloaded",
		"dispatchInterval", fo.DispatchInterval,
		"notificationTTL", fo.NotificationTTL,
		"trailLength", fo.TrailLength)
}
