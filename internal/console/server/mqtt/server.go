package mqtt

import (
	"context"
	"encoding/json"
	"errors"
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

// TelemetrySink receives decoded snapshots.
type TelemetrySink interface {
	Ingest(ctx context.Context, snap *model.Snapshot) error
}

// Server implements the MQTT ingress layer. It owns the client lifecycle
// shared with the command notifier.
type Server struct {
	client    pkgmqtt.Client
	topics    *topic.Builder
	sink      TelemetrySink
	qos       int
	consoleID string
	log       log.Logger

	// filters are the active subscriptions, dropped again on shutdown.
	filters []string
}

// NewServer creates a new MQTT ingress server.
func NewServer(client pkgmqtt.Client, builder *topic.Builder, sink TelemetrySink, qos int, consoleID string) *Server {
	return &Server{
		client:    client,
		topics:    builder,
		sink:      sink,
		qos:       qos,
		consoleID: consoleID,
		log:       log.WithName("mqtt"),
	}
}

// PresencePayload is the retained body on the console's online topic.
func PresencePayload(online bool) []byte {
	b, _ := json.Marshal(map[string]bool{"online": online})
	return b
}

// Start connects to the broker, subscribes to telemetry and blocks until
// ctx is done.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}

	defer func() {
		s.log.Info("Disconnecting MQTT client...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, filter := range s.filters {
			if err := s.client.Unsubscribe(shutdownCtx, filter); err != nil {
				s.log.Debug("Unsubscribe failed", "filter", filter, "error", err.Error())
			}
		}
		if s.consoleID != "" {
			_ = s.client.Publish(shutdownCtx, s.topics.Build(paths.Online, s.consoleID), 1, true, PresencePayload(false))
		}
		s.client.Disconnect(shutdownCtx)
		s.log.Info("MQTT client disconnected")
	}()

	s.log.Info("Waiting for MQTT connection...")
	if err := s.client.AwaitConnection(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	s.log.Info("MQTT Connected")

	if err := s.initMQTTSubscriptions(ctx); err != nil {
		return err
	}

	if s.consoleID != "" {
		if err := s.client.Publish(ctx, s.topics.Build(paths.Online, s.consoleID), 1, true, PresencePayload(true)); err != nil {
			s.log.Error(err, "Failed to publish presence", "consoleID", s.consoleID)
		}
	}

	<-ctx.Done()

	return nil
}

func (s *Server) initMQTTSubscriptions(ctx context.Context) error {
	subscriptions := map[string]HandlerFunc{
		paths.Telemetry: s.handleTelemetry,
	}

	for segment, handler := range subscriptions {
		filter := s.topics.BuildWildcard(segment)
		if err := s.client.Subscribe(ctx, filter, s.qos, func(c context.Context, t string, p []byte) {
			if handleErr := handler(c, t, p); handleErr != nil {
				s.log.Debug("Handler execution failed", "topic", t, "error", handleErr.Error())
			}
		}); err != nil {
			return fmt.Errorf("failed to subscribe to topic: %s, err: %w", filter, err)
		}
		s.filters = append(s.filters, filter)
		s.log.Info("Subscribed", "filter", filter, "qos", s.qos)
	}

	return nil
}

// handleTelemetry decodes a report and applies every snapshot in it.
func (s *Server) handleTelemetry(ctx context.Context, t string, payload []byte) error {
	topicID, _ := s.topics.ID(paths.Telemetry, t)

	snaps, err := DecodeTelemetry(topicID, payload)
	if err != nil {
		metrics.TelemetrySnapshotsTotal.WithLabelValues("invalid").Inc()
		if len(snaps) == 0 {
			return err
		}
	}

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, snap := range snaps {
		ingestErr := s.sink.Ingest(ctx, snap)
		metrics.TelemetrySnapshotsTotal.WithLabelValues(outcome(ingestErr)).Inc()
		if ingestErr != nil && !errors.Is(ingestErr, core.ErrMalformedTelemetry) {
			errs = append(errs, ingestErr)
		}
	}
	return errors.Join(errs...)
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "applied"
	case errors.Is(err, core.ErrStaleTelemetry):
		return "stale"
	case errors.Is(err, core.ErrMalformedTelemetry):
		return "partial"
	default:
		return "invalid"
	}
}
