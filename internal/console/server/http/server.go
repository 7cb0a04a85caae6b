package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/fleetlink/internal/console/core/service"
	"github.com/autopeer-io/fleetlink/internal/pkg/metrics"
	middleware "github.com/autopeer-io/fleetlink/internal/pkg/middleware/http"
	"github.com/autopeer-io/fleetlink/pkg/log"
	"github.com/autopeer-io/fleetlink/pkg/options"
)

// ReadyFunc reports whether the console can currently reach the vehicles.
type ReadyFunc func() bool

type Server struct {
	server  *http.Server
	options *options.HttpOptions
	log     log.Logger
}

func NewServer(opts *options.HttpOptions, sessions *service.Registry, ready ReadyFunc) *Server {
	logger := log.WithName("http")

	router := NewRouter(sessions, ready)
	router.Use(middleware.Timeout(opts.Timeout), middleware.Logging(logger))

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       opts.Timeout,
			WriteTimeout:      opts.Timeout,
		},
		options: opts,
		log:     logger,
	}
}

// NewRouter builds the health, metrics and operator API routes.
func NewRouter(sessions *service.Registry, ready ReadyFunc) *mux.Router {
	r := mux.NewRouter()

	// Liveness
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness follows broker connectivity.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			http.Error(w, "mqtt disconnected", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	h := &handler{sessions: sessions}
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/sessions", h.listSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions", h.openSession).Methods(http.MethodPost)

	s := api.PathPrefix("/sessions/{sid}").Subrouter()
	s.HandleFunc("", h.closeSession).Methods(http.MethodDelete)
	s.HandleFunc("", h.overview).Methods(http.MethodGet)
	s.HandleFunc("/vehicles", h.vehicles).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{vid}/trail", h.trail).Methods(http.MethodGet)
	s.HandleFunc("/trails", h.trails).Methods(http.MethodGet)
	s.HandleFunc("/vehicles/{vid}/position", h.position).Methods(http.MethodGet)
	s.HandleFunc("/select", h.selectVehicle).Methods(http.MethodPost)
	s.HandleFunc("/manual/rudder", h.setRudder).Methods(http.MethodPost)
	s.HandleFunc("/manual/throttle", h.setThrottle).Methods(http.MethodPost)
	s.HandleFunc("/manual/release", h.release).Methods(http.MethodPost)
	s.HandleFunc("/route", h.route).Methods(http.MethodPost)
	s.HandleFunc("/pick", h.pick).Methods(http.MethodPost)
	s.HandleFunc("/pick/send", h.sendPicked).Methods(http.MethodPost)
	s.HandleFunc("/pick/queue", h.queuePicked).Methods(http.MethodPost)
	s.HandleFunc("/mission/waypoints", h.enqueue).Methods(http.MethodPost)
	s.HandleFunc("/mission/waypoints", h.clearMission).Methods(http.MethodDelete)
	s.HandleFunc("/mission/waypoints/{index:[0-9]+}", h.removeWaypoint).Methods(http.MethodDelete)
	s.HandleFunc("/mission/skip", h.skip).Methods(http.MethodPost)
	s.HandleFunc("/mission/toggle", h.toggle).Methods(http.MethodPost)
	s.HandleFunc("/notification", h.dismiss).Methods(http.MethodDelete)

	return r
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info("Starting HTTP Server", "network", s.options.Network, "addr", s.server.Addr)

	ln, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
