// Package stream serves change notifications to websocket clients and
// exposes watch counters in Prometheus text format.
package stream

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"dirwatch/internal/event"
	"dirwatch/internal/logging"
	"dirwatch/internal/metrics"
	"dirwatch/internal/watcher"
)

const (
	EventsPath    = "/events"
	MetricsPath   = "/metrics"
	LogsPath      = "/logs"
	busName       = "notifications"
	readTimeout   = 10 * time.Second
	subscriberCap = 64
)

type Options struct {
	// Logger also backs /logs with its recent-entry buffer.
	Logger   *logging.Logger
	Registry *metrics.Registry
	// AllowedOrigins replaces the same-host check for websocket clients.
	AllowedOrigins []string
}

type Server struct {
	bus        *event.Bus[watcher.Notification]
	logger     *logging.Logger
	registry   *metrics.Registry
	mux        *http.ServeMux
	httpServer *http.Server
	listener   net.Listener
}

func NewServer(ctx context.Context, options Options) *Server {
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}
	server := &Server{
		bus: event.NewBus[watcher.Notification](ctx, event.BusOptions{
			Name:           busName,
			MaxSubscribers: subscriberCap,
			Registry:       registry,
			Logger:         options.Logger,
		}),
		logger:   options.Logger,
		registry: registry,
		mux:      http.NewServeMux(),
	}
	server.mux.Handle(EventsPath, &eventsHandler{
		bus:            server.bus,
		logger:         options.Logger,
		allowedOrigins: options.AllowedOrigins,
	})
	server.mux.Handle(MetricsPath, &metricsHandler{registry: registry})
	server.mux.Handle(LogsPath, &logsHandler{buffer: options.Logger.Buffer()})
	return server
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Publish forwards a notification to every connected client. Slow clients
// lose notifications rather than stall the watch loop.
func (s *Server) Publish(notification watcher.Notification) {
	s.bus.Publish(notification)
}

func (s *Server) Subscribers() int {
	return s.bus.SubscriberCount()
}

// Listen binds addr so that bind failures surface before watching starts.
func (s *Server) Listen(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: readTimeout,
	}
	return nil
}

func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve blocks until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Serve() error {
	if s.httpServer == nil {
		return errors.New("stream server is not listening")
	}
	s.logger.Info("event stream listening", map[string]string{
		"addr": s.Addr(),
	})
	if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes every client stream, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.bus.Close()
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
