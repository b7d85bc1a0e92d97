package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/nearwave/location-agent/internal/stream"
)

const streamShutdownTimeout = 5 * time.Second

// StreamService serves the local live view: the websocket position
// stream on /ws, Prometheus metrics on /metrics, and a health probe on
// /healthz.
type StreamService struct {
	addr   string
	hub    *stream.Hub
	logger zerolog.Logger

	server   *http.Server
	listener net.Listener
	wg       sync.WaitGroup
}

// NewStreamService initializes a new StreamService listening on addr.
func NewStreamService(addr string, hub *stream.Hub, logger zerolog.Logger) *StreamService {
	return &StreamService{
		addr:   addr,
		hub:    hub,
		logger: logger,
	}
}

// Start binds the listener and serves in the background. Bind failures
// surface here so a misconfigured address fails the agent's startup.
func (s *StreamService) Start() error {
	if s.server != nil {
		s.logger.Warn().Msg("StreamService is already running")
		return errors.New("stream service is already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error().Err(err).Str("addr", s.addr).Msg("Failed to bind stream listener")
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.hub.HandleWebSocket)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", s.handleHealthz)

	s.listener = listener
	s.server = &http.Server{Handler: mux}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("Stream server terminated unexpectedly")
		}
	}()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("StreamService started successfully")
	return nil
}

// Stop disconnects stream clients and shuts the server down.
func (s *StreamService) Stop() error {
	if s.server == nil {
		s.logger.Warn().Msg("StreamService is not running")
		return errors.New("stream service is not running")
	}

	s.hub.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), streamShutdownTimeout)
	defer cancel()
	err := s.server.Shutdown(ctx)

	s.wg.Wait()
	s.server = nil
	s.listener = nil

	if err != nil {
		s.logger.Error().Err(err).Msg("Stream server shutdown failed")
		return err
	}

	s.logger.Info().Msg("StreamService stopped successfully")
	return nil
}

// Addr reports the bound listen address, empty when not running.
func (s *StreamService) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *StreamService) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
