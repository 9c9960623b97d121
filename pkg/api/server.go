/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api serves the reconciled resource tables over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	sdhttp "github.com/carverauto/stackdock/pkg/http"
	"github.com/carverauto/stackdock/pkg/logger"
	"github.com/carverauto/stackdock/pkg/models"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

var errAlreadyStarted = errors.New("api server already started")

// ViewSource is the read side of snapshot.Views.
type ViewSource interface {
	Get(rt models.ResourceType) (*models.View, bool)
	Subscribe(rt models.ResourceType) (<-chan *models.View, func())
}

// StatusSource reports per-dock sync health.
type StatusSource interface {
	Status() []models.DockStatus
}

// Server is the dashboard API.
type Server struct {
	addr   string
	views  ViewSource
	status StatusSource
	cors   models.CORSConfig
	apiKey string
	logger logger.Logger
	router *mux.Router

	mu       sync.Mutex
	srv      *http.Server
	listener net.Listener
	closing  chan struct{}
}

// Option customises a Server.
type Option func(*Server)

func WithCORS(cors models.CORSConfig) Option {
	return func(s *Server) {
		s.cors = cors
	}
}

// WithAPIKey requires the key on every route except /health.
func WithAPIKey(key string) Option {
	return func(s *Server) {
		s.apiKey = key
	}
}

// WithStatus exposes dock health on /api/v1/docks.
func WithStatus(status StatusSource) Option {
	return func(s *Server) {
		s.status = status
	}
}

// NewServer builds the router. Start binds addr.
func NewServer(addr string, views ViewSource, log logger.Logger, opts ...Option) *Server {
	s := &Server{
		addr:    addr,
		views:   views,
		logger:  log,
		router:  mux.NewRouter(),
		closing: make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return sdhttp.CommonMiddleware(next, s.cors, s.logger)
	})
	s.router.Use(sdhttp.APIKeyMiddlewareWithOptions(sdhttp.APIKeyOptions{
		APIKey:          s.apiKey,
		ExcludePaths:    []string{"/health"},
		LogUnauthorized: true,
		Logger:          s.logger,
	}))

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/docks", s.handleDocks).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/resources/{type}", s.handleResources).Methods(http.MethodGet, http.MethodOptions)
	v1.HandleFunc("/resources/{type}/live", s.handleLive).Methods(http.MethodGet)
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.srv != nil {
		return errAlreadyStarted
	}

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	s.listener = ln
	s.srv = &http.Server{
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	srv := s.srv

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("API server stopped")
		}
	}()

	s.logger.Info().Str("addr", ln.Addr().String()).Msg("API server listening")

	return nil
}

// Addr is the bound address once started.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return s.addr
	}

	return s.listener.Addr().String()
}

// Stop ends live streams and shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv = nil
	s.mu.Unlock()

	select {
	case <-s.closing:
	default:
		close(s.closing)
	}

	if srv == nil {
		return nil
	}

	return srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDocks(w http.ResponseWriter, _ *http.Request) {
	status := []models.DockStatus{}
	if s.status != nil {
		status = s.status.Status()
	}

	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, code int) {
	s.writeJSON(w, code, models.ErrorResponse{Message: message, Status: code})
}
