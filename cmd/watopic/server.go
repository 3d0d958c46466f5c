package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"watopic/internal/constants"
	"watopic/internal/metrics"
	"watopic/internal/middleware"
	"watopic/internal/models"
	"watopic/internal/service"
	"watopic/internal/validation"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Server exposes the webhook endpoints that feed the orchestrator's event
// queues, plus health and metrics probes.
type Server struct {
	router       *mux.Router
	logger       *logrus.Logger
	orchestrator *service.Orchestrator
	cfg          *models.Config
	registry     *metrics.Registry
	server       *http.Server
}

func NewServer(cfg *models.Config, orchestrator *service.Orchestrator, logger *logrus.Logger) *Server {
	s := &Server{
		router:       mux.NewRouter(),
		logger:       logger,
		orchestrator: orchestrator,
		cfg:          cfg,
		registry:     metrics.NewRegistry(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger, s.registry))
	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)
	s.router.HandleFunc("/webhook/whatsapp", s.handleSourceWebhook()).Methods(http.MethodPost)
	s.router.HandleFunc("/webhook/workspace", s.handleWorkspaceWebhook()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	port := os.Getenv("PORT")
	if port == "" {
		port = fmt.Sprintf("%d", constants.DefaultServerPort)
	}

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%s", port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.WithField("addr", s.server.Addr).Info("Starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
			s.logger.WithError(err).Debug("Failed to write health response")
		}
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.registry.Snapshot()); err != nil {
			s.logger.WithError(err).Debug("Failed to write metrics response")
		}
	}
}

func (s *Server) handleSourceWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.WhatsApp.WebhookSecret, "X-Webhook-Hmac")
		if err != nil {
			s.logger.WithError(err).Warn("Rejected source webhook")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var event models.SourceEvent
		if err := json.Unmarshal(body, &event); err != nil {
			s.logger.WithError(err).Warn("Malformed source webhook payload")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := validation.ValidateSourceEvent(&event); err != nil {
			s.logger.WithError(err).Warn("Invalid source event")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		select {
		case s.orchestrator.SourceEvents() <- event:
			w.WriteHeader(http.StatusAccepted)
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		}
	}
}

func (s *Server) handleWorkspaceWebhook() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := verifySignature(r, s.cfg.Workspace.WebhookSecret, "X-Signature")
		if err != nil {
			s.logger.WithError(err).Warn("Rejected workspace webhook")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var msg models.WorkspaceMessage
		if err := json.Unmarshal(body, &msg); err != nil {
			s.logger.WithError(err).Warn("Malformed workspace webhook payload")
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if err := validation.ValidateWorkspaceMessage(&msg); err != nil {
			s.logger.WithError(err).Warn("Invalid workspace message")
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		select {
		case s.orchestrator.WorkspaceEvents() <- msg:
			w.WriteHeader(http.StatusAccepted)
		case <-r.Context().Done():
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)
		}
	}
}
