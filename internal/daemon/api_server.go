package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"octowatch/internal/api"
	"octowatch/internal/config"
	"octowatch/internal/logging"
	"octowatch/internal/refresher"
)

const (
	healthPath   = "/api/health"
	maxPushBytes = 1 << 20
)

var unauthorized = api.ErrorResponse{Error: "unauthorized"}

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	router *mux.Router

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		logger: logging.NewComponentLogger(logger, "api"),
		daemon: d,
	}

	router := mux.NewRouter()
	router.Use(authMiddleware(strings.TrimSpace(cfg.Paths.APIToken)))
	router.HandleFunc(healthPath, srv.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/status", srv.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/api/state", srv.handleState).Methods(http.MethodGet)
	router.HandleFunc("/api/printers", srv.handlePrinters).Methods(http.MethodGet)
	router.HandleFunc("/api/push", srv.handlePush).Methods(http.MethodPost)
	router.HandleFunc("/api/poll", srv.handlePoll).Methods(http.MethodPost)
	router.HandleFunc("/api/test-notification", srv.handleTestNotification).Methods(http.MethodPost)
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	srv.router = router
	return srv
}

// start listens on the bind address. An empty bind disables the API.
func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server, listener := s.server, s.listener
	s.server, s.listener = nil, nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) address() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.HealthResponse{Status: "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	status := s.daemon.Status()
	writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:       status.Running,
		PID:           os.Getpid(),
		StartedAt:     api.FormatTime(status.StartedAt),
		Printers:      status.Printers,
		Tracked:       status.Tracked,
		StreamEnabled: status.StreamEnabled,
		LastPoll:      api.FormatTime(status.LastPoll),
		LastOutcome:   status.LastOutcome,
		JournalPath:   status.JournalPath,
		LockFilePath:  status.LockFilePath,
	})
}

func (s *apiServer) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.StateResponse{Records: api.FromRecords(s.daemon.State())})
}

func (s *apiServer) handlePrinters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, api.PrintersResponse{Printers: api.FromPrinters(s.daemon.Printers())})
}

func (s *apiServer) handlePush(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxPushBytes))
	if err := decoder.Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid push payload: "+err.Error())
		return
	}
	payload, err := refresher.DecodePushPayload(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	outcome := s.daemon.Push(r.Context(), payload)
	writeJSON(w, http.StatusOK, api.OutcomeResponse{Outcome: outcome.String()})
}

func (s *apiServer) handlePoll(w http.ResponseWriter, r *http.Request) {
	outcome := s.daemon.Poll(r.Context())
	writeJSON(w, http.StatusOK, api.OutcomeResponse{Outcome: outcome.String()})
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	sent, message, err := s.daemon.TestNotification(r.Context())
	if err != nil {
		logging.WarnWithContext(s.logger, "test notification failed", "test_notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "no test notification delivered"),
		)
		writeError(w, http.StatusBadGateway, message+": "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, api.TestNotificationResponse{Sent: sent, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.ErrorResponse{Error: message})
}
