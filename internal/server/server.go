// Package server provides the HTTP status API and the live frame preview
// websocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/bbernstein/lacylights-matrix/internal/database/models"
	"github.com/bbernstein/lacylights-matrix/internal/services/frameloop"
	"github.com/bbernstein/lacylights-matrix/internal/services/network"
	"github.com/bbernstein/lacylights-matrix/internal/services/pubsub"
)

const (
	maxRunsLimit    = 200
	wsWriteTimeout  = 5 * time.Second
	wsPingInterval  = 10 * time.Second
	frameBufferSize = 4
	shutdownTimeout = 10 * time.Second
)

// StatusProvider reports the frame loop status.
type StatusProvider interface {
	Status() frameloop.Status
}

// RunLister lists recorded runs, newest first.
type RunLister interface {
	FindRecent(ctx context.Context, limit int) ([]models.RunRecord, error)
}

// Config holds status server configuration.
type Config struct {
	Port           string
	CORSOrigin     string
	Debug          bool
	Version        string
	ArtNetBindAddr string
	ArtNetPort     int
}

// Server serves the status API.
type Server struct {
	cfg      Config
	status   StatusProvider
	runs     RunLister
	ps       *pubsub.PubSub
	router   chi.Router
	started  time.Time
	upgrader websocket.Upgrader
	done     chan struct{}
}

// New creates a status server. runs may be nil when run history is disabled.
func New(cfg Config, status StatusProvider, runs RunLister, ps *pubsub.PubSub) *Server {
	s := &Server{
		cfg:     cfg,
		status:  status,
		runs:    runs,
		ps:      ps,
		started: time.Now(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 16 * 1024,
		},
		done: make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	if s.cfg.Debug {
		router.Use(middleware.Logger)
	}
	router.Use(middleware.Recoverer)

	origins := []string{"http://localhost:3000", "http://localhost:4000"}
	if s.cfg.CORSOrigin != "" {
		origins = append([]string{s.cfg.CORSOrigin}, origins...)
	}
	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		Debug:            s.cfg.Debug,
	})
	router.Use(corsMiddleware.Handler)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Get("/health", s.handleHealth)
		r.Get("/api/status", s.handleStatus)
		r.Get("/api/runs", s.handleRuns)
		r.Get("/api/interfaces", s.handleInterfaces)
	})
	router.Get("/ws/frames", s.handleFrames)

	return router
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 Status API listening on http://localhost:%s", s.cfg.Port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		close(s.done)
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down status API...")
	close(s.done)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
	Uptime    string `json:"uptime"`
	State     string `json:"state"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   s.cfg.Version,
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		State:     s.status.Status().State,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs, err := s.runs.FindRecent(r.Context(), limit)
	if err != nil {
		log.Printf("Failed to list runs: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []models.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleInterfaces(w http.ResponseWriter, r *http.Request) {
	options, err := network.ListenInterfaces(s.cfg.ArtNetBindAddr, s.cfg.ArtNetPort)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, options)
}

// handleFrames streams rendered frames as JSON text messages until the
// client goes away or the server shuts down. Slow clients skip frames.
func (s *Server) handleFrames(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	sub := s.ps.Subscribe(pubsub.TopicFrameRendered, frameBufferSize)
	defer s.ps.Unsubscribe(sub)

	// The read side only watches for the client closing.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case msg, ok := <-sub.Channel:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				return
			}
		case <-closed:
			return
		case <-s.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
