// Package status serves the operational HTTP endpoints.
package status

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"deadlinebot/internal/scheduler"
)

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// TickReporter exposes the scheduler's last tick.
type TickReporter interface {
	Last() (scheduler.TickResult, int)
}

type Server struct {
	db      Pinger
	ticks   TickReporter
	router  *gin.Engine
	started time.Time
	log     *slog.Logger
}

func NewServer(db Pinger, ticks TickReporter, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		db:      db,
		ticks:   ticks,
		router:  router,
		started: time.Now(),
		log:     log.With("component", "status"),
	}

	router.GET("/health", s.handleHealth)
	router.GET("/scheduler", s.handleScheduler)

	return s
}

// Handler returns the router wrapped with CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return c.Handler(s.router)
}

// Run serves on addr until ctx is done.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("status server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.Ping(ctx); err != nil {
		s.log.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

type tickResponse struct {
	Ticks      int       `json:"ticks"`
	ID         string    `json:"id,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Candidates int       `json:"candidates"`
	Selected   int       `json:"selected"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Unrecorded int       `json:"unrecorded"`
	Suppressed int       `json:"suppressed"`
	Error      string    `json:"error,omitempty"`
}

func (s *Server) handleScheduler(c *gin.Context) {
	last, ticks := s.ticks.Last()
	resp := tickResponse{
		Ticks:      ticks,
		ID:         last.ID,
		StartedAt:  last.StartedAt,
		DurationMS: last.Duration.Milliseconds(),
		Candidates: last.Candidates,
		Selected:   last.Selected,
		Sent:       last.Sent,
		Failed:     last.Failed,
		Unrecorded: last.Unrecorded,
		Suppressed: last.Suppressed,
	}
	if last.Err != nil {
		resp.Error = last.Err.Error()
	}
	c.JSON(http.StatusOK, resp)
}
