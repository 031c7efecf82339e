package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hochfrequenz/fiztarefa/internal/domain"
	"github.com/hochfrequenz/fiztarefa/internal/focus"
	"github.com/hochfrequenz/fiztarefa/internal/pomodoro"
	"github.com/hochfrequenz/fiztarefa/internal/taskstore"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Timer is the timer control surface the API exposes
type Timer interface {
	Start(ctx context.Context) error
	Pause(ctx context.Context) error
	Reset(ctx context.Context) error
	Skip(ctx context.Context) error
	SelectPhase(ctx context.Context, p pomodoro.Phase) error
	FocusTask(ctx context.Context, id string) (*domain.Task, error)
	Status(ctx context.Context) (focus.Status, error)
	Describe(state pomodoro.State) focus.Status
}

// Store interface for task and list operations
type Store interface {
	ListTasks(opts taskstore.ListOptions) ([]*domain.Task, error)
	GetTask(id string) (*domain.Task, error)
	CreateTask(title, listID string) (*domain.Task, error)
	SetCompleted(id string, completed bool) error
	DeleteTask(id string) error
	ListLists() ([]*domain.List, error)
	CreateList(name, color string) (*domain.List, error)
}

// Server is the HTTP API server
type Server struct {
	timer    Timer
	store    Store
	addr     string
	mux      *http.ServeMux
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewServer creates a new API server
func NewServer(timer Timer, store Store, addr string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		timer:  timer,
		store:  store,
		addr:   addr,
		mux:    http.NewServeMux(),
		hub:    NewHub(),
		logger: logger,
		upgrader: websocket.Upgrader{
			// Browsers on other localhost ports need to connect
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/status", s.statusHandler())
	s.mux.HandleFunc("/api/timer/start", s.timerCommandHandler(s.timer.Start))
	s.mux.HandleFunc("/api/timer/pause", s.timerCommandHandler(s.timer.Pause))
	s.mux.HandleFunc("/api/timer/reset", s.timerCommandHandler(s.timer.Reset))
	s.mux.HandleFunc("/api/timer/skip", s.timerCommandHandler(s.timer.Skip))
	s.mux.HandleFunc("/api/timer/phase", s.selectPhaseHandler())
	s.mux.HandleFunc("/api/timer/task", s.focusTaskHandler())
	s.mux.HandleFunc("/api/tasks", s.tasksHandler())
	s.mux.HandleFunc("/api/tasks/", s.taskHandler())
	s.mux.HandleFunc("/api/lists", s.listsHandler())
	s.mux.HandleFunc("/api/events", s.sseHandler())
	s.mux.HandleFunc("/api/ws", s.wsHandler())
}

// Handler returns the HTTP handler serving the API
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Stream fans timer events out to SSE and WebSocket clients until ctx is
// cancelled.
func (s *Server) Stream(ctx context.Context, events <-chan pomodoro.Event) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				s.hub.Broadcast(ctx, s.timerEvent(ev))
			}
		}
	})
	return g.Wait()
}

// Run serves HTTP on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("web api listening", zap.String("addr", s.addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	writeJSONStatus(w, http.StatusOK, data)
}

func writeJSONStatus(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, taskstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, taskstore.ErrEmptyTitle),
		errors.Is(err, taskstore.ErrAmbiguous),
		errors.Is(err, pomodoro.ErrUnknownPhase):
		return http.StatusBadRequest
	case errors.Is(err, pomodoro.ErrStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
