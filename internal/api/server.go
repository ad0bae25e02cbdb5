package api

import (
	"codedoc/internal/app"
	"codedoc/internal/domain"
	"codedoc/internal/usecase"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	serviceName    = "codedoc"
	serviceVersion = "0.1.0"
	maxBodyBytes   = 1 << 20
)

type Server struct {
	router *chi.Mux
	app    *app.App
	enq    *usecase.Enqueuer
}

// NewServer serves the engine in a. With a non-nil enq the stream
// endpoints /enqueue and /tasks/{id} are mounted as well.
func NewServer(a *app.App, enq *usecase.Enqueuer) *Server {
	s := &Server{router: chi.NewRouter(), app: a, enq: enq}

	r := s.router
	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/status", s.handleStatus)
	r.Post("/ingest", s.handleIngest)
	r.Post("/query", s.handleQuery)
	r.Post("/generate", s.handleGenerate)
	r.Post("/pr", s.handlePR)
	r.Post("/voice", s.handleVoice)
	r.Post("/tasks", s.handleSubmit)
	if enq != nil {
		r.Post("/enqueue", s.handleEnqueue)
		r.Get("/tasks/{id}", s.handleLookup)
	}
	return s
}

// Handler is the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	return chainMiddleware(
		s.router,
		recoverHandler,
		realIPHandler,
		requestIDHandler,
		loggerHandler(func(w http.ResponseWriter, r *http.Request) bool { return r.URL.Path == "/" }),
		corsHandler,
	)
}

const shutdownTimeout = 30 * time.Second

// Run serves on port until SIGINT/SIGTERM.
func (s *Server) Run(port int) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to listen")
	}

	log.Info().Msgf("server serving on port %d", port)
	if err := s.Serve(ctx, ln); err != nil {
		log.Fatal().Err(err).Msg("Server stopped with error")
	}
	log.Info().Msg("Server stopped")
}

// Serve handles connections on ln until ctx is done, then drains in-flight
// requests for up to shutdownTimeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("Server is shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type errorBody struct {
	Error     string           `json:"error"`
	ErrorKind domain.ErrorKind `json:"error_kind,omitempty"`
	Task      *domain.Task     `json:"task,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error(), ErrorKind: domain.KindOf(err)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err))
		return false
	}
	return true
}

// submit runs a task to completion and writes it. Failures caused by the
// request itself are reported as 400.
func (s *Server) submit(w http.ResponseWriter, r *http.Request, id string, typ domain.TaskType, payload domain.Payload) {
	d := s.app.Dispatcher
	task := d.Submit(r.Context(), d.NewTask(id, typ, payload))
	if task.Status == domain.StatusCompleted {
		writeJSON(w, http.StatusOK, task)
		return
	}

	status := http.StatusInternalServerError
	switch task.ErrorKind {
	case domain.KindInvalidPayload, domain.KindUnknownTaskType:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorBody{Error: task.Error, ErrorKind: task.ErrorKind, Task: task})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"name":    serviceName,
		"version": serviceVersion,
		"status":  "running",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"providers": s.app.Registry.Names(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Metrics.Snapshot())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.Status())
}

type ingestReq struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestReq
	if !decode(w, r, &req) {
		return
	}
	payload := domain.Payload{"repo_url": req.RepoURL}
	if req.Branch != "" {
		payload["branch"] = req.Branch
	}
	s.submit(w, r, "", domain.TypeRepoIngest, payload)
}

type queryReq struct {
	Query  string `json:"query"`
	RepoID string `json:"repo_id"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryReq
	if !decode(w, r, &req) {
		return
	}
	payload := domain.Payload{"query": req.Query}
	if req.RepoID != "" {
		payload["repo_id"] = req.RepoID
	}
	s.submit(w, r, "", domain.TypeUserQuery, payload)
}

type generateReq struct {
	DocType string `json:"doc_type"`
	RepoID  string `json:"repo_id"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if !decode(w, r, &req) {
		return
	}
	payload := domain.Payload{}
	if req.DocType != "" {
		payload["doc_type"] = req.DocType
	}
	if req.RepoID != "" {
		payload["repo_id"] = req.RepoID
	}
	s.submit(w, r, "", domain.TypeGenerateDocs, payload)
}

type prReq struct {
	PRNumber    int    `json:"pr_number"`
	RepoURL     string `json:"repo_url"`
	AutoComment *bool  `json:"auto_comment"`
}

func (s *Server) handlePR(w http.ResponseWriter, r *http.Request) {
	var req prReq
	if !decode(w, r, &req) {
		return
	}
	payload := domain.Payload{"pr_number": req.PRNumber, "repo_url": req.RepoURL}
	if req.AutoComment != nil {
		payload["auto_comment"] = *req.AutoComment
	}
	s.submit(w, r, "", domain.TypePRWebhook, payload)
}

type voiceReq struct {
	AudioPath string `json:"audio_path"`
	RepoID    string `json:"repo_id"`
}

func (s *Server) handleVoice(w http.ResponseWriter, r *http.Request) {
	var req voiceReq
	if !decode(w, r, &req) {
		return
	}
	payload := domain.Payload{"audio_path": req.AudioPath}
	if req.RepoID != "" {
		payload["repo_id"] = req.RepoID
	}
	s.submit(w, r, "", domain.TypeVoiceCommand, payload)
}

type taskReq struct {
	ID      string          `json:"id"`
	Type    domain.TaskType `json:"type"`
	Payload domain.Payload  `json:"payload"`
}

func (req taskReq) validate() error {
	if !req.Type.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownTaskType, req.Type)
	}
	return nil
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req taskReq
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.submit(w, r, req.ID, req.Type, req.Payload)
}

func (s *Server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req taskReq
	if !decode(w, r, &req) {
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id, err := s.enq.Now(r.Context(), domain.Task{ID: req.ID, Type: req.Type, Payload: req.Payload})
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Msg("enqueue failed")
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"id": id})
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	task, err := s.enq.Lookup(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if task == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "task not found"})
		return
	}
	writeJSON(w, http.StatusOK, task)
}
