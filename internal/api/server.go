package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"mediabutler/internal/batch"
	"mediabutler/internal/files"
	"mediabutler/internal/logging"
	"mediabutler/internal/organizer"
	"mediabutler/internal/queue"
	"mediabutler/internal/recovery"
	"mediabutler/internal/store"
)

// Server exposes the pipeline over HTTP. Endpoints that hand work to the
// queue answer 503 while the worker pool is not running.
type Server struct {
	bind      string
	files     *files.Service
	organizer *organizer.Organizer
	batches   *batch.Orchestrator
	queue     *queue.Queue
	pool      *queue.Pool
	logger    *slog.Logger

	listener net.Listener
	server   *http.Server
}

// NewServer wires the HTTP adapter. batches may be nil to disable the
// batch endpoints.
func NewServer(
	bind string,
	fileService *files.Service,
	fileOrganizer *organizer.Organizer,
	batches *batch.Orchestrator,
	jobQueue *queue.Queue,
	pool *queue.Pool,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		bind:      bind,
		files:     fileService,
		organizer: fileOrganizer,
		batches:   batches,
		queue:     jobQueue,
		pool:      pool,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler builds the route table. Exposed so tests can drive the mux
// without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/files", s.handleListFiles)
	mux.HandleFunc("POST /api/files", s.handleRegister)
	mux.HandleFunc("GET /api/files/search", s.handleSearch)
	mux.HandleFunc("GET /api/files/{hash}", s.handleGetFile)
	mux.HandleFunc("DELETE /api/files/{hash}", s.handleDeleteFile)
	mux.HandleFunc("POST /api/files/{hash}/confirm", s.handleConfirm)
	mux.HandleFunc("POST /api/files/{hash}/ignore", s.handleIgnore)
	mux.HandleFunc("POST /api/files/{hash}/reset", s.handleReset)
	mux.HandleFunc("GET /api/files/{hash}/preview", s.handlePreview)
	mux.HandleFunc("POST /api/files/{hash}/organize", s.handleOrganize)
	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/batches", s.handleBatchSubmit)
	mux.HandleFunc("GET /api/batches", s.handleBatchList)
	mux.HandleFunc("POST /api/batches/validate", s.handleBatchValidate)
	mux.HandleFunc("GET /api/batches/{id}", s.handleBatchStatus)
	mux.HandleFunc("POST /api/batches/{id}/cancel", s.handleBatchCancel)
	return mux
}

// Start binds the listener and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	s.logger.Info("api server listening", slog.String("address", listener.Addr().String()))
	return nil
}

// Stop shuts the server down, allowing in-flight requests to finish.
func (s *Server) Stop() {
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr reports the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeError maps a failure to its HTTP status and the error envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	kind := recovery.KindOf(err)
	body := ErrorBody{Kind: string(kind), Message: err.Error()}

	status := http.StatusInternalServerError
	switch kind {
	case recovery.KindValidation:
		status = http.StatusBadRequest
	case recovery.KindNotFound:
		status = http.StatusNotFound
	case recovery.KindIllegalTransition, recovery.KindConflict:
		status = http.StatusConflict
	case recovery.KindPermission:
		status = http.StatusForbidden
	case recovery.KindPath:
		status = http.StatusUnprocessableEntity
	case recovery.KindSpace:
		status = http.StatusInsufficientStorage
	case recovery.KindUnavailable, recovery.KindTransient, recovery.KindClassifierTimeout:
		status = http.StatusServiceUnavailable
	}

	cls := recovery.NewClassifier(nil, 0).Classify(recovery.ErrorContext{Err: err})
	body.ResolutionSteps = cls.ResolutionSteps

	s.writeJSON(w, status, ErrorResponse{Error: body})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, message string) {
	s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{
		Kind:    string(recovery.KindValidation),
		Message: message,
	}})
}

// requirePool guards queue-backed endpoints.
func (s *Server) requirePool(w http.ResponseWriter) bool {
	if s.pool == nil || !s.pool.Running() {
		s.writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: ErrorBody{
			Kind:    string(recovery.KindUnavailable),
			Message: "worker pool is not running",
			ResolutionSteps: []string{
				"Start the daemon before submitting work",
			},
		}})
		return false
	}
	return true
}

// decodeBody parses a JSON body; a missing body leaves into untouched.
func decodeBody(r *http.Request, into any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(into)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func logsToViews(logs []*store.ProcessingLog) []LogView {
	out := make([]LogView, 0, len(logs))
	for _, entry := range logs {
		out = append(out, LogView{
			ID:        entry.ID,
			Level:     string(entry.Level),
			Category:  entry.Category,
			Message:   entry.Message,
			Details:   entry.DetailsJSON,
			CreatedAt: entry.CreatedAt,
		})
	}
	return out
}
