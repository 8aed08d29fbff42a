// Package httpapi exposes the research runner over HTTP.
//
// Routes:
//
//	POST   /v1/sessions/{sessionID}/messages             run the next turn of a session
//	GET    /v1/sessions/{sessionID}/messages             session transcript
//	DELETE /v1/sessions/{sessionID}                      drop a session
//	GET    /v1/sessions/{sessionID}/reports/{runID}      final report as markdown
//	DELETE /v1/runs/{runID}                              cancel an active run
//	GET    /healthz
//	GET    /metrics                                      when a metrics handler is set
//
// A POST with "Accept: text/event-stream" streams the run events as
// server-sent events; otherwise the handler waits and returns the outcome.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hupe1980/researchmesh/artifact"
	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/logging"
	"github.com/hupe1980/researchmesh/runner"
	"github.com/hupe1980/researchmesh/session"
)

// Options configures the handler.
type Options struct {
	SessionStore  core.SessionStore
	ArtifactStore core.ArtifactStore
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  logging.Logger
}

// MessageRequest is the body of POST /v1/sessions/{sessionID}/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// RunResponse is the synchronous outcome of a run.
type RunResponse struct {
	RunID              string `json:"run_id"`
	SessionID          string `json:"session_id"`
	NeedsClarification bool   `json:"needs_clarification"`
	Question           string `json:"question,omitempty"`
	ResearchBrief      string `json:"research_brief,omitempty"`
	FinalReport        string `json:"final_report,omitempty"`
	Artifact           string `json:"artifact,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server serves the HTTP API.
type Server struct {
	runner core.Runner
	opts   Options
}

// NewHandler creates the HTTP handler. Stores default to in-memory ones and
// should be the same instances the runner uses.
func NewHandler(r core.Runner, optFns ...func(o *Options)) http.Handler {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.SessionStore == nil {
		opts.SessionStore = session.NewInMemoryStore()
	}

	if opts.ArtifactStore == nil {
		opts.ArtifactStore = artifact.NewInMemoryStore()
	}

	opts.Logger = logging.OrNoOp(opts.Logger)

	s := &Server{runner: r, opts: opts}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics)
	}

	router.Route("/v1", func(r chi.Router) {
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Post("/messages", s.postMessage)
			r.Get("/messages", s.getMessages)
			r.Delete("/", s.deleteSession)
			r.Get("/reports/{runID}", s.getReport)
		})
		r.Delete("/runs/{runID}", s.cancelRun)
	})

	return router
}

func (s *Server) postMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if strings.TrimSpace(body.Message) == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	runID, events, errs, err := s.runner.Run(r.Context(), sessionID, body.Message)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, runner.ErrTooManyRuns) {
			status = http.StatusTooManyRequests
		}

		writeError(w, status, err)

		return
	}

	s.opts.Logger.Info("httpapi.run.started", "run_id", runID, "session_id", sessionID)

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		s.stream(w, events, errs)
		return
	}

	resp := RunResponse{RunID: runID, SessionID: sessionID}

	for ev := range events {
		if ev.IsTerminal() {
			resp.NeedsClarification, _ = ev.Data["needs_clarification"].(bool)
			resp.Question, _ = ev.Data["question"].(string)
			resp.ResearchBrief, _ = ev.Data["research_brief"].(string)
			resp.FinalReport, _ = ev.Data["final_report"].(string)
			resp.Artifact, _ = ev.Data["artifact"].(string)
		}
	}

	if err := <-errs; err != nil {
		s.opts.Logger.Error("httpapi.run.failed", "run_id", runID, "error", err.Error())
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) stream(w http.ResponseWriter, events <-chan core.Event, errs <-chan error) {
	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	send := func(name string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			s.opts.Logger.Warn("httpapi.stream.encode_failed", "error", err.Error())
			return
		}

		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data)

		if flusher != nil {
			flusher.Flush()
		}
	}

	for ev := range events {
		send(string(ev.Type), ev)
	}

	if err := <-errs; err != nil {
		send("error", errorResponse{Error: err.Error()})
	}
}

func (s *Server) getMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.opts.SessionStore.Load(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if msgs == nil {
		msgs = []core.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	err := s.opts.SessionStore.Delete(r.Context(), chi.URLParam(r, "sessionID"))

	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	data, err := s.opts.ArtifactStore.Get(r.Context(), chi.URLParam(r, "sessionID"), runner.ReportName(chi.URLParam(r, "runID")))

	switch {
	case errors.Is(err, artifact.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write(data)
	}
}

func (s *Server) cancelRun(w http.ResponseWriter, r *http.Request) {
	err := s.runner.Cancel(chi.URLParam(r, "runID"))

	switch {
	case errors.Is(err, runner.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
