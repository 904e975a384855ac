// Package httpapi exposes the form-filling workflow over HTTP. Uploading a
// resume and an application form starts a run; the reviewer then iterates on
// the draft through the respond endpoint until the run completes.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/janngomaa/ai-job-application/pkg/flow"
)

const maxUploadBytes = 32 << 20

// Server handles the HTTP surface of the application. Run handles live here:
// they are in-process objects, so feedback for a run must reach the same
// server that started it.
type Server struct {
	eng      flow.Engine
	workflow string
	dataDir  string
	logger   *slog.Logger

	mu      sync.Mutex
	handles map[string]flow.Handle
	files   map[string][]string
}

// New creates a Server that starts runs of the named workflow and stores
// uploads under dataDir. A nil logger defaults to slog.Default().
func New(eng flow.Engine, workflow, dataDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		eng:      eng,
		workflow: workflow,
		dataDir:  dataDir,
		logger:   logger,
		handles:  make(map[string]flow.Handle),
		files:    make(map[string][]string),
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("POST /workflow/{id}/respond", s.handleRespond)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	return mux
}

// Close removes the uploaded files of every tracked run.
func (s *Server) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, paths := range s.files {
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.logger.Error("cleanup failed", "run_id", id, "path", p, "error", err)
			}
		}
	}
	s.files = make(map[string][]string)
}

// handleUpload: POST /upload
//
// Multipart body with two file parts, "resume" and "application_form".
// Starts a run and blocks until the first draft is ready for review.
//
// Response:
//
//	200
//	{
//	  "message": "Please provide your feedback",
//	  "workflow_id": "<run id>",
//	  "filled_form": "...",
//	  "feedback_prompt": "How does this look? ..."
//	}
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart body", http.StatusBadRequest)
		return
	}

	resumePath, err := s.saveUpload(r, "resume")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	formPath, err := s.saveUpload(r, "application_form")
	if err != nil {
		removeFiles(resumePath)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h, err := s.eng.Start(r.Context(), s.workflow, map[string]any{
		"resume_file":      resumePath,
		"application_form": formPath,
	})
	if err != nil {
		removeFiles(resumePath, formPath)
		s.logger.Error("start run failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.track(h, resumePath, formPath)
	s.logger.Info("run started", "run_id", h.RunID())

	ev, ok := nextMilestone(h)
	if !ok || ev.Kind() != flow.KindInputRequired {
		s.finishRun(w, r, h)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Please provide your feedback",
		"workflow_id":     h.RunID(),
		"filled_form":     ev.String(flow.FieldResult),
		"feedback_prompt": ev.String(flow.FieldPrefix),
	})
}

// handleRespond: POST /workflow/{id}/respond
//
// Body JSON:
//
//	{ "feedback": "..." }
//
// Injects the feedback into the suspended run and blocks until it either
// suspends again with a revised draft or completes.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	h, ok := s.handles[id]
	s.mu.Unlock()
	if !ok {
		http.Error(w, "workflow not found", http.StatusNotFound)
		return
	}

	var in struct {
		Feedback string `json:"feedback"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if in.Feedback == "" {
		http.Error(w, "feedback is required", http.StatusBadRequest)
		return
	}

	if err := h.Respond(in.Feedback); err != nil {
		if flow.IsInjectionError(err) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		s.logger.Error("respond failed", "run_id", id, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("feedback injected", "run_id", id)

	ev, ok := nextMilestone(h)
	if !ok || ev.Kind() != flow.KindInputRequired {
		s.finishRun(w, r, h)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message":         "Please provide your feedback",
		"workflow_id":     h.RunID(),
		"filled_form":     ev.String(flow.FieldResult),
		"feedback_prompt": ev.String(flow.FieldPrefix),
	})
}

// handleListRuns: GET /runs
//
// Optional query params: ?workflow=<name>&status=<status>
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.eng.ListRuns(r.Context(), flow.RunListOptions{
		WorkflowName: r.URL.Query().Get("workflow"),
		Status:       flow.Status(r.URL.Query().Get("status")),
	})
	if err != nil {
		s.logger.Error("list runs failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	out := make([]runView, 0, len(runs))
	for _, run := range runs {
		out = append(out, newRunView(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGetRun: GET /runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.eng.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, flow.ErrRunNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		s.logger.Error("get run failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, newRunView(run))
}

type runView struct {
	RunID        string      `json:"run_id"`
	WorkflowName string      `json:"workflow_name"`
	Status       flow.Status `json:"status"`
	StartedAt    time.Time   `json:"started_at"`
	Result       any         `json:"result,omitempty"`
	Error        string      `json:"error,omitempty"`
}

func newRunView(run *flow.Run) runView {
	v := runView{
		RunID:        run.ID,
		WorkflowName: run.WorkflowName,
		Status:       run.Status,
		StartedAt:    run.StartedAt,
		Result:       run.Result,
	}
	if run.Err != nil {
		v.Error = run.Err.Error()
	}
	return v
}

// nextMilestone drains the run's event stream until it suspends or stops.
// ok=false means the stream closed without either, which happens when a run
// fails or when the stop event could not be delivered before close.
func nextMilestone(h flow.Handle) (flow.Event, bool) {
	for ev := range h.Events() {
		switch ev.Kind() {
		case flow.KindInputRequired, flow.KindStop:
			return ev, true
		}
	}
	return flow.Event{}, false
}

// finishRun reports a run's terminal outcome and releases its handle and
// uploaded files.
func (s *Server) finishRun(w http.ResponseWriter, r *http.Request, h flow.Handle) {
	result, err := h.Result(r.Context())
	s.untrack(h.RunID())
	if err != nil {
		s.logger.Error("run failed", "run_id", h.RunID(), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":     "Workflow completed",
		"workflow_id": h.RunID(),
		"result":      result,
	})
}

// saveUpload stores one multipart file part under dataDir with a timestamped
// name, following the upload layout of the original frontend contract.
func (s *Server) saveUpload(r *http.Request, part string) (string, error) {
	file, header, err := r.FormFile(part)
	if err != nil {
		return "", fmt.Errorf("missing file part %q", part)
	}
	defer file.Close()
	return writeUpload(s.dataDir, part, header, file)
}

func writeUpload(dir, part string, header *multipart.FileHeader, src io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	// The timestamp keeps names browsable; the uuid keeps concurrent uploads
	// from colliding within the same second.
	name := fmt.Sprintf("%s_%s_%s%s", part, time.Now().Format("20060102_150405"), uuid.NewString()[:8], filepath.Ext(header.Filename))
	path := filepath.Join(dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", part, err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("save %s: %w", part, err)
	}
	return path, nil
}

func (s *Server) track(h flow.Handle, paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handles[h.RunID()] = h
	s.files[h.RunID()] = paths
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	paths := s.files[id]
	delete(s.handles, id)
	delete(s.files, id)
	s.mu.Unlock()
	removeFiles(paths...)
}

func removeFiles(paths ...string) {
	for _, p := range paths {
		_ = os.Remove(p)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
