package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"papereval/internal/config"
	"papereval/internal/evaluation"
	"papereval/internal/models"
	"papereval/internal/providers"
	"papereval/internal/storage"
	"papereval/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

// EvaluationStore persists evaluation records.
type EvaluationStore interface {
	Create(ctx context.Context, e models.Evaluation) error
	UpdateStatus(ctx context.Context, evaluationID, status, paperID, failReason string) error
	Get(ctx context.Context, evaluationID string) (models.Evaluation, error)
	List(ctx context.Context, limit int) ([]models.Evaluation, error)
}

// Engine starts evaluation workflows and reads their live status.
type Engine interface {
	Start(ctx context.Context, workflowID string, in workflows.EvaluationInput) (runID string, err error)
	Status(ctx context.Context, workflowID string) (workflows.EvaluationStatus, error)
}

type Server struct {
	cfg    config.Config
	log    *slog.Logger
	evals  EvaluationStore
	engine Engine
}

func NewServer(cfg config.Config, evals EvaluationStore, engine Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, log: logger, evals: evals, engine: engine}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/evaluations", s.handleEvaluations)
	mux.HandleFunc("/evaluations/", s.handleEvaluationScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func workflowID(evaluationID string) string {
	return "evaluation-" + evaluationID
}

func (s *Server) handleEvaluations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		evals, err := s.evals.List(r.Context(), limit)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"evaluations": evals})
	case http.MethodPost:
		s.handleCreate(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL          string `json:"url"`
		Evaluation   string `json:"evaluation"`
		ChunkSize    int    `json:"chunk_size,omitempty"`
		ChunkOverlap int    `json:"chunk_overlap,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("url is required"))
		return
	}
	kind, err := evaluation.ParseKind(req.Evaluation)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	id := uuid.NewString()
	wfID := workflowID(id)
	rec := models.Evaluation{EvaluationID: id, PaperURL: req.URL, Kind: string(kind), Status: models.StatusQueued, WorkflowID: wfID}
	if err := s.evals.Create(r.Context(), rec); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	runID, err := s.engine.Start(r.Context(), wfID, workflows.EvaluationInput{
		EvaluationID:    id,
		PaperURL:        req.URL,
		Kind:            string(kind),
		ChunkSize:       req.ChunkSize,
		ChunkOverlap:    req.ChunkOverlap,
		EmbedProviders:  len(providers.ParseProviderList(s.cfg.EmbedProviders)),
		CooldownSeconds: s.cfg.ProviderCooldownSecs,
	})
	if err != nil {
		s.log.Error("start evaluation workflow", "evaluation_id", id, "error", err)
		_ = s.evals.UpdateStatus(r.Context(), id, models.StatusFailed, "", "workflow start failed")
		writeErr(w, http.StatusBadGateway, err)
		return
	}
	s.log.Info("evaluation started", "evaluation_id", id, "workflow_id", wfID, "evaluation", kind)
	writeJSON(w, http.StatusAccepted, map[string]any{"evaluation_id": id, "workflow_id": wfID, "run_id": runID})
}

func (s *Server) handleEvaluationScoped(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/evaluations/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" || len(parts) > 2 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if _, err := uuid.Parse(parts[0]); err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	rec, err := s.evals.Get(r.Context(), parts[0])
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, rec)
		return
	}
	switch parts[1] {
	case "status":
		st, err := s.engine.Status(r.Context(), rec.WorkflowID)
		if err != nil {
			writeErr(w, http.StatusNotFound, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	case "report":
		if rec.ReportPath == "" {
			writeJSON(w, http.StatusOK, map[string]any{"status": rec.Status, "report_markdown": ""})
			return
		}
		b, err := os.ReadFile(rec.ReportPath)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": rec.Status, "report_markdown": string(b), "path": rec.ReportPath})
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

// TemporalEngine runs evaluations on a Temporal task queue.
type TemporalEngine struct {
	Client    tclient.Client
	TaskQueue string
}

func (t TemporalEngine) Start(ctx context.Context, workflowID string, in workflows.EvaluationInput) (string, error) {
	we, err := t.Client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                    workflowID,
		TaskQueue:             t.TaskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
	}, workflows.PaperEvaluationWorkflow, in)
	if err != nil {
		return "", err
	}
	return we.GetRunID(), nil
}

func (t TemporalEngine) Status(ctx context.Context, workflowID string) (workflows.EvaluationStatus, error) {
	var st workflows.EvaluationStatus
	resp, err := t.Client.QueryWorkflow(ctx, workflowID, "", workflows.QueryGetEvaluationStatus)
	if err != nil {
		return st, err
	}
	if err := resp.Get(&st); err != nil {
		return st, err
	}
	return st, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "PE-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusBadGateway:
		return apiError{Code: "PE-API-5020", Message: "Workflow engine unavailable. Retry shortly."}
	case status >= 500:
		switch {
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"):
			return apiError{Code: "PE-DB-5001", Message: "Database schema is not initialized. Start the worker once and retry."}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{Code: "PE-DB-5002", Message: "Database connection is unavailable. Check local services and retry."}
		default:
			return apiError{Code: "PE-API-5000", Message: "Internal server error. Please retry or check service logs."}
		}
	case status == http.StatusBadRequest:
		code = "PE-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "PE-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "PE-API-4005"
		msg = "This endpoint does not support the requested method."
	}

	// 4xx responses only echo validation context that is safe to show.
	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "url is required"):
			msg = "A paper url is required."
		case strings.Contains(raw, "unknown evaluation"):
			msg = "Unknown evaluation type. Use methodology, robustness, significance or comprehensive."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		}
	}
	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
