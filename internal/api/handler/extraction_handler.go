package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"credit-feature-pipeline/internal/model"
	"credit-feature-pipeline/internal/pipeline"
	"credit-feature-pipeline/internal/store"
	"credit-feature-pipeline/pkg/utils"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const extractionsPrefix = "/api/v1/extractions/"

// Options tune request handling
type Options struct {
	MaxBodyBytes  int64
	FailurePolicy model.FailurePolicy // used when a request does not choose one
	Timeout       string              // timeout of asynchronous runs
	// SourceDir holds the local files a request may name as its source.
	// When empty only http(s) sources are accepted.
	SourceDir string
	// BaseContext is the parent context of background runs.
	BaseContext context.Context
}

// Handler serves the extraction API
type Handler struct {
	store   *store.Store
	runner  *pipeline.Runner
	outputs *utils.OutputManager
	logger  zerolog.Logger
	opts    Options
	running sync.WaitGroup
}

// New creates the API handler
func New(st *store.Store, runner *pipeline.Runner, outputs *utils.OutputManager, logger zerolog.Logger, opts Options) *Handler {
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = model.FailurePolicyAbortBatch
	}
	if opts.BaseContext == nil {
		opts.BaseContext = context.Background()
	}
	return &Handler{store: st, runner: runner, outputs: outputs, logger: logger, opts: opts}
}

// Wait blocks until every background run has returned
func (h *Handler) Wait() {
	h.running.Wait()
}

// ExtractionRequest is the body of POST /extractions. Exactly one of Records
// and Source must be set.
type ExtractionRequest struct {
	Records       *[]model.RawRecord `json:"records,omitempty"`
	Source        *model.Source      `json:"source,omitempty"`
	FailurePolicy string             `json:"failurePolicy,omitempty"`
	ExportJSON    bool               `json:"exportJson,omitempty"`
}

// ExtractionResponse summarises a run
type ExtractionResponse struct {
	RunID       string                `json:"run_id"`
	Status      string                `json:"status"`
	Records     int                   `json:"records"`
	Rows        int                   `json:"rows"`
	Failures    []model.RecordFailure `json:"failures,omitempty"`
	Exports     []model.ExportResult  `json:"exports,omitempty"`
	DownloadURL string                `json:"download_url,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
}

// CreateExtraction flattens a batch of bureau records
// @Summary Create an extraction run
// @Description Flatten inline records synchronously, or load a source (http(s) URL or a file under the source directory) in the background
// @Tags extractions
// @Accept json
// @Produce json
// @Param extraction body ExtractionRequest true "Records or source"
// @Success 200 {object} ExtractionResponse "Extraction finished"
// @Success 202 {object} ExtractionResponse "Extraction accepted"
// @Failure 400 {object} map[string]interface{} "Invalid request payload"
// @Failure 422 {object} ExtractionResponse "Extraction failed, no rows produced"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /extractions [post]
func (h *Handler) CreateExtraction(w http.ResponseWriter, r *http.Request) {
	if h.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)
	}

	var req ExtractionRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, "Invalid JSON payload", http.StatusBadRequest)
		return
	}

	// 1. Validate payload
	if (req.Records == nil) == (req.Source == nil) {
		http.Error(w, "Exactly one of records or source is required", http.StatusBadRequest)
		return
	}
	policy := h.opts.FailurePolicy
	if req.FailurePolicy != "" {
		p, err := model.ParseFailurePolicy(req.FailurePolicy)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		policy = p
	}
	var source model.Source
	if req.Source != nil {
		src, err := h.resolveSource(*req.Source)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		source = src
	}

	// 2. Generate run ID and export targets
	runID := uuid.New().String()
	csvPath, err := h.outputs.GetOutputFilePath(runID, pipeline.DefaultCSVFile)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to prepare output directory")
		http.Error(w, "Failed to prepare output directory", http.StatusInternalServerError)
		return
	}
	spec := model.RunSpec{
		Source:        model.Source{Type: "inline", URL: "inline"},
		FailurePolicy: policy,
		Export:        &model.Export{File: csvPath, DB: true},
		Timeout:       h.opts.Timeout,
	}
	if req.Source != nil {
		spec.Source = source
	}
	if req.ExportJSON {
		// same run directory as the CSV, created above
		spec.Export.JSON, _ = h.outputs.GetOutputFilePath(runID, pipeline.DefaultJSONFile)
	}

	// 3. Save run
	if err := h.runner.Register(runID, spec); err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to save run")
		http.Error(w, "Failed to save run", http.StatusInternalServerError)
		return
	}

	// 4. Source runs are started asynchronously
	if req.Source != nil {
		h.running.Add(1)
		go func() {
			defer h.running.Done()
			if _, err := h.runner.Run(h.opts.BaseContext, runID, spec); err != nil {
				h.logger.Error().Err(err).Str("run_id", runID).Msg("Background extraction failed")
			}
		}()

		writeJSON(w, http.StatusAccepted, ExtractionResponse{
			RunID:     runID,
			Status:    model.RunPending,
			CreatedAt: time.Now().UTC(),
		})
		return
	}

	report, err := h.runner.RunRecords(r.Context(), runID, *req.Records, spec)
	if err != nil {
		http.Error(w, "Extraction could not be run", http.StatusInternalServerError)
		return
	}

	resp := ExtractionResponse{
		RunID:     runID,
		Status:    string(report.Result.Status),
		Records:   report.Result.Records,
		Rows:      len(report.Result.Rows),
		Failures:  report.Result.Failures,
		Exports:   report.Exports,
		CreatedAt: time.Now().UTC(),
	}
	status := http.StatusOK
	if report.Result.Failed() {
		status = http.StatusUnprocessableEntity
	} else {
		resp.DownloadURL = h.outputs.GetDownloadURL(runID)
	}
	writeJSON(w, status, resp)
}

// ListExtractions retrieves all runs
// @Summary List extraction runs
// @Description Get all extraction runs, newest first
// @Tags extractions
// @Produce json
// @Success 200 {array} model.RunRecord "List of runs"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /extractions [get]
func (h *Handler) ListExtractions(w http.ResponseWriter, r *http.Request) {
	runs, err := h.store.ListRuns()
	if err != nil {
		http.Error(w, "Failed to fetch runs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetExtraction retrieves one run
// @Summary Get extraction run
// @Description Retrieve status and counts of an extraction run
// @Tags extractions
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} model.RunRecord "Run details"
// @Failure 400 {object} map[string]interface{} "Invalid run ID"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /extractions/{id} [get]
func (h *Handler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}
	run, ok := h.lookupRun(w, runID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// GetExtractionRows retrieves the feature rows of a run
// @Summary Get feature rows
// @Description Retrieve stored feature rows in input order, keys in schema order
// @Tags extractions
// @Produce json
// @Param id path string true "Run ID"
// @Param limit query int false "Maximum number of rows" default(100)
// @Success 200 {object} map[string]interface{} "Feature rows"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /extractions/{id}/rows [get]
func (h *Handler) GetExtractionRows(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/rows")
	if !ok {
		return
	}
	if _, ok := h.lookupRun(w, runID); !ok {
		return
	}

	limit := queryLimit(r, 100)
	rows, err := h.store.GetFeatureRows(runID, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to read feature rows")
		http.Error(w, "Failed to retrieve rows", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"rows":   rows,
		"count":  len(rows),
		"limit":  limit,
	})
}

// GetExtractionErrors retrieves the record failures of a run
// @Summary Get extraction errors
// @Description Retrieve records that could not be flattened
// @Tags extractions
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run errors"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /extractions/{id}/errors [get]
func (h *Handler) GetExtractionErrors(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/errors")
	if !ok {
		return
	}
	if _, ok := h.lookupRun(w, runID); !ok {
		return
	}

	failures, err := h.store.GetRunErrors(runID)
	if err != nil {
		http.Error(w, "Failed to retrieve errors", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"errors": failures,
		"count":  len(failures),
	})
}

// GetExtractionLogs retrieves the stage logs of a run
// @Summary Get run logs
// @Description Retrieve stage logs of an extraction run
// @Tags extractions
// @Produce json
// @Param id path string true "Run ID"
// @Param limit query int false "Maximum number of log lines" default(100)
// @Success 200 {object} map[string]interface{} "Run logs"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 500 {object} map[string]interface{} "Internal server error"
// @Router /extractions/{id}/logs [get]
func (h *Handler) GetExtractionLogs(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/logs")
	if !ok {
		return
	}
	if _, ok := h.lookupRun(w, runID); !ok {
		return
	}

	limit := queryLimit(r, 100)
	logs, err := h.store.GetRunLogs(runID, limit)
	if err != nil {
		http.Error(w, "Failed to retrieve logs", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"run_id": runID,
		"logs":   logs,
		"count":  len(logs),
	})
}

// GetExtractionDownload streams the feature table of a run as CSV
// @Summary Download feature table
// @Description Download the feature table of a run as CSV, header in schema order
// @Tags extractions
// @Produce text/csv
// @Param id path string true "Run ID"
// @Success 200 {string} string "CSV table"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Failure 409 {object} map[string]interface{} "Run produced no table"
// @Router /extractions/{id}/download [get]
func (h *Handler) GetExtractionDownload(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "/download")
	if !ok {
		return
	}
	run, ok := h.lookupRun(w, runID)
	if !ok {
		return
	}
	if run.Status != model.RunCompleted {
		http.Error(w, fmt.Sprintf("Run is %s, no feature table available", run.Status), http.StatusConflict)
		return
	}

	rows, err := h.store.GetFeatureRows(runID, 0)
	if err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to read feature rows")
		http.Error(w, "Failed to retrieve rows", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", runID+"_"+pipeline.DefaultCSVFile))
	if err := pipeline.WriteFeatureTable(w, run.Columns, rows); err != nil {
		h.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to stream feature table")
	}
}

// DeleteExtraction removes a run, its rows and its export files
// @Summary Delete extraction run
// @Tags extractions
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} map[string]interface{} "Run deleted"
// @Failure 404 {object} map[string]interface{} "Run not found"
// @Router /extractions/{id} [delete]
func (h *Handler) DeleteExtraction(w http.ResponseWriter, r *http.Request) {
	runID, ok := runIDFromPath(w, r, "")
	if !ok {
		return
	}
	if err := h.store.DeleteRun(runID); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Failed to delete run", http.StatusInternalServerError)
		return
	}
	if err := h.outputs.RemoveRunOutputDir(runID); err != nil {
		h.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to delete run output directory")
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Run deleted",
		"run_id":  runID,
	})
}

// GetSchema describes the output columns
// @Summary Get feature schema
// @Description Ordered output columns and how each one is derived
// @Tags schema
// @Produce json
// @Success 200 {object} map[string]interface{} "Feature schema"
// @Router /schema [get]
func (h *Handler) GetSchema(w http.ResponseWriter, r *http.Request) {
	schema := h.runner.Schema()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"columns": schema.Names(),
		"fields":  schema.Fields(),
		"count":   schema.Len(),
	})
}

func (h *Handler) lookupRun(w http.ResponseWriter, runID string) (model.RunRecord, bool) {
	run, err := h.store.GetRun(runID)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			http.Error(w, "Run not found", http.StatusNotFound)
		} else {
			http.Error(w, "Failed to retrieve run", http.StatusInternalServerError)
		}
		return model.RunRecord{}, false
	}
	return run, true
}

// runIDFromPath extracts the run ID between the extractions prefix and suffix
func runIDFromPath(w http.ResponseWriter, r *http.Request, suffix string) (string, bool) {
	path := r.URL.Path
	if !strings.HasPrefix(path, extractionsPrefix) || !strings.HasSuffix(path, suffix) {
		http.Error(w, "Invalid path", http.StatusBadRequest)
		return "", false
	}

	runID := path[len(extractionsPrefix) : len(path)-len(suffix)]
	if runID == "" {
		http.Error(w, "Run ID is required", http.StatusBadRequest)
		return "", false
	}
	if strings.Contains(runID, "/") {
		http.Error(w, "Not Found", http.StatusNotFound)
		return "", false
	}
	return runID, true
}

func queryLimit(r *http.Request, def int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// resolveSource accepts http(s) sources and local files under SourceDir.
// Relative file paths are taken relative to SourceDir.
func (h *Handler) resolveSource(src model.Source) (model.Source, error) {
	switch pipeline.SourceType(src) {
	case "url":
		if !strings.HasPrefix(src.URL, "http://") && !strings.HasPrefix(src.URL, "https://") {
			return src, fmt.Errorf("source url must be http or https: %q", src.URL)
		}
		return src, nil
	case "file":
		if h.opts.SourceDir == "" {
			return src, errors.New("file sources are not enabled")
		}
		if src.URL == "" {
			return src, errors.New("source url is required")
		}
		root, err := filepath.Abs(h.opts.SourceDir)
		if err != nil {
			return src, fmt.Errorf("invalid source directory: %w", err)
		}
		path := src.URL
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		path = filepath.Clean(path)
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return src, fmt.Errorf("source %q is outside the source directory", src.URL)
		}
		return model.Source{Type: "file", URL: path}, nil
	default:
		return src, fmt.Errorf("unknown source type: %s", src.Type)
	}
}
