package pipeline

import (
	"context"
	"fmt"
	"time"

	"credit-feature-pipeline/internal/logger"
	"credit-feature-pipeline/internal/model"
	"credit-feature-pipeline/pkg/utils"

	"github.com/rs/zerolog"
)

// RunStore tracks runs, their failures and their rows
type RunStore interface {
	RowStore
	CreateRun(run model.RunRecord) error
	UpdateRunStatus(runID, status string) error
	CompleteRun(runID, status string, result model.ExtractionResult) error
	SaveRunError(runID string, failure model.RecordFailure) error
	SaveRunLog(runID, stage, level, message string, details map[string]interface{}) error
}

// RunReport is what a caller gets back from a run
type RunReport struct {
	RunID    string                 `json:"run_id"`
	Result   model.ExtractionResult `json:"result"`
	Exports  []model.ExportResult   `json:"exports"`
	Duration time.Duration          `json:"duration"`
}

// Runner executes extraction runs: ingest, extract, export. Stages run one
// after another and records are flattened in input order.
type Runner struct {
	schema Schema
	store  RunStore
	logger zerolog.Logger
}

// NewRunner creates a runner. store may be nil, in which case runs are not tracked.
func NewRunner(schema Schema, store RunStore, logger zerolog.Logger) *Runner {
	return &Runner{schema: schema, store: store, logger: logger}
}

// Schema returns the schema the runner extracts with.
func (r *Runner) Schema() Schema {
	return r.schema
}

// Register records a pending run so it is visible before it starts.
func (r *Runner) Register(runID string, spec model.RunSpec) error {
	if r.store == nil {
		return nil
	}
	policy, err := model.ParseFailurePolicy(string(spec.FailurePolicy))
	if err != nil {
		return err
	}
	return r.store.CreateRun(model.RunRecord{
		ID:            runID,
		Source:        spec.Source.URL,
		FailurePolicy: policy,
		Status:        model.RunPending,
		Columns:       r.schema.Names(),
	})
}

// Run ingests the run's source and extracts it.
func (r *Runner) Run(ctx context.Context, runID string, spec model.RunSpec) (*RunReport, error) {
	ctx, cancel := context.WithTimeout(ctx, utils.ParseDuration(spec.Timeout))
	defer cancel()

	log := logger.WithFields(r.logger, map[string]interface{}{
		"run_id": runID,
		"source": spec.Source.URL,
	})
	ctx = logger.WithContext(ctx, log)

	r.status(runID, model.RunIngesting)
	start := time.Now()
	records, err := IngestSource(ctx, spec.Source)
	if err != nil {
		err = fmt.Errorf("ingestion failed: %w", err)
		r.fail(runID, err)
		return nil, err
	}
	log.Info().Int("records", len(records)).Msg("Ingestion completed")
	r.stageLog(runID, "ingestion", "info", "Ingestion stage completed", map[string]interface{}{
		"records":     len(records),
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return r.RunRecords(ctx, runID, records, spec)
}

// RunRecords extracts an already loaded batch and exports the result.
// A failed extraction is reported through the result, not as an error; err
// is only set when the run itself could not be carried out.
func (r *Runner) RunRecords(ctx context.Context, runID string, records []model.RawRecord, spec model.RunSpec) (report *RunReport, err error) {
	start := time.Now()
	defer func() {
		if err != nil {
			r.fail(runID, err)
		}
	}()

	policy, err := model.ParseFailurePolicy(string(spec.FailurePolicy))
	if err != nil {
		return nil, err
	}
	log := logger.WithFields(r.logger, map[string]interface{}{
		"run_id":         runID,
		"failure_policy": string(policy),
	})
	extractor, err := NewExtractor(r.schema, WithFailurePolicy(policy), WithLogger(log))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// --- EXTRACTION STAGE ---
	r.status(runID, model.RunExtracting)
	result := extractor.ExtractBatch(records)
	for _, failure := range result.Failures {
		r.saveError(runID, failure)
	}
	r.stageLog(runID, "extraction", levelFor(result), "Extraction stage completed", map[string]interface{}{
		"status":   result.Status,
		"records":  result.Records,
		"rows":     len(result.Rows),
		"failures": len(result.Failures),
	})

	report = &RunReport{RunID: runID, Result: result}

	// --- EXPORT STAGE ---
	if !result.Failed() {
		r.status(runID, model.RunExporting)
		em := &ExportManager{RunID: runID, ExportSpec: spec.Export, Store: r.store, Logger: log}
		report.Exports = em.Export(ctx, result)
		for _, exp := range report.Exports {
			if !exp.Success {
				r.stageLog(runID, "export", "error", "Export failed", map[string]interface{}{
					"type":  exp.Type,
					"path":  exp.Path,
					"error": exp.Error,
				})
			}
		}
	}

	final := model.RunCompleted
	if result.Failed() {
		final = model.RunFailed
	}
	if r.store != nil {
		if err := r.store.CompleteRun(runID, final, result); err != nil {
			log.Warn().Err(err).Msg("Failed to record run completion")
		}
	}

	report.Duration = time.Since(start)
	log.Info().
		Str("status", string(result.Status)).
		Int("records", result.Records).
		Int("rows", len(result.Rows)).
		Int("failures", len(result.Failures)).
		Dur("duration", report.Duration).
		Msg("Run finished")
	return report, nil
}

func levelFor(result model.ExtractionResult) string {
	switch result.Status {
	case model.ExtractionFailed:
		return "error"
	case model.ExtractionPartial:
		return "warning"
	default:
		return "info"
	}
}

// Tracking write failures are logged and otherwise ignored.

func (r *Runner) fail(runID string, err error) {
	r.logger.Error().Err(err).Str("run_id", runID).Msg("Run failed")
	r.status(runID, model.RunFailed)
	r.stageLog(runID, "pipeline", "error", "Run failed", map[string]interface{}{"error": err.Error()})
}

func (r *Runner) status(runID, status string) {
	if r.store == nil {
		return
	}
	if err := r.store.UpdateRunStatus(runID, status); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Str("status", status).Msg("Failed to update run status")
	}
}

func (r *Runner) stageLog(runID, stage, level, message string, details map[string]interface{}) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRunLog(runID, stage, level, message, details); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to save run log")
	}
}

func (r *Runner) saveError(runID string, failure model.RecordFailure) {
	if r.store == nil {
		return
	}
	if err := r.store.SaveRunError(runID, failure); err != nil {
		r.logger.Warn().Err(err).Str("run_id", runID).Msg("Failed to save run error")
	}
}
