package pipeline

import (
	"errors"
	"fmt"

	"credit-feature-pipeline/internal/model"

	"github.com/rs/zerolog"
)

// Extractor flattens raw bureau records into feature rows using a fixed schema.
// It holds no per-batch state, so one Extractor can serve any number of calls.
type Extractor struct {
	schema Schema
	names  []string
	policy model.FailurePolicy
	logger zerolog.Logger
}

// ExtractorOption configures an Extractor
type ExtractorOption func(*Extractor)

// WithFailurePolicy sets how a bad record affects its batch.
func WithFailurePolicy(policy model.FailurePolicy) ExtractorOption {
	return func(e *Extractor) {
		e.policy = policy
	}
}

// WithLogger sets the logger that receives extraction diagnostics.
func WithLogger(logger zerolog.Logger) ExtractorOption {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor builds an extractor over schema. The default policy aborts the
// whole batch on the first record that cannot be resolved.
func NewExtractor(schema Schema, opts ...ExtractorOption) (*Extractor, error) {
	if err := ValidateSchema(schema.fields); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	e := &Extractor{
		schema: schema,
		names:  schema.Names(),
		policy: model.FailurePolicyAbortBatch,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := model.ParseFailurePolicy(string(e.policy)); err != nil {
		return nil, err
	}
	return e, nil
}

// Columns returns the output column names in schema order.
func (e *Extractor) Columns() []string {
	return e.schema.Names()
}

// ExtractBatch flattens records in input order.
//
// Under FailurePolicyAbortBatch the first FieldResolutionError stops the batch:
// the result is failed, carries no rows and one diagnostic is logged. Under
// FailurePolicySkipRecord every bad record is dropped and reported in Failures.
func (e *Extractor) ExtractBatch(records []model.RawRecord) model.ExtractionResult {
	result := model.ExtractionResult{
		Status:  model.ExtractionSucceeded,
		Columns: e.schema.Names(),
		Rows:    make([]model.FeatureRow, 0, len(records)),
		Records: len(records),
	}

	for i, rec := range records {
		row, err := e.ExtractRecord(i, rec)
		if err == nil {
			result.Rows = append(result.Rows, row)
			continue
		}

		failure := toRecordFailure(i, err)
		result.Failures = append(result.Failures, failure)

		if e.policy == model.FailurePolicySkipRecord {
			e.logger.Warn().
				Int("record_index", failure.Index).
				Str("field", failure.Field).
				Str("path", failure.Path).
				Err(err).
				Msg("Skipping record that could not be flattened")
			result.Status = model.ExtractionPartial
			continue
		}

		e.logger.Error().
			Int("record_index", failure.Index).
			Str("field", failure.Field).
			Str("path", failure.Path).
			Int("batch_size", len(records)).
			Err(err).
			Msg("Feature extraction failed, no rows produced")

		result.Status = model.ExtractionFailed
		result.Rows = nil
		result.Err = err
		return result
	}

	return result
}

// ExtractRecord flattens a single record. index is only used to label errors.
func (e *Extractor) ExtractRecord(index int, rec model.RawRecord) (model.FeatureRow, error) {
	root := map[string]interface{}(rec)
	values := make([]interface{}, len(e.schema.fields))

	for i, f := range e.schema.fields {
		val, err := resolveField(root, f)
		if err != nil {
			return model.FeatureRow{}, &FieldResolutionError{
				Record: index,
				Field:  f.Name,
				Path:   fieldPath(f),
				Err:    err,
			}
		}
		values[i] = val
	}

	return model.NewFeatureRow(e.names, values)
}

func fieldPath(f FieldSpec) string {
	if f.Key != "" {
		return f.Path.Key(f.Key).String()
	}
	return f.Path.String()
}

func toRecordFailure(index int, err error) model.RecordFailure {
	failure := model.RecordFailure{Index: index, Reason: err.Error()}
	var fre *FieldResolutionError
	if errors.As(err, &fre) {
		failure.Field = fre.Field
		failure.Path = fre.Path
		failure.Reason = fre.Err.Error()
	}
	return failure
}
