package model

import "time"

// ExtractionStatus is the outcome of flattening one batch
type ExtractionStatus string

const (
	ExtractionSucceeded ExtractionStatus = "succeeded"
	ExtractionPartial   ExtractionStatus = "partial" // skip_record policy dropped some records
	ExtractionFailed    ExtractionStatus = "failed"
)

// RecordFailure identifies a record that could not be flattened and why
type RecordFailure struct {
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ExtractionResult is the typed outcome of a batch extraction.
// A failed result never carries rows.
type ExtractionResult struct {
	Status   ExtractionStatus `json:"status"`
	Columns  []string         `json:"columns"`
	Rows     []FeatureRow     `json:"rows"`
	Failures []RecordFailure  `json:"failures,omitempty"`
	Records  int              `json:"records"` // number of input records
	Err      error            `json:"-"`       // first resolution error when Status is failed
}

func (r ExtractionResult) Failed() bool {
	return r.Status == ExtractionFailed
}

// Empty reports a successful extraction over an empty batch.
func (r ExtractionResult) Empty() bool {
	return r.Status == ExtractionSucceeded && r.Records == 0
}

// ExportResult represents the result of an export operation
type ExportResult struct {
	Type        string    `json:"type"` // "csv", "json", "database"
	Path        string    `json:"path"` // file path or table name
	RecordCount int       `json:"record_count"`
	Success     bool      `json:"success"`
	Error       string    `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}
