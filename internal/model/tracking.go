package model

import "time"

// Run status values, in the order a run moves through them
const (
	RunPending    = "pending"
	RunIngesting  = "ingesting"
	RunExtracting = "extracting"
	RunExporting  = "exporting"
	RunCompleted  = "completed"
	RunFailed     = "failed"
)

// RunRecord is the persisted summary of an extraction run
type RunRecord struct {
	ID            string        `json:"id"`
	Source        string        `json:"source"`
	FailurePolicy FailurePolicy `json:"failure_policy"`
	Status        string        `json:"status"`
	Columns       []string      `json:"columns,omitempty"`
	RecordCount   int           `json:"record_count"`
	RowCount      int           `json:"row_count"`
	FailureCount  int           `json:"failure_count"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// RunLog is one stage log line of a run
type RunLog struct {
	Stage     string                 `json:"stage"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
