package model

import (
	"fmt"
	"strings"
)

// RawRecord is one consumer's bureau report as decoded from JSON.
// Nested values are map[string]interface{}, []interface{}, string,
// json.Number, bool or nil.
type RawRecord map[string]interface{}

// FailurePolicy decides what happens to a batch when a record cannot be flattened.
type FailurePolicy string

const (
	// FailurePolicyAbortBatch stops at the first bad record and produces no rows.
	FailurePolicyAbortBatch FailurePolicy = "abort_batch"
	// FailurePolicySkipRecord drops bad records and keeps the rest of the batch.
	// This isolates failures per record and is not the default behaviour.
	FailurePolicySkipRecord FailurePolicy = "skip_record"
)

// ParseFailurePolicy maps a config or flag value to a FailurePolicy.
// An empty value selects FailurePolicyAbortBatch.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(FailurePolicyAbortBatch):
		return FailurePolicyAbortBatch, nil
	case string(FailurePolicySkipRecord):
		return FailurePolicySkipRecord, nil
	default:
		return "", fmt.Errorf("unknown failure policy: %s", s)
	}
}

// Source describes where a batch of raw records comes from
type Source struct {
	Type string `json:"type"` // file, url
	URL  string `json:"url"`  // local path or http(s) URL
}

// Export defines export targets for the extracted feature table
type Export struct {
	File string `json:"file"`           // CSV output path
	JSON string `json:"json,omitempty"` // optional JSON output path
	DB   bool   `json:"db"`             // persist rows to the run store
}

// RunSpec is the configuration of a single extraction run
type RunSpec struct {
	Source        Source        `json:"source"`
	FailurePolicy FailurePolicy `json:"failurePolicy,omitempty"`
	Export        *Export       `json:"export,omitempty"`
	Timeout       string        `json:"timeout,omitempty"` // e.g. "5m"
}
