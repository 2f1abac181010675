package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"credit-feature-pipeline/internal/logger"
	"credit-feature-pipeline/internal/model"
)

// ------------------- Ingestion -------------------

// IngestSource loads the raw records of a source (local JSON file or URL)
func IngestSource(ctx context.Context, source model.Source) ([]model.RawRecord, error) {
	switch SourceType(source) {
	case "file":
		return ingestFile(source.URL)
	case "url":
		return ingestURL(ctx, source.URL, DefaultIngestRetry)
	default:
		return nil, fmt.Errorf("unknown source type: %s", source.Type)
	}
}

// SourceType reports how a source is read: "url", "file" or the explicit
// type it names.
func SourceType(source model.Source) string {
	if source.Type != "" {
		return strings.ToLower(source.Type)
	}
	if strings.HasPrefix(source.URL, "http://") || strings.HasPrefix(source.URL, "https://") {
		return "url"
	}
	return "file"
}

// ------------------- File Ingestion -------------------
func ingestFile(path string) ([]model.RawRecord, error) {
	if path == "" {
		return nil, fmt.Errorf("source path is required")
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON file: %w", err)
	}
	defer file.Close()

	return DecodeRecords(file)
}

// ------------------- URL Ingestion -------------------
func ingestURL(ctx context.Context, url string, retry RetryConfig) ([]model.RawRecord, error) {
	log := logger.FromContext(ctx)

	var records []model.RawRecord
	err := withRetry(ctx, retry, log, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			return retryable(fmt.Errorf("failed to GET JSON: %w", err))
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retryable(fmt.Errorf("failed to GET JSON: unexpected status %s", resp.Status))
		default:
			return fmt.Errorf("failed to GET JSON: unexpected status %s", resp.Status)
		}

		records, err = DecodeRecords(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DecodeRecords reads a JSON document holding either an array of records or a
// single record. Numbers are kept as json.Number so their text survives.
func DecodeRecords(r io.Reader) ([]model.RawRecord, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON body: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if dec.More() {
		return nil, fmt.Errorf("failed to decode JSON: trailing data after document")
	}

	switch data := raw.(type) {
	case []interface{}:
		records := make([]model.RawRecord, 0, len(data))
		for i, item := range data {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("record %d is %s, want object", i, typeName(item))
			}
			records = append(records, model.RawRecord(m))
		}
		return records, nil
	case map[string]interface{}:
		return []model.RawRecord{model.RawRecord(data)}, nil
	default:
		return nil, fmt.Errorf("unexpected JSON structure: %s", typeName(raw))
	}
}
