package pipeline

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"credit-feature-pipeline/internal/model"
	"credit-feature-pipeline/pkg/utils"

	"github.com/rs/zerolog"
)

const (
	// DefaultCSVFile is the table written when no output path is configured
	DefaultCSVFile = "extracted_features.csv"
	// DefaultJSONFile is the JSON export name used for API runs
	DefaultJSONFile = "extracted_features.json"
)

// SerializationError reports an export sink that could not be written.
// The rows being exported are still valid when this happens.
type SerializationError struct {
	Sink string // csv, json, database
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("export to %s %s failed: %v", e.Sink, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// RowStore persists feature rows for a run
type RowStore interface {
	SaveFeatureRows(runID string, rows []model.FeatureRow) (int, error)
}

// ExportManager writes an extraction result to the configured sinks
type ExportManager struct {
	RunID      string
	ExportSpec *model.Export
	Store      RowStore
	Logger     zerolog.Logger
}

// Export writes result to every configured sink and reports one ExportResult
// per sink. A failing sink does not stop the others.
func (em *ExportManager) Export(ctx context.Context, result model.ExtractionResult) []model.ExportResult {
	spec := em.ExportSpec
	if spec == nil {
		spec = &model.Export{File: DefaultCSVFile}
	}

	var results []model.ExportResult
	if spec.File != "" {
		results = append(results, em.record(model.ExportResult{Type: "csv", Path: spec.File},
			func() (int, error) { return exportToCSV(spec.File, result) }))
	}
	if spec.JSON != "" {
		results = append(results, em.record(model.ExportResult{Type: "json", Path: spec.JSON},
			func() (int, error) { return exportToJSON(spec.JSON, em.RunID, result) }))
	}
	if spec.DB {
		results = append(results, em.record(model.ExportResult{Type: "database", Path: "feature_rows"},
			func() (int, error) { return em.exportToDatabase(ctx, result) }))
	}
	return results
}

func (em *ExportManager) record(res model.ExportResult, write func() (int, error)) model.ExportResult {
	n, err := write()
	res.RecordCount = n
	res.Success = err == nil
	res.Timestamp = time.Now().UTC()

	if err != nil {
		serr := &SerializationError{Sink: res.Type, Path: res.Path, Err: err}
		res.Error = serr.Error()
		em.Logger.Error().Err(serr).Str("sink", res.Type).Str("path", res.Path).Msg("Export failed, extracted rows are kept in memory")
		return res
	}
	em.Logger.Info().Str("sink", res.Type).Str("path", res.Path).Int("rows", n).Msg("Export successful")
	return res
}

// exportToCSV writes the feature table to path, creating parent directories
func exportToCSV(path string, result model.ExtractionResult) (n int, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	if err := WriteFeatureTable(file, result.Columns, result.Rows); err != nil {
		return 0, err
	}
	return len(result.Rows), nil
}

// exportToJSON writes the rows together with run metadata
func exportToJSON(path, runID string, result model.ExtractionResult) (n int, err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return 0, fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := map[string]interface{}{
		"export_info": map[string]interface{}{
			"run_id":       runID,
			"exported_at":  time.Now().UTC(),
			"record_count": len(result.Rows),
			"status":       result.Status,
		},
		"columns": result.Columns,
		"data":    result.Rows,
	}
	if err := encoder.Encode(exportData); err != nil {
		return 0, fmt.Errorf("failed to encode JSON: %w", err)
	}
	return len(result.Rows), nil
}

func (em *ExportManager) exportToDatabase(ctx context.Context, result model.ExtractionResult) (int, error) {
	if em.Store == nil {
		return 0, fmt.Errorf("no run store configured")
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return em.Store.SaveFeatureRows(em.RunID, result.Rows)
}

// WriteFeatureTable writes a header of columns followed by one line per row.
func WriteFeatureTable(w io.Writer, columns []string, rows []model.FeatureRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(columns))
	for i, row := range rows {
		values := row.Values()
		if len(values) != len(columns) {
			return fmt.Errorf("row %d has %d values for %d columns", i, len(values), len(columns))
		}
		for j, v := range values {
			record[j] = utils.FormatValue(v)
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush table: %w", err)
	}
	return nil
}

// FeatureTable is a feature table read back from its delimited text form
type FeatureTable struct {
	Columns []string
	Rows    [][]string
}

// Value returns the cell of row i in column name.
func (t FeatureTable) Value(i int, name string) (string, bool) {
	if i < 0 || i >= len(t.Rows) {
		return "", false
	}
	for j, c := range t.Columns {
		if c == name {
			return t.Rows[i][j], true
		}
	}
	return "", false
}

// ReadFeatureTable parses a table written by WriteFeatureTable.
func ReadFeatureTable(r io.Reader) (FeatureTable, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return FeatureTable{}, fmt.Errorf("failed to read header: %w", err)
	}

	table := FeatureTable{Columns: header}
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return table, nil
		}
		if err != nil {
			return FeatureTable{}, fmt.Errorf("failed to read row %d: %w", len(table.Rows), err)
		}
		table.Rows = append(table.Rows, rec)
	}
}
