package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"credit-feature-pipeline/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractFixture(t *testing.T) model.ExtractionResult {
	t.Helper()
	e, err := NewExtractor(CreditBureauSchema())
	require.NoError(t, err)
	result := e.ExtractBatch(loadFixture(t))
	require.Equal(t, model.ExtractionSucceeded, result.Status)
	return result
}

func TestFeatureTableRoundTrip(t *testing.T) {
	result := extractFixture(t)

	var buf bytes.Buffer
	require.NoError(t, WriteFeatureTable(&buf, result.Columns, result.Rows))

	table, err := ReadFeatureTable(&buf)
	require.NoError(t, err)

	assert.Equal(t, result.Columns, table.Columns)
	require.Len(t, table.Rows, 2)

	cell := func(i int, name string) string {
		v, ok := table.Value(i, name)
		require.True(t, ok, "column %s", name)
		return v
	}
	assert.Equal(t, "Engineer", cell(0, "employment_type"))
	assert.Equal(t, "1500.50", cell(0, "total_credit_amount_overdue"))
	assert.Equal(t, "0", cell(1, "total_credit_amount_overdue"))
	assert.Equal(t, "1", cell(0, "identification_provision"))
	assert.Equal(t, "3", cell(0, "no_of_past_enquiries"))
	assert.Equal(t, "", cell(1, "property_owned_type"), "null is an empty cell")

	_, ok := table.Value(0, "absent")
	assert.False(t, ok)
	_, ok = table.Value(5, "rating")
	assert.False(t, ok)
}

func TestWriteFeatureTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	columns := CreditBureauSchema().Names()

	require.NoError(t, WriteFeatureTable(&buf, columns, nil))

	assert.Equal(t, strings.Join(columns, ",")+"\n", buf.String())
}

func TestWriteFeatureTableRejectsRaggedRow(t *testing.T) {
	row, err := model.NewFeatureRow([]string{"a"}, []interface{}{"x"})
	require.NoError(t, err)

	err = WriteFeatureTable(&bytes.Buffer{}, []string{"a", "b"}, []model.FeatureRow{row})

	assert.Error(t, err)
}

func TestWriteFeatureTableQuotesCells(t *testing.T) {
	row, err := model.NewFeatureRow([]string{"account_bank_name"}, []interface{}{"Bank, Ltd"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteFeatureTable(&buf, row.Names(), []model.FeatureRow{row}))

	table, err := ReadFeatureTable(&buf)
	require.NoError(t, err)
	assert.Equal(t, "Bank, Ltd", table.Rows[0][0])
}

type fakeRowStore struct {
	runID string
	rows  []model.FeatureRow
	err   error
}

func (f *fakeRowStore) SaveFeatureRows(runID string, rows []model.FeatureRow) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.runID, f.rows = runID, rows
	return len(rows), nil
}

func TestExportManager(t *testing.T) {
	result := extractFixture(t)
	dir := t.TempDir()

	t.Run("writes every configured sink", func(t *testing.T) {
		st := &fakeRowStore{}
		em := &ExportManager{
			RunID: "run-1",
			ExportSpec: &model.Export{
				File: filepath.Join(dir, "nested", "features.csv"),
				JSON: filepath.Join(dir, "features.json"),
				DB:   true,
			},
			Store:  st,
			Logger: zerolog.Nop(),
		}

		exports := em.Export(context.Background(), result)

		require.Len(t, exports, 3)
		for _, exp := range exports {
			assert.True(t, exp.Success, "%s: %s", exp.Type, exp.Error)
			assert.Equal(t, 2, exp.RecordCount)
		}
		assert.Equal(t, "run-1", st.runID)
		assert.Len(t, st.rows, 2)

		f, err := os.Open(filepath.Join(dir, "nested", "features.csv"))
		require.NoError(t, err)
		defer f.Close()
		table, err := ReadFeatureTable(f)
		require.NoError(t, err)
		assert.Len(t, table.Rows, 2)

		data, err := os.ReadFile(filepath.Join(dir, "features.json"))
		require.NoError(t, err)
		var doc struct {
			ExportInfo map[string]interface{} `json:"export_info"`
			Columns    []string               `json:"columns"`
			Data       []model.FeatureRow     `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &doc))
		assert.Equal(t, "run-1", doc.ExportInfo["run_id"])
		assert.Len(t, doc.Columns, 54)
		require.Len(t, doc.Data, 2)
		assert.Equal(t, doc.Columns, doc.Data[0].Names(), "row keys keep schema order")
	})

	t.Run("a failing sink does not stop the others", func(t *testing.T) {
		blocker := filepath.Join(dir, "blocker")
		require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

		var logs bytes.Buffer
		em := &ExportManager{
			RunID: "run-2",
			ExportSpec: &model.Export{
				File: filepath.Join(blocker, "features.csv"),
				JSON: filepath.Join(dir, "run-2.json"),
			},
			Logger: zerolog.New(&logs),
		}

		exports := em.Export(context.Background(), result)

		require.Len(t, exports, 2)
		assert.False(t, exports[0].Success)
		assert.Contains(t, exports[0].Error, "export to csv")
		assert.True(t, exports[1].Success)
		assert.Contains(t, logs.String(), "Export failed")
	})

	t.Run("database sink without a store fails", func(t *testing.T) {
		em := &ExportManager{RunID: "run-3", ExportSpec: &model.Export{DB: true}, Logger: zerolog.Nop()}

		exports := em.Export(context.Background(), result)

		require.Len(t, exports, 1)
		assert.False(t, exports[0].Success)
		assert.Contains(t, exports[0].Error, "no run store")
	})

	t.Run("store errors are reported", func(t *testing.T) {
		em := &ExportManager{
			RunID:      "run-4",
			ExportSpec: &model.Export{DB: true},
			Store:      &fakeRowStore{err: errors.New("disk full")},
			Logger:     zerolog.Nop(),
		}

		exports := em.Export(context.Background(), result)

		assert.False(t, exports[0].Success)
		assert.Contains(t, exports[0].Error, "disk full")
	})
}

func TestSerializationError(t *testing.T) {
	cause := errors.New("permission denied")
	err := &SerializationError{Sink: "csv", Path: "out.csv", Err: cause}

	assert.Equal(t, "export to csv out.csv failed: permission denied", err.Error())
	assert.ErrorIs(t, err, cause)
}
