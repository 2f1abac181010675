package store

import (
	"errors"
	"path/filepath"
	"testing"

	"credit-feature-pipeline/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func newRun(id string) model.RunRecord {
	return model.RunRecord{
		ID:            id,
		Source:        "bureau.json",
		FailurePolicy: model.FailurePolicyAbortBatch,
		Status:        model.RunPending,
		Columns:       []string{"gender", "total_credit_amount_overdue"},
	}
}

func featureRow(t *testing.T, gender, total string) model.FeatureRow {
	t.Helper()
	d, err := model.NewDecimal(total)
	require.NoError(t, err)
	row, err := model.NewFeatureRow([]string{"gender", "total_credit_amount_overdue"}, []interface{}{gender, d})
	require.NoError(t, err)
	return row
}

func TestRunLifecycle(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateRun(newRun("run-1")))

	run, err := st.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunPending, run.Status)
	assert.Equal(t, []string{"gender", "total_credit_amount_overdue"}, run.Columns)
	assert.False(t, run.CreatedAt.IsZero())

	require.NoError(t, st.UpdateRunStatus("run-1", model.RunExtracting))
	result := model.ExtractionResult{
		Status:   model.ExtractionPartial,
		Records:  3,
		Rows:     []model.FeatureRow{featureRow(t, "Male", "1")},
		Failures: []model.RecordFailure{{Index: 1}, {Index: 2}},
	}
	require.NoError(t, st.CompleteRun("run-1", model.RunCompleted, result))

	run, err = st.GetRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, 3, run.RecordCount)
	assert.Equal(t, 1, run.RowCount)
	assert.Equal(t, 2, run.FailureCount)
}

func TestUnknownRun(t *testing.T) {
	st := openTestStore(t)

	_, err := st.GetRun("nope")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	assert.True(t, errors.Is(st.UpdateRunStatus("nope", model.RunFailed), ErrRunNotFound))
	assert.True(t, errors.Is(st.CompleteRun("nope", model.RunFailed, model.ExtractionResult{}), ErrRunNotFound))
	assert.True(t, errors.Is(st.DeleteRun("nope"), ErrRunNotFound))
}

func TestListRuns(t *testing.T) {
	st := openTestStore(t)

	runs, err := st.ListRuns()
	require.NoError(t, err)
	assert.Empty(t, runs)

	require.NoError(t, st.CreateRun(newRun("a")))
	require.NoError(t, st.CreateRun(newRun("b")))

	runs, err = st.ListRuns()
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestFeatureRows(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateRun(newRun("run-1")))

	rows := []model.FeatureRow{
		featureRow(t, "Male", "1500.50"),
		featureRow(t, "Female", "0"),
		featureRow(t, "Male", "12.00"),
	}
	n, err := st.SaveFeatureRows("run-1", rows)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	stored, err := st.GetFeatureRows("run-1", 0)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, []string{"gender", "total_credit_amount_overdue"}, stored[0].Names())
	v, _ := stored[0].Get("total_credit_amount_overdue")
	assert.Equal(t, "1500.50", v.(interface{ String() string }).String())
	v, _ = stored[1].Get("gender")
	assert.Equal(t, "Female", v)

	limited, err := st.GetFeatureRows("run-1", 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	// saving again replaces the previous rows
	_, err = st.SaveFeatureRows("run-1", rows[:1])
	require.NoError(t, err)
	stored, err = st.GetFeatureRows("run-1", 0)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestRunErrorsAndLogs(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateRun(newRun("run-1")))

	require.NoError(t, st.SaveRunError("run-1", model.RecordFailure{Index: 4, Field: "gender", Path: "data.x", Reason: "missing key"}))
	require.NoError(t, st.SaveRunError("run-1", model.RecordFailure{Index: 1, Field: "rating", Path: "data.y", Reason: "missing key"}))

	failures, err := st.GetRunErrors("run-1")
	require.NoError(t, err)
	require.Len(t, failures, 2)
	assert.Equal(t, 1, failures[0].Index, "ordered by record")
	assert.Equal(t, "gender", failures[1].Field)

	require.NoError(t, st.SaveRunLog("run-1", "ingestion", "info", "Ingestion stage completed", map[string]interface{}{"records": 2}))
	require.NoError(t, st.SaveRunLog("run-1", "extraction", "error", "Extraction stage completed", nil))

	logs, err := st.GetRunLogs("run-1", 0)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "ingestion", logs[0].Stage)
	assert.Equal(t, float64(2), logs[0].Details["records"])
	assert.Nil(t, logs[1].Details)

	logs, err = st.GetRunLogs("run-1", 1)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestDeleteRun(t *testing.T) {
	st := openTestStore(t)
	require.NoError(t, st.CreateRun(newRun("run-1")))
	_, err := st.SaveFeatureRows("run-1", []model.FeatureRow{featureRow(t, "Male", "1")})
	require.NoError(t, err)
	require.NoError(t, st.SaveRunError("run-1", model.RecordFailure{Index: 0}))

	require.NoError(t, st.DeleteRun("run-1"))

	_, err = st.GetRun("run-1")
	assert.True(t, errors.Is(err, ErrRunNotFound))
	rows, err := st.GetFeatureRows("run-1", 0)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
