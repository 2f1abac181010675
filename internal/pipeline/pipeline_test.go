package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"credit-feature-pipeline/internal/model"
	"credit-feature-pipeline/internal/store"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T) (*Runner, *store.Store, string) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "pipeline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return NewRunner(CreditBureauSchema(), st, zerolog.Nop()), st, dir
}

func TestRunnerRun(t *testing.T) {
	runner, st, dir := newTestRunner(t)
	csvPath := filepath.Join(dir, "out", DefaultCSVFile)
	spec := model.RunSpec{
		Source: model.Source{URL: fixturePath},
		Export: &model.Export{File: csvPath, DB: true},
	}
	require.NoError(t, runner.Register("run-ok", spec))

	report, err := runner.Run(context.Background(), "run-ok", spec)

	require.NoError(t, err)
	assert.Equal(t, "run-ok", report.RunID)
	assert.Equal(t, model.ExtractionSucceeded, report.Result.Status)
	require.Len(t, report.Exports, 2)

	run, err := st.GetRun("run-ok")
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, model.FailurePolicyAbortBatch, run.FailurePolicy)
	assert.Equal(t, 2, run.RecordCount)
	assert.Equal(t, 2, run.RowCount)
	assert.Equal(t, 0, run.FailureCount)
	assert.Len(t, run.Columns, 54)

	rows, err := st.GetFeatureRows("run-ok", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	total, _ := rows[0].Get("total_credit_amount_overdue")
	assert.Equal(t, "1500.50", total.(interface{ String() string }).String())

	_, err = os.Stat(csvPath)
	assert.NoError(t, err)

	logs, err := st.GetRunLogs("run-ok", 0)
	require.NoError(t, err)
	var stages []string
	for _, l := range logs {
		stages = append(stages, l.Stage)
	}
	assert.Equal(t, []string{"ingestion", "extraction"}, stages)
}

func TestRunnerRunFailedBatch(t *testing.T) {
	runner, st, dir := newTestRunner(t)
	records := loadFixture(t)
	delete(consumer(records[0]), "creditaccountsummary")
	csvPath := filepath.Join(dir, DefaultCSVFile)
	spec := model.RunSpec{Export: &model.Export{File: csvPath, DB: true}}
	require.NoError(t, runner.Register("run-bad", spec))

	report, err := runner.RunRecords(context.Background(), "run-bad", records, spec)

	require.NoError(t, err, "a failed batch is reported in the result")
	assert.True(t, report.Result.Failed())
	assert.Empty(t, report.Exports, "nothing is exported for a failed batch")

	_, err = os.Stat(csvPath)
	assert.True(t, os.IsNotExist(err))

	run, err := st.GetRun("run-bad")
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, run.Status)
	assert.Equal(t, 0, run.RowCount)
	assert.Equal(t, 1, run.FailureCount)

	failures, err := st.GetRunErrors("run-bad")
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, "rating", failures[0].Field)
	assert.Equal(t, 0, failures[0].Index)
}

func TestRunnerSkipRecord(t *testing.T) {
	runner, st, dir := newTestRunner(t)
	records := loadFixture(t)
	delete(consumer(records[0]), "enquiryhistorytop")
	spec := model.RunSpec{
		FailurePolicy: model.FailurePolicySkipRecord,
		Export:        &model.Export{File: filepath.Join(dir, DefaultCSVFile), DB: true},
	}
	require.NoError(t, runner.Register("run-skip", spec))

	report, err := runner.RunRecords(context.Background(), "run-skip", records, spec)

	require.NoError(t, err)
	assert.Equal(t, model.ExtractionPartial, report.Result.Status)

	run, err := st.GetRun("run-skip")
	require.NoError(t, err)
	assert.Equal(t, model.RunCompleted, run.Status)
	assert.Equal(t, model.FailurePolicySkipRecord, run.FailurePolicy)
	assert.Equal(t, 1, run.RowCount)
	assert.Equal(t, 1, run.FailureCount)
}

func TestRunnerIngestFailure(t *testing.T) {
	runner, st, _ := newTestRunner(t)
	spec := model.RunSpec{Source: model.Source{URL: "testdata/absent.json"}}
	require.NoError(t, runner.Register("run-missing", spec))

	_, err := runner.Run(context.Background(), "run-missing", spec)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingestion failed")

	run, err := st.GetRun("run-missing")
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, run.Status)
}

func TestRunnerWithoutStore(t *testing.T) {
	dir := t.TempDir()
	var logs bytes.Buffer
	runner := NewRunner(CreditBureauSchema(), nil, zerolog.New(&logs))
	spec := model.RunSpec{Export: &model.Export{File: filepath.Join(dir, DefaultCSVFile)}}

	require.NoError(t, runner.Register("untracked", spec))
	report, err := runner.RunRecords(context.Background(), "untracked", loadFixture(t), spec)

	require.NoError(t, err)
	assert.Equal(t, model.ExtractionSucceeded, report.Result.Status)
	require.Len(t, report.Exports, 1)
	assert.True(t, report.Exports[0].Success)
	assert.Contains(t, logs.String(), "Run finished")
}

func TestRunnerRejectsCancelledContext(t *testing.T) {
	runner, st, _ := newTestRunner(t)
	spec := model.RunSpec{}
	require.NoError(t, runner.Register("run-cancel", spec))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runner.RunRecords(ctx, "run-cancel", loadFixture(t), spec)

	require.ErrorIs(t, err, context.Canceled)
	run, err := st.GetRun("run-cancel")
	require.NoError(t, err)
	assert.Equal(t, model.RunFailed, run.Status)
}

func TestRunnerLogsRunFields(t *testing.T) {
	var logs bytes.Buffer
	runner := NewRunner(CreditBureauSchema(), nil, zerolog.New(&logs))
	spec := model.RunSpec{
		Source:        model.Source{URL: fixturePath},
		Export:        &model.Export{File: filepath.Join(t.TempDir(), DefaultCSVFile)},
		FailurePolicy: model.FailurePolicySkipRecord,
	}

	require.NoError(t, runner.Register("run-logged", spec))
	_, err := runner.Run(context.Background(), "run-logged", spec)
	require.NoError(t, err)

	out := logs.String()
	assert.Contains(t, out, `"run_id":"run-logged"`)
	assert.Contains(t, out, `"source":"`+fixturePath+`"`)
	assert.Contains(t, out, `"failure_policy":"skip_record"`)
}
