package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFeatureRow(t *testing.T) {
	t.Run("pairs names with values", func(t *testing.T) {
		row, err := NewFeatureRow([]string{"gender", "dependants"}, []interface{}{"Male", "2"})

		require.NoError(t, err)
		assert.Equal(t, 2, row.Len())
		assert.Equal(t, []string{"gender", "dependants"}, row.Names())

		v, ok := row.Get("dependants")
		assert.True(t, ok)
		assert.Equal(t, "2", v)

		_, ok = row.Get("nationality")
		assert.False(t, ok)
	})

	t.Run("with mismatched lengths returns error", func(t *testing.T) {
		_, err := NewFeatureRow([]string{"gender"}, []interface{}{"Male", "2"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "2 values for 1 columns")
	})

	t.Run("accessors return copies", func(t *testing.T) {
		row, err := NewFeatureRow([]string{"gender"}, []interface{}{"Male"})
		require.NoError(t, err)

		row.Values()[0] = "Female"
		row.Names()[0] = "sex"

		v, ok := row.Get("gender")
		assert.True(t, ok)
		assert.Equal(t, "Male", v)
	})
}

func TestFeatureRowJSON(t *testing.T) {
	total, err := NewDecimal("1500.50")
	require.NoError(t, err)

	names := []string{"rating", "identification_provision", "total_credit_amount_overdue", "property_owned_type"}
	row, err := NewFeatureRow(names, []interface{}{"A", 1, total, nil})
	require.NoError(t, err)

	t.Run("keys keep column order", func(t *testing.T) {
		data, err := json.Marshal(row)

		require.NoError(t, err)
		assert.Equal(t, `{"rating":"A","identification_provision":1,"total_credit_amount_overdue":1500.50,"property_owned_type":null}`, string(data))
	})

	t.Run("decoding restores order and number text", func(t *testing.T) {
		data, err := json.Marshal(row)
		require.NoError(t, err)

		var decoded FeatureRow
		require.NoError(t, json.Unmarshal(data, &decoded))

		assert.Equal(t, names, decoded.Names())
		v, _ := decoded.Get("total_credit_amount_overdue")
		assert.Equal(t, json.Number("1500.50"), v)
		v, _ = decoded.Get("property_owned_type")
		assert.Nil(t, v)
	})

	t.Run("decoding a non-object fails", func(t *testing.T) {
		var decoded FeatureRow
		assert.Error(t, json.Unmarshal([]byte(`["A"]`), &decoded))
	})
}

func TestParseFailurePolicy(t *testing.T) {
	cases := map[string]FailurePolicy{
		"":             FailurePolicyAbortBatch,
		"abort_batch":  FailurePolicyAbortBatch,
		"SKIP_RECORD":  FailurePolicySkipRecord,
		" skip_record": FailurePolicySkipRecord,
	}
	for in, want := range cases {
		got, err := ParseFailurePolicy(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got)
	}

	_, err := ParseFailurePolicy("retry")
	assert.Error(t, err)
}

func TestExtractionResultState(t *testing.T) {
	assert.True(t, ExtractionResult{Status: ExtractionSucceeded}.Empty())
	assert.False(t, ExtractionResult{Status: ExtractionSucceeded, Records: 1}.Empty())
	assert.True(t, ExtractionResult{Status: ExtractionFailed, Records: 3}.Failed())
	assert.False(t, ExtractionResult{Status: ExtractionPartial, Records: 3}.Failed())
}
