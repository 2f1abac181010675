package utils

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseDuration("30s"))
	assert.Equal(t, 5*time.Minute, ParseDuration(""))
	assert.Equal(t, 5*time.Minute, ParseDuration("later"))
	assert.Equal(t, 5*time.Minute, ParseDuration("-1s"))
}

type amount string

func (a amount) String() string { return string(a) }

func TestFormatValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{nil, ""},
		{"Engineer", "Engineer"},
		{json.Number("1500.50"), "1500.50"},
		{true, "true"},
		{3, "3"},
		{int64(7), "7"},
		{0.1, "0.1"},
		{amount("12.00"), "12.00"},
		{map[string]interface{}{"a": 1}, `{"a":1}`},
		{[]interface{}{"x", 2}, `["x",2]`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, FormatValue(tc.in), "input %#v", tc.in)
	}
}

func TestOutputManager(t *testing.T) {
	base := t.TempDir()
	om := NewOutputManager(base)

	path, err := om.GetOutputFilePath("run-1", "../escape/features.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "run-1", "features.csv"), path)

	info, err := os.Stat(filepath.Join(base, "run-1"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	assert.Equal(t, "/api/v1/extractions/run-1/download", om.GetDownloadURL("run-1"))

	require.NoError(t, om.RemoveRunOutputDir("run-1"))
	_, err = os.Stat(filepath.Join(base, "run-1"))
	assert.True(t, os.IsNotExist(err))

	for _, id := range []string{"", ".", "..", "a/b", `a\b`} {
		_, err := om.CreateRunOutputDir(id)
		assert.Error(t, err, "run ID %q", id)
		assert.Error(t, om.RemoveRunOutputDir(id), "run ID %q", id)
	}
}
