package labelstudio

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gomlx/nerprep/corpus"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testExport has one usable task, one cancelled, one with two completions, one without
// completions, and one in the newer "annotations" layout.
const testExport = `[
  {"id": 1, "data": {"reddit": "Alice lives in Paris."},
   "completions": [{"id": 10, "result": [
     {"type": "labels", "value": {"start": 0, "end": 5, "text": "Alice", "labels": ["PER", "NAME"]}},
     {"type": "labels", "value": {"start": 15, "end": 20, "text": "Paris", "labels": ["LOC"]}},
     {"type": "relation", "from_id": "a", "to_id": "b"}
   ]}]},
  {"id": 2, "data": {"reddit": "Skipped text."},
   "completions": [{"id": 20, "was_cancelled": true, "result": []}]},
  {"id": 3, "data": {"reddit": "Bob and Carol."},
   "completions": [
     {"id": 30, "result": [{"value": {"start": 0, "end": 3, "labels": ["PER"]}}]},
     {"id": 31, "result": [{"value": {"start": 8, "end": 13, "labels": ["PER"]}}]}
   ]},
  {"id": 4, "data": {"reddit": "Nobody annotated me."}, "completions": []},
  {"id": 5, "data": {"reddit": "Dave"},
   "annotations": [{"id": 50, "was_cancelled": false, "result": [
     {"value": {"start": 0, "end": 4, "labels": ["PER"]}}
   ]}]}
]`

func TestParse(t *testing.T) {
	tasks, err := Parse(strings.NewReader(testExport), ParseOptions{})
	require.NoError(t, err)
	require.Len(t, tasks, 5)

	assert.Equal(t, int64(1), tasks[0].ID)
	assert.Equal(t, "Alice lives in Paris.", tasks[0].Text)
	require.Len(t, tasks[0].Completions, 1)
	assert.Len(t, tasks[0].Completions[0].Result, 3)
	assert.False(t, tasks[0].Completions[0].Result[2].IsSpanLabel())

	assert.True(t, tasks[1].Completions[0].Cancelled())
	assert.Len(t, tasks[2].Completions, 2)
	assert.Empty(t, tasks[3].Completions)

	// "annotations" is an alias of "completions".
	require.Len(t, tasks[4].Completions, 1)
	assert.False(t, tasks[4].Completions[0].Cancelled())
}

func TestUsable(t *testing.T) {
	tasks, err := Parse(strings.NewReader(testExport), ParseOptions{})
	require.NoError(t, err)
	var usable []bool
	for i := range tasks {
		usable = append(usable, tasks[i].Usable())
	}
	assert.Equal(t, []bool{true, false, false, false, true}, usable)
}

func TestUsable_CancelledWhenPresent(t *testing.T) {
	tasks, err := Parse(strings.NewReader(testExport), ParseOptions{CancelledWhenPresent: true})
	require.NoError(t, err)
	var usable []bool
	for i := range tasks {
		usable = append(usable, tasks[i].Usable())
	}
	// Task 5 has "was_cancelled": false, which now counts as cancelled.
	assert.Equal(t, []bool{true, false, false, false, false}, usable)
	assert.True(t, tasks[4].Completions[0].Cancelled())
	require.Len(t, Filter(tasks), 1)
	assert.Equal(t, int64(1), Filter(tasks)[0].TaskID)
}

func TestFilter(t *testing.T) {
	tasks, err := Parse(strings.NewReader(testExport), ParseOptions{})
	require.NoError(t, err)

	examples := Filter(tasks)
	want := []corpus.Example{
		{
			TaskID: 1,
			Text:   "Alice lives in Paris.",
			Annotations: []corpus.Annotation{
				{Start: 0, End: 5, Label: "PER"},
				{Start: 15, End: 20, Label: "LOC"},
			},
		},
		{
			TaskID:      5,
			Text:        "Dave",
			Annotations: []corpus.Annotation{{Start: 0, End: 4, Label: "PER"}},
		},
	}
	assert.Equal(t, want, examples)

	// Filter is pure.
	assert.Len(t, tasks, 5)
	assert.Equal(t, examples, Filter(tasks))
	assert.Empty(t, Filter(nil))
}

func TestParse_TextKey(t *testing.T) {
	export := `[{"id": 1, "data": {"text": "Hi Bob"}, "completions": [{"result": [
	  {"value": {"start": 3, "end": 6, "labels": ["PER"]}}]}]}]`
	tasks, err := Parse(strings.NewReader(export), ParseOptions{TextKey: "text"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Bob", tasks[0].Text)

	_, err = Parse(strings.NewReader(export), ParseOptions{})
	var validationErr *ValidationError
	require.True(t, errors.As(err, &validationErr), "got %v", err)
	assert.Equal(t, 0, validationErr.Index)
	assert.Equal(t, int64(1), validationErr.TaskID)
	assert.Contains(t, validationErr.Reason, `"reddit"`)
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name   string
		value  string
		reason string
	}{
		{"missing start", `{"end": 3, "labels": ["X"]}`, "missing start"},
		{"missing end", `{"start": 0, "labels": ["X"]}`, "missing end"},
		{"negative start", `{"start": -1, "end": 3, "labels": ["X"]}`, "negative start"},
		{"empty span", `{"start": 3, "end": 3, "labels": ["X"]}`, "not before end"},
		{"no labels", `{"start": 0, "end": 3, "labels": []}`, "no labels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			export := `[{"id": 9, "data": {"reddit": "abcdef"}, "completions": [{"result": [{"value": ` + tt.value + `}]}]}]`
			_, err := Parse(strings.NewReader(export), ParseOptions{})
			var validationErr *ValidationError
			require.True(t, errors.As(err, &validationErr), "got %v", err)
			assert.Contains(t, validationErr.Reason, tt.reason)
			assert.Contains(t, err.Error(), "id=9")
		})
	}

	t.Run("text is not a string", func(t *testing.T) {
		export := `[{"id": 9, "data": {"reddit": 42}, "completions": [{"result": []}]}]`
		_, err := Parse(strings.NewReader(export), ParseOptions{})
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr), "got %v", err)
	})

	t.Run("malformed unusable tasks are ignored", func(t *testing.T) {
		export := `[{"id": 9, "data": {}, "completions": [
		  {"result": [{"value": {"labels": []}}]}, {"result": []}]}]`
		tasks, err := Parse(strings.NewReader(export), ParseOptions{})
		require.NoError(t, err)
		assert.Empty(t, Filter(tasks))
	})

	t.Run("not json", func(t *testing.T) {
		_, err := Parse(strings.NewReader(`{"id": 1}`), ParseOptions{})
		require.Error(t, err)
	})
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := zip.NewWriter(f)
	for name, content := range files {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	zipPath := filepath.Join(dir, "export.zip")
	writeZip(t, zipPath, map[string]string{ResultFile: testExport})
	tasks, err := Load(zipPath, ParseOptions{})
	require.NoError(t, err)
	assert.Len(t, tasks, 5)

	jsonPath := filepath.Join(dir, "export.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(testExport), 0o644))
	tasks, err = Load(jsonPath, ParseOptions{})
	require.NoError(t, err)
	assert.Len(t, tasks, 5)

	badZip := filepath.Join(dir, "bad.zip")
	writeZip(t, badZip, map[string]string{"other.json": "[]"})
	_, err = Load(badZip, ParseOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoResultFile), "got %v", err)

	_, err = Load(filepath.Join(dir, "missing.zip"), ParseOptions{})
	require.Error(t, err)

	_, err = Load(filepath.Join(dir, "export.csv"), ParseOptions{})
	require.Error(t, err)
}
