package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeExport writes a plain JSON export with n usable tasks, text under "body".
func writeExport(t *testing.T, n int) string {
	t.Helper()
	var tasks []string
	for i := range n {
		tasks = append(tasks, fmt.Sprintf(
			`{"id": %d, "data": {"body": "Ann%d met Zoë in Paris."}, "completions": [{"result": [
			  {"type": "labels", "value": {"start": 0, "end": 4, "labels": ["PER"]}},
			  {"type": "labels", "value": {"start": 9, "end": 12, "labels": ["PER"]}},
			  {"type": "labels", "value": {"start": 16, "end": 21, "labels": ["LOC"]}}]}]}`, i+1, i))
	}
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte("["+strings.Join(tasks, ",")+"]"), 0o644))
	return path
}

func TestParseConvertArgs(t *testing.T) {
	cfg, input, outDir, err := parseConvertArgs([]string{"-format=jsonl", "-offsets", "utf16", "in.zip", "out", "0.3", "0.1"})
	require.NoError(t, err)
	assert.Equal(t, "in.zip", input)
	assert.Equal(t, "out", outDir)
	assert.Equal(t, 0.3, cfg.Split.TestRatio)
	assert.Equal(t, 0.1, cfg.Split.DevRatio)
	assert.Equal(t, "jsonl", cfg.Output.Format)
	assert.Equal(t, "utf16", cfg.Alignment.Offsets)
	assert.Equal(t, "strict", cfg.Alignment.Mode)
	assert.False(t, cfg.CancelledWhenPresent)

	cfg, _, _, err = parseConvertArgs([]string{"-cancelled-when-present", "in.zip", "out", "0.3", "0.1"})
	require.NoError(t, err)
	assert.True(t, cfg.CancelledWhenPresent)

	t.Setenv("NERPREP_DEV_SIZE", "0.2")
	t.Setenv("NERPREP_TEST_SIZE", "0.25")
	cfg, _, _, err = parseConvertArgs([]string{"in.zip", "out"})
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Split.DevRatio)
	assert.Equal(t, 0.25, cfg.Split.TestRatio)

	for _, args := range [][]string{
		{"in.zip"},
		{"in.zip", "out", "0.2"},
		{"in.zip", "out", "twenty", "0.2"},
		{"in.zip", "out", "0.2", "1.5"},
		{"-alignment=fuzzy", "in.zip", "out"},
		{"-unknown", "in.zip", "out"},
	} {
		_, _, _, err := parseConvertArgs(args)
		assert.Error(t, err, "args %q", args)
	}
}

func TestConvertAndStats(t *testing.T) {
	input := writeExport(t, 10)
	outDir := filepath.Join(t.TempDir(), "corpus")
	var out bytes.Buffer
	require.NoError(t, convert(&out, []string{"-text-key=body", "-format=jsonl", input, outDir, "0.2", "0.2"}))
	for _, want := range []string{"TOT. MISALIGNED ENTITIES", "PARTITION", "train", "dev", "test"} {
		assert.Contains(t, out.String(), want)
	}

	var paths []string
	for _, name := range []string{"train", "dev", "test"} {
		path := filepath.Join(outDir, name+".jsonl")
		require.FileExists(t, path)
		paths = append(paths, path)
	}
	out.Reset()
	require.NoError(t, stats(&out, paths))
	for _, want := range []string{"FILE", "LABEL", "LOC", "PER", paths[0]} {
		assert.Contains(t, out.String(), want)
	}

	require.Error(t, stats(&out, nil))
	require.Error(t, stats(&out, []string{filepath.Join(outDir, "missing.jsonl")}))
}

func TestConvert_Errors(t *testing.T) {
	var out bytes.Buffer
	// Default text key "reddit" is missing from the tasks.
	require.Error(t, convert(&out, []string{writeExport(t, 3), t.TempDir(), "0.2", "0.2"}))

	// A single document can't fill three partitions; the conversion table is printed anyway.
	out.Reset()
	err := convert(&out, []string{"-text-key=body", writeExport(t, 1), t.TempDir(), "0.2", "0.2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty partitions")
	assert.Contains(t, out.String(), "TOT. ENTITIES")
}
