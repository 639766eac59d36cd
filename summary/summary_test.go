package summary

import (
	"strings"
	"testing"

	"github.com/gomlx/nerprep/align"
	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/split"
	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConversion(t *testing.T) {
	out := Conversion(align.Stats{Seen: 12, Resolved: 9, Misaligned: 3, Overlapping: 1, Documents: 4})
	for _, want := range []string{"TOT. ENTITIES", "TOT. DOCS", "TOT. MISALIGNED ENTITIES", "12", "9", "3"} {
		assert.Contains(t, out, want)
	}
}

func TestPartitions(t *testing.T) {
	doc := &corpus.Document{Entities: make([]corpus.Entity, 2)}
	result := &split.Result{
		Train: split.Partition{Name: split.Train, Documents: []*corpus.Document{doc, doc}, Entities: 4, Ratio: 0.5},
		Dev:   split.Partition{Name: split.Dev, Documents: []*corpus.Document{doc}, Entities: 2, Ratio: 0.25},
		Test:  split.Partition{Name: split.Test, Documents: []*corpus.Document{doc}, Entities: 2, Ratio: 0.25},
	}
	out := Partitions(result)
	assert.Contains(t, out, "ENTS PER PARTITION")
	assert.Contains(t, out, "50.00")
	assert.Contains(t, out, "25.00")

	// Rows follow train, test, dev order.
	trainPos := strings.Index(out, "train")
	devPos := strings.Index(out, "dev")
	testPos := strings.Index(out, "test")
	require.True(t, trainPos >= 0 && devPos >= 0 && testPos >= 0)
	assert.Less(t, trainPos, testPos)
	assert.Less(t, testPos, devPos)
}

func TestFiles(t *testing.T) {
	docs := []*corpus.Document{
		{Tokens: make([]api.TokenSpan, 3), Entities: []corpus.Entity{{Start: 0, End: 1, Label: "PER"}}},
		{Tokens: make([]api.TokenSpan, 5), Entities: []corpus.Entity{{Start: 0, End: 1, Label: "LOC"}, {Start: 2, End: 4, Label: "PER"}}},
	}
	stats := NewFileStats("train.parquet", docs)
	assert.Equal(t, FileStats{
		Path: "train.parquet", Documents: 2, Tokens: 8, Entities: 3,
		Labels: map[string]int{"PER": 2, "LOC": 1},
	}, stats)

	out := Files([]FileStats{stats, NewFileStats("dev.parquet", nil)})
	for _, want := range []string{"FILE", "train.parquet", "dev.parquet", "LABEL", "LOC", "PER"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "LOC"), strings.Index(out, "PER"))

	out = Files([]FileStats{NewFileStats("empty.jsonl", nil)})
	assert.NotContains(t, out, "LABEL")
}
