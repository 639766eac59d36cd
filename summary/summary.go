// Package summary renders the console tables printed after a conversion and by the stats command.
package summary

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/gomlx/nerprep/align"
	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/split"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// newTable returns a table with the common style.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(headers...)
}

// Conversion renders the alignment totals.
func Conversion(stats align.Stats) string {
	return newTable("TOT. ENTITIES", "RESOLVED ENTITIES", "TOT. DOCS", "TOT. MISALIGNED ENTITIES", "OVERLAPPING").
		Row(itoa(stats.Seen), itoa(stats.Resolved), itoa(stats.Documents), itoa(stats.Misaligned), itoa(stats.Overlapping)).
		String()
}

// Partitions renders entity and document counts per partition, in train, test, dev order.
func Partitions(result *split.Result) string {
	t := newTable("PARTITION", "ENTS PER PARTITION", "DOCS PER PARTITION", "%")
	for _, p := range []*split.Partition{&result.Train, &result.Test, &result.Dev} {
		t.Row(p.Name, itoa(p.Entities), itoa(p.NumDocuments()), fmt.Sprintf("%.2f", 100*p.Ratio))
	}
	return t.String()
}

// FileStats describes the contents of one partition file.
type FileStats struct {
	Path      string
	Documents int
	Tokens    int
	Entities  int

	// Labels counts entities per label.
	Labels map[string]int
}

// NewFileStats counts the contents of docs, read from path.
func NewFileStats(path string, docs []*corpus.Document) FileStats {
	stats := FileStats{Path: path, Documents: len(docs), Labels: make(map[string]int)}
	for _, doc := range docs {
		stats.Tokens += len(doc.Tokens)
		stats.Entities += doc.NumEntities()
		for _, e := range doc.Entities {
			stats.Labels[e.Label]++
		}
	}
	return stats
}

// Files renders one row per file, followed by a table of entities per label and file.
func Files(files []FileStats) string {
	t := newTable("FILE", "DOCS", "TOKENS", "ENTITIES")
	labelSet := make(map[string]bool)
	for _, f := range files {
		t.Row(f.Path, itoa(f.Documents), itoa(f.Tokens), itoa(f.Entities))
		for label := range f.Labels {
			labelSet[label] = true
		}
	}
	if len(labelSet) == 0 {
		return t.String()
	}

	headers := []string{"LABEL"}
	for _, f := range files {
		headers = append(headers, f.Path)
	}
	labels := newTable(headers...)
	for _, label := range slices.Sorted(maps.Keys(labelSet)) {
		row := []string{label}
		for _, f := range files {
			row = append(row, itoa(f.Labels[label]))
		}
		labels.Row(row...)
	}
	return t.String() + "\n" + labels.String()
}

func itoa(n int) string { return strconv.Itoa(n) }
