// Package pipeline runs a whole conversion: it loads a Label Studio export, keeps the usable
// tasks, aligns their annotations to tokens, splits the documents into train, dev and test
// partitions and writes one file per partition.
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/gomlx/nerprep/align"
	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/internal/config"
	"github.com/gomlx/nerprep/internal/files"
	"github.com/gomlx/nerprep/labelstudio"
	"github.com/gomlx/nerprep/split"
	"github.com/gomlx/nerprep/tokenizers"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Options configures Run.
type Options struct {
	// Input is the export: a .zip archive or a .json file.
	Input string

	// OutDir receives the partition files. It is created if missing.
	OutDir string

	// DevRatio and TestRatio are the target shares of the entities, see split.Options.
	DevRatio, TestRatio float64

	// Seed of the shuffle, usually split.DefaultSeed.
	Seed uint64

	Parse     labelstudio.ParseOptions
	Tokenizer tokenizers.Config

	// Aligner maps annotations to tokens. If nil, a default align.BILUOAligner is used.
	Aligner align.Aligner

	// Format of the partition files. Defaults to corpus.DefaultFormat.
	Format corpus.Format
}

// OptionsFromConfig returns the Options for converting input into outDir as configured by c.
// c should have been validated.
func OptionsFromConfig(c *config.Config, input, outDir string) (Options, error) {
	unit, err := align.ParseOffsetUnit(c.Alignment.Offsets)
	if err != nil {
		return Options{}, err
	}
	mode, err := align.ParseMode(c.Alignment.Mode)
	if err != nil {
		return Options{}, err
	}
	format, err := corpus.ParseFormat(c.Output.Format)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Input:     input,
		OutDir:    outDir,
		DevRatio:  c.Split.DevRatio,
		TestRatio: c.Split.TestRatio,
		Seed:      split.DefaultSeed,
		Parse:     labelstudio.ParseOptions{TextKey: c.TextKey, CancelledWhenPresent: c.CancelledWhenPresent},
		Tokenizer: c.Tokenizer,
		Aligner:   &align.BILUOAligner{Unit: unit, Mode: mode},
		Format:    format,
	}, nil
}

// Report describes a run.
type Report struct {
	// Tasks is the number of tasks in the export, Examples the number of usable ones.
	Tasks, Examples int

	Stats align.Stats
	Split *split.Result

	// Files are the written partition files, in train, dev, test order.
	Files []string
}

// Run executes the conversion described by opts.
//
// If the split fails, the returned Report still holds the alignment statistics, and no file
// is written.
func Run(opts Options) (*Report, error) {
	format := opts.Format
	if format == "" {
		format = corpus.DefaultFormat
	}
	tok, err := tokenizers.New(opts.Tokenizer)
	if err != nil {
		return nil, errors.WithMessage(err, "failed to create tokenizer")
	}

	tasks, err := labelstudio.Load(opts.Input, opts.Parse)
	if err != nil {
		return nil, err
	}
	examples := labelstudio.Filter(tasks)
	report := &Report{Tasks: len(tasks), Examples: len(examples)}
	klog.Infof("%d of %d tasks usable", report.Examples, report.Tasks)

	var docs []*corpus.Document
	docs, report.Stats = align.NewEngine(tok, opts.Aligner).ConvertAll(examples)
	klog.Infof("%d documents, %d entities, %d misaligned", report.Stats.Documents, report.Stats.Resolved, report.Stats.Misaligned)

	report.Split, err = split.Split(docs, corpus.CountEntities(docs), split.Options{
		DevRatio:  opts.DevRatio,
		TestRatio: opts.TestRatio,
		Seed:      opts.Seed,
	})
	if err != nil {
		return report, errors.WithMessage(err, "failed to split documents")
	}

	if !files.Exists(opts.OutDir) {
		if err := os.MkdirAll(opts.OutDir, files.DefaultDirCreationPerm); err != nil {
			return report, errors.Wrapf(err, "failed to create output directory %q", opts.OutDir)
		}
	}
	for _, p := range report.Split.Partitions() {
		path := filepath.Join(opts.OutDir, p.Name+format.Ext())
		if err := corpus.WriteFile(path, p.Documents, format); err != nil {
			return report, err
		}
		klog.V(1).Infof("wrote %d documents to %q", p.NumDocuments(), path)
		report.Files = append(report.Files, path)
	}
	return report, nil
}
