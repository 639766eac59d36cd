// nerprep converts Label Studio named-entity exports into token-aligned train, dev and test
// partition files.
//
// Usage:
//
//	nerprep [-v=N] convert [flags] ARCHIVE OUT_DIR [TEST_SIZE DEV_SIZE]
//	nerprep [-v=N] stats FILE...
//
// ARCHIVE is a Label Studio export, either the .zip archive or its result.json. TEST_SIZE and
// DEV_SIZE are the target shares of the entities for the test and dev partitions; they can
// also come from the configuration file or the NERPREP_TEST_SIZE and NERPREP_DEV_SIZE variables.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/internal/config"
	"github.com/gomlx/nerprep/pipeline"
	"github.com/gomlx/nerprep/summary"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage:\n")
	fmt.Fprintf(out, "  %s [global flags] convert [flags] ARCHIVE OUT_DIR [TEST_SIZE DEV_SIZE]\n", os.Args[0])
	fmt.Fprintf(out, "  %s [global flags] stats FILE...\n\nGlobal flags:\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	klog.InitFlags(nil)
	flag.Usage = usage
	flag.Parse()
	defer klog.Flush()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}
	var err error
	switch args[0] {
	case "convert":
		err = convert(os.Stdout, args[1:])
	case "stats":
		err = stats(os.Stdout, args[1:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		klog.Exitf("%s failed: %+v", args[0], err)
	}
}

// convertFlags are the flags of the convert command. Empty values leave the configuration alone.
type convertFlags struct {
	config, textKey, tokenizer, preTokenizer, tokenizerFile, offsets, alignment, format string

	cancelledWhenPresent bool
}

func newConvertFlagSet(f *convertFlags) *flag.FlagSet {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	fs.StringVar(&f.config, "config", "", "YAML configuration file.")
	fs.StringVar(&f.textKey, "text-key", "", `Key of the text in each task's "data" (default "reddit").`)
	fs.StringVar(&f.tokenizer, "tokenizer", "", `Tokenizer kind: "pretokenizer" (default), "huggingface" or "sentencepiece".`)
	fs.StringVar(&f.preTokenizer, "pre-tokenizer", "", `Pre-tokenizer type for -tokenizer=pretokenizer (default "BertPreTokenizer").`)
	fs.StringVar(&f.tokenizerFile, "tokenizer-file", "", "tokenizer.json or tokenizer.model file for the other tokenizer kinds.")
	fs.StringVar(&f.offsets, "offsets", "", `Unit of the annotation offsets: "runes" (default), "utf16" or "bytes".`)
	fs.StringVar(&f.alignment, "alignment", "", `Alignment mode: "strict" (default), "contract" or "expand".`)
	fs.BoolVar(&f.cancelledWhenPresent, "cancelled-when-present", false, `Treat any "was_cancelled" field as a cancellation, whatever its value.`)
	fs.StringVar(&f.format, "format", "", `Format of the partition files: "parquet" (default) or "jsonl".`)
	return fs
}

// parseConvertArgs loads the configuration and applies the convert flags and arguments on top.
// It returns the validated configuration, the input and the output directory.
func parseConvertArgs(args []string) (*config.Config, string, string, error) {
	var f convertFlags
	fs := newConvertFlagSet(&f)
	if err := fs.Parse(args); err != nil {
		return nil, "", "", err
	}
	positional := fs.Args()
	if len(positional) != 2 && len(positional) != 4 {
		return nil, "", "", errors.Errorf("convert takes ARCHIVE OUT_DIR [TEST_SIZE DEV_SIZE], got %d arguments", len(positional))
	}

	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, "", "", err
	}
	for _, override := range []struct {
		value string
		field *string
	}{
		{f.textKey, &cfg.TextKey},
		{f.tokenizer, &cfg.Tokenizer.Kind},
		{f.preTokenizer, &cfg.Tokenizer.PreTokenizer},
		{f.tokenizerFile, &cfg.Tokenizer.File},
		{f.offsets, &cfg.Alignment.Offsets},
		{f.alignment, &cfg.Alignment.Mode},
		{f.format, &cfg.Output.Format},
	} {
		if override.value != "" {
			*override.field = override.value
		}
	}
	if f.cancelledWhenPresent {
		cfg.CancelledWhenPresent = true
	}
	if len(positional) == 4 {
		if cfg.Split.TestRatio, err = strconv.ParseFloat(positional[2], 64); err != nil {
			return nil, "", "", errors.Wrapf(err, "invalid TEST_SIZE %q", positional[2])
		}
		if cfg.Split.DevRatio, err = strconv.ParseFloat(positional[3], 64); err != nil {
			return nil, "", "", errors.Wrapf(err, "invalid DEV_SIZE %q", positional[3])
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", "", err
	}
	return cfg, positional[0], positional[1], nil
}

func convert(out io.Writer, args []string) error {
	cfg, input, outDir, err := parseConvertArgs(args)
	if err != nil {
		return err
	}
	opts, err := pipeline.OptionsFromConfig(cfg, input, outDir)
	if err != nil {
		return err
	}
	report, err := pipeline.Run(opts)
	if report != nil {
		fmt.Fprintln(out, summary.Conversion(report.Stats))
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, summary.Partitions(report.Split))
	for _, path := range report.Files {
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}

func stats(out io.Writer, paths []string) error {
	if len(paths) == 0 {
		return errors.New("stats takes at least one partition file")
	}
	var all []summary.FileStats
	for _, path := range paths {
		docs, err := corpus.ReadFile(path)
		if err != nil {
			return err
		}
		all = append(all, summary.NewFileStats(path, docs))
	}
	fmt.Fprintln(out, summary.Files(all))
	return nil
}
