package corpus

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/nerprep/internal/files"
	"github.com/pkg/errors"
	"golang.org/x/exp/mmap"
)

// Format of a serialized partition.
type Format string

const (
	// FormatParquet stores one row per document, with nested token and entity lists.
	FormatParquet Format = "parquet"

	// FormatJSONL stores one JSON document per line.
	FormatJSONL Format = "jsonl"
)

// DefaultFormat used for partition files.
const DefaultFormat = FormatParquet

// ParseFormat converts a format name to a Format.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatParquet, FormatJSONL:
		return f, nil
	case "":
		return DefaultFormat, nil
	}
	return "", errors.Errorf("unknown corpus format %q, expected %q or %q", name, FormatParquet, FormatJSONL)
}

// Ext returns the file extension for the format, including the leading dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// FormatFromPath returns the format matching the file extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		return "", errors.Errorf("can't tell corpus format of %q: no file extension", path)
	}
	return ParseFormat(ext)
}

// Write serializes docs to w in the given format.
func Write(w io.Writer, docs []*Document, format Format) error {
	switch format {
	case FormatParquet:
		return WriteParquet(w, docs)
	case FormatJSONL:
		return WriteJSONL(w, docs)
	}
	return errors.Errorf("unknown corpus format %q", format)
}

// WriteFile atomically writes docs to filePath in the given format.
func WriteFile(filePath string, docs []*Document, format Format) error {
	err := files.WriteAtomic(filePath, func(w io.Writer) error {
		return Write(w, docs, format)
	})
	if err != nil {
		return errors.WithMessagef(err, "writing %d documents to %q", len(docs), filePath)
	}
	return nil
}

// ReadFile reads a partition file written by WriteFile. The format is taken from the file extension.
func ReadFile(filePath string) ([]*Document, error) {
	format, err := FormatFromPath(filePath)
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatParquet:
		reader, err := mmap.Open(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to mmap %s", filePath)
		}
		defer reader.Close()
		docs, err := ReadParquet(reader, int64(reader.Len()))
		if err != nil {
			return nil, errors.WithMessagef(err, "reading %q", filePath)
		}
		return docs, nil

	default:
		f, err := os.Open(filePath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open %s", filePath)
		}
		defer f.Close()
		docs, err := ReadJSONL(f)
		if err != nil {
			return nil, errors.WithMessagef(err, "reading %q", filePath)
		}
		return docs, nil
	}
}
