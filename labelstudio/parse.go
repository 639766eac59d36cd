package labelstudio

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultTextKey is the key of the raw text within a task's "data".
const DefaultTextKey = "reddit"

// ResultFile is the name of the export file inside a Label Studio zip archive.
const ResultFile = "result.json"

// ErrNoResultFile is returned when a zip archive has no ResultFile.
var ErrNoResultFile = errors.New("archive has no " + ResultFile)

// ParseOptions configures Parse.
type ParseOptions struct {
	// TextKey is the key of the raw text in each task's "data". Defaults to DefaultTextKey.
	TextKey string

	// CancelledWhenPresent treats a completion as cancelled whenever it has a "was_cancelled"
	// field, whatever its value. Older tooling wrote the field only on skipped tasks and
	// checked for its presence.
	CancelledWhenPresent bool
}

func (o ParseOptions) textKey() string {
	if o.TextKey == "" {
		return DefaultTextKey
	}
	return o.TextKey
}

// ValidationError reports a malformed usable task.
type ValidationError struct {
	Index  int   // position of the task in the export
	TaskID int64 // "id" of the task
	Reason string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid task #%d (id=%d): %s", e.Index, e.TaskID, e.Reason)
}

// Parse decodes a Label Studio JSON export: an array of tasks.
//
// Usable tasks (see Task.Usable) are validated here, so later stages can rely on them: the text
// must be a string under opts.TextKey, and every span label must have a start, an end and a
// label, with 0 <= start < end. Unusable tasks are not validated, since they are discarded anyway.
// A violation is reported as a *ValidationError.
func Parse(r io.Reader, opts ParseOptions) ([]Task, error) {
	var tasks []Task
	if err := json.NewDecoder(r).Decode(&tasks); err != nil {
		return nil, errors.Wrap(err, "failed to decode Label Studio export")
	}
	textKey := opts.textKey()
	for i := range tasks {
		task := &tasks[i]
		if opts.CancelledWhenPresent {
			task.markPresentAsCancelled()
		}
		if err := task.resolve(textKey); err != nil {
			if !task.Usable() {
				klog.V(2).Infof("ignoring malformed unusable task #%d (id=%d): %v", i, task.ID, err)
				continue
			}
			return nil, &ValidationError{Index: i, TaskID: task.ID, Reason: err.Error()}
		}
	}
	klog.V(1).Infof("parsed %d tasks", len(tasks))
	return tasks, nil
}

func (t *Task) markPresentAsCancelled() {
	for j := range t.Completions {
		if t.Completions[j].WasCancelled != nil {
			cancelled := true
			t.Completions[j].WasCancelled = &cancelled
		}
	}
}

// resolve extracts the text and validates the span labels of the task.
func (t *Task) resolve(textKey string) error {
	raw, found := t.Data[textKey]
	if !found {
		return errors.Errorf("data has no %q field", textKey)
	}
	if err := json.Unmarshal(raw, &t.Text); err != nil {
		return errors.Errorf("data field %q is not a string", textKey)
	}
	for _, completion := range t.Completions {
		for j, result := range completion.Result {
			if !result.IsSpanLabel() {
				continue
			}
			if err := result.Value.validate(); err != nil {
				return errors.WithMessagef(err, "completion %d, result #%d", completion.ID, j)
			}
		}
	}
	return nil
}

// ReadArchive returns the contents of ResultFile inside the zip archive at zipPath.
func ReadArchive(zipPath string) ([]byte, error) {
	archive, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open archive %q", zipPath)
	}
	defer archive.Close()

	f, err := archive.Open(ResultFile)
	if err != nil {
		return nil, errors.Wrapf(ErrNoResultFile, "%q", zipPath)
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s from %q", ResultFile, zipPath)
	}
	return content, nil
}

// Load reads and parses an export, either a zip archive holding ResultFile or a plain JSON file.
func Load(path string, opts ParseOptions) ([]Task, error) {
	var content []byte
	var err error
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".zip":
		content, err = ReadArchive(path)
	case ".json":
		content, err = os.ReadFile(path)
		if err != nil {
			err = errors.Wrapf(err, "failed to read %q", path)
		}
	default:
		return nil, errors.Errorf("can't load %q: expected a .zip archive or a .json export", path)
	}
	if err != nil {
		return nil, err
	}
	tasks, err := Parse(bytes.NewReader(content), opts)
	if err != nil {
		return nil, errors.WithMessagef(err, "loading %q", path)
	}
	return tasks, nil
}
