// Package labelstudio reads Label Studio JSON exports of named-entity annotations and selects
// the tasks that can be turned into training examples.
//
// Only the fields needed downstream are decoded:
//
//	[{"id": 1,
//	  "data": {"reddit": "raw text"},
//	  "completions": [{"result": [{"type": "labels", "value": {"start": 0, "end": 5, "labels": ["PER"]}}],
//	                   "was_cancelled": false}]}]
//
// Newer exports name the completions list "annotations"; both are accepted.
package labelstudio

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// ResultTypeLabels is the result type of span labels.
const ResultTypeLabels = "labels"

// Task is one unit of annotation work: a text and the completions annotators produced for it.
type Task struct {
	ID          int64
	Data        map[string]json.RawMessage
	Completions []Completion

	// Text is the raw text, extracted from Data by Parse.
	Text string
}

// rawTask mirrors the export record.
type rawTask struct {
	ID          int64                      `json:"id"`
	Data        map[string]json.RawMessage `json:"data"`
	Completions []Completion               `json:"completions"`
	Annotations []Completion               `json:"annotations"`
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw rawTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.ID = raw.ID
	t.Data = raw.Data
	t.Completions = raw.Completions
	if t.Completions == nil {
		t.Completions = raw.Annotations
	}
	return nil
}

// Usable reports whether the task can become an example: it must have exactly one completion,
// and that completion must not be cancelled. Tasks with several completions are ambiguous,
// and this package doesn't choose between annotators.
func (t *Task) Usable() bool {
	return len(t.Completions) == 1 && !t.Completions[0].Cancelled()
}

// Completion is one annotator's pass over a task.
type Completion struct {
	ID           int64    `json:"id"`
	Result       []Result `json:"result"`
	WasCancelled *bool    `json:"was_cancelled"`
}

// Cancelled reports whether the annotator skipped the task.
func (c *Completion) Cancelled() bool {
	return c.WasCancelled != nil && *c.WasCancelled
}

// Result is one region of a completion.
type Result struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	FromName string `json:"from_name"`
	ToName   string `json:"to_name"`
	Value    Value  `json:"value"`
}

// IsSpanLabel reports whether the result labels a text span. Results without a type are
// assumed to be span labels, as in older exports.
func (r *Result) IsSpanLabel() bool {
	return r.Type == "" || r.Type == ResultTypeLabels
}

// Value holds the labeled span of a Result.
type Value struct {
	Start  *int     `json:"start"`
	End    *int     `json:"end"`
	Text   string   `json:"text"`
	Labels []string `json:"labels"`
}

// validate checks the span label is complete: start and end set, 0 <= start < end and at
// least one label.
func (v *Value) validate() error {
	switch {
	case v.Start == nil:
		return errors.Errorf("missing start")
	case v.End == nil:
		return errors.Errorf("missing end")
	case *v.Start < 0:
		return errors.Errorf("negative start %d", *v.Start)
	case *v.Start >= *v.End:
		return errors.Errorf("start %d not before end %d", *v.Start, *v.End)
	case len(v.Labels) == 0:
		return errors.Errorf("no labels")
	}
	return nil
}
