// Package corpus holds the annotated document model shared by the alignment engine and the
// partition splitter, and the on-disk formats partitions are persisted in.
package corpus

import (
	"fmt"

	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/google/uuid"
)

// Annotation is a labeled character span, as produced by the annotation tool.
// Start and End are 0-based character offsets into the task text, Start < End.
type Annotation struct {
	Start int
	End   int
	Label string
}

// Example is the unit handed to the alignment engine: one text with its annotations.
type Example struct {
	TaskID      int64
	Text        string
	Annotations []Annotation
}

// Entity is a labeled token span within a Document.
// Start is the index of its first token, End is one past its last token.
type Entity struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
}

// Len returns the number of tokens in the entity.
func (e Entity) Len() int {
	return e.End - e.Start
}

// String implements fmt.Stringer.
func (e Entity) String() string {
	return fmt.Sprintf("%s[%d:%d]", e.Label, e.Start, e.End)
}

// Document is a tokenized text with its token-aligned entities.
// Entities are sorted by Start and never overlap.
type Document struct {
	ID       string          `json:"id"`
	TaskID   int64           `json:"task_id"`
	Text     string          `json:"text"`
	Tokens   []api.TokenSpan `json:"tokens"`
	Entities []Entity        `json:"entities"`
}

// NumEntities returns the number of entities in the document.
func (d *Document) NumEntities() int {
	return len(d.Entities)
}

// Token returns the text of the i-th token.
func (d *Document) Token(i int) string {
	span := d.Tokens[i]
	return d.Text[span.Start:span.End]
}

// EntityText returns the original text covered by the entity, including inner whitespace.
func (d *Document) EntityText(e Entity) string {
	return d.Text[d.Tokens[e.Start].Start:d.Tokens[e.End-1].End]
}

// CountEntities returns the number of entities across docs.
func CountEntities(docs []*Document) int {
	var total int
	for _, doc := range docs {
		total += doc.NumEntities()
	}
	return total
}

// namespace for document IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/gomlx/nerprep/document"))

// DocumentID returns a stable identifier for the document built from the given task and text:
// the same task always gets the same ID, across runs and machines.
func DocumentID(taskID int64, text string) string {
	return uuid.NewSHA1(namespace, fmt.Appendf(nil, "%d\x00%s", taskID, text)).String()
}
