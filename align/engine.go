package align

import (
	"slices"

	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/tokenizers/api"
	"k8s.io/klog/v2"
)

// Counts of the annotations of one example.
type Counts struct {
	Seen        int // annotations in the example
	Resolved    int // annotations that became entities
	Misaligned  int // annotations dropped, including overlapping ones
	Overlapping int // annotations dropped because an earlier entity claimed their tokens
}

// Stats aggregates Counts over a corpus. Seen == Resolved + Misaligned always holds.
type Stats struct {
	Seen        int
	Resolved    int
	Misaligned  int
	Overlapping int
	Documents   int
}

// Add accumulates the counts of one more document.
func (s *Stats) Add(c Counts) {
	s.Seen += c.Seen
	s.Resolved += c.Resolved
	s.Misaligned += c.Misaligned
	s.Overlapping += c.Overlapping
	s.Documents++
}

// Engine turns examples into documents: it tokenizes the text and aligns the annotations to
// the tokens.
type Engine struct {
	Tokenizer api.TokenizerWithSpans
	Aligner   Aligner
}

// NewEngine returns an Engine using the given tokenizer and aligner.
// If aligner is nil, a default BILUOAligner is used.
func NewEngine(tokenizer api.TokenizerWithSpans, aligner Aligner) *Engine {
	if aligner == nil {
		aligner = &BILUOAligner{}
	}
	return &Engine{Tokenizer: tokenizer, Aligner: aligner}
}

// Convert builds the document of one example. It never fails: annotations that can't be
// aligned are left out of the document and counted.
func (e *Engine) Convert(example corpus.Example) (*corpus.Document, Counts) {
	encoding := e.Tokenizer.EncodeWithSpans(example.Text)
	tokens := encoding.Spans
	if tokens == nil {
		tokens = make([]api.TokenSpan, 0)
	}

	var entities []corpus.Entity
	counts := Counts{Seen: len(example.Annotations)}
	if outcomeAligner, ok := e.Aligner.(OutcomeAligner); ok {
		var outcomes []Outcome
		entities, outcomes = outcomeAligner.AlignOutcomes(example.Text, tokens, example.Annotations)
		for i, outcome := range outcomes {
			switch outcome {
			case Overlapping:
				counts.Overlapping++
				counts.Misaligned++
			case Misaligned:
				counts.Misaligned++
			default:
				continue
			}
			if klog.V(2).Enabled() {
				ann := example.Annotations[i]
				klog.Infof("task id=%d: dropped %s annotation %s[%d:%d] %q", example.TaskID, outcome,
					ann.Label, ann.Start, ann.End, annotatedText(example.Text, ann))
			}
		}
	} else {
		entities, counts.Misaligned = e.Aligner.Align(example.Text, tokens, example.Annotations)
		if counts.Misaligned > 0 {
			klog.V(2).Infof("task id=%d: dropped %d misaligned annotations", example.TaskID, counts.Misaligned)
		}
	}
	if entities == nil {
		entities = make([]corpus.Entity, 0)
	}
	slices.SortStableFunc(entities, func(a, b corpus.Entity) int { return a.Start - b.Start })
	counts.Resolved = len(entities)

	doc := &corpus.Document{
		ID:       corpus.DocumentID(example.TaskID, example.Text),
		TaskID:   example.TaskID,
		Text:     example.Text,
		Tokens:   tokens,
		Entities: entities,
	}
	return doc, counts
}

// ConvertAll converts every example, in order, and returns the documents with the aggregated
// counts.
func (e *Engine) ConvertAll(examples []corpus.Example) ([]*corpus.Document, Stats) {
	docs := make([]*corpus.Document, 0, len(examples))
	var stats Stats
	for _, example := range examples {
		doc, counts := e.Convert(example)
		docs = append(docs, doc)
		stats.Add(counts)
	}
	klog.V(1).Infof("aligned %d documents: %d of %d annotations resolved, %d misaligned (%d overlapping)",
		stats.Documents, stats.Resolved, stats.Seen, stats.Misaligned, stats.Overlapping)
	return docs, stats
}

// annotatedText returns the annotated text for logging, assuming rune offsets; empty if they
// are out of range.
func annotatedText(text string, ann corpus.Annotation) string {
	runes := []rune(text)
	if ann.Start < 0 || ann.End > len(runes) || ann.Start >= ann.End {
		return ""
	}
	return string(runes[ann.Start:ann.End])
}
