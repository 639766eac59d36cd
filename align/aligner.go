// Package align converts character-offset annotations into token-aligned entities.
//
// The Engine tokenizes each example and hands the tokens to an Aligner. The default Aligner,
// BILUOAligner, tags tokens with the BILUO scheme (Begin, Inside, Last, Unit, Outside) and
// reads the entities back from the tags. Annotations that don't fall on token boundaries
// are dropped and counted, never reported as errors.
package align

import (
	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/tokenizers/api"
)

// Aligner maps the annotations of a text onto its tokens.
//
// It returns the resolved entities, sorted by token start and non-overlapping, and the number
// of annotations that could not be resolved. len(entities) + misaligned == len(annotations).
type Aligner interface {
	Align(text string, tokens []api.TokenSpan, annotations []corpus.Annotation) (entities []corpus.Entity, misaligned int)
}

// OutcomeAligner is an Aligner that also reports what became of each annotation.
// The Engine uses it to count overlapping annotations separately.
type OutcomeAligner interface {
	Aligner
	AlignOutcomes(text string, tokens []api.TokenSpan, annotations []corpus.Annotation) ([]corpus.Entity, []Outcome)
}

// BILUOAligner aligns annotations through BILUO tags, see OffsetsToTags.
// The zero value counts offsets in runes and requires exact token boundaries.
type BILUOAligner struct {
	Unit OffsetUnit
	Mode Mode
}

// Assert BILUOAligner implements OutcomeAligner.
var _ OutcomeAligner = &BILUOAligner{}

// Align implements Aligner.
func (a *BILUOAligner) Align(text string, tokens []api.TokenSpan, annotations []corpus.Annotation) ([]corpus.Entity, int) {
	entities, outcomes := a.AlignOutcomes(text, tokens, annotations)
	var misaligned int
	for _, outcome := range outcomes {
		if outcome != Resolved {
			misaligned++
		}
	}
	return entities, misaligned
}

// AlignOutcomes implements OutcomeAligner.
func (a *BILUOAligner) AlignOutcomes(text string, tokens []api.TokenSpan, annotations []corpus.Annotation) ([]corpus.Entity, []Outcome) {
	unit, mode := a.Unit, a.Mode
	if unit == "" {
		unit = DefaultOffsetUnit
	}
	if mode == "" {
		mode = DefaultMode
	}
	tags, outcomes := OffsetsToTags(text, tokens, annotations, unit, mode)
	return TagsToEntities(tags), outcomes
}
