package align

import (
	"sort"
	"strings"

	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/pkg/errors"
)

// TagKind is the position of a token relative to the entity covering it.
type TagKind uint8

const (
	// Outside: the token is not part of any entity.
	Outside TagKind = iota

	// Begin is the first token of a multi-token entity.
	Begin

	// Inside is a middle token of a multi-token entity.
	Inside

	// Last is the last token of a multi-token entity.
	Last

	// Unit is a single-token entity.
	Unit

	// Missing marks tokens under an annotation that could not be aligned: their tag is unknown.
	Missing
)

var tagPrefixes = [...]string{Outside: "O", Begin: "B", Inside: "I", Last: "L", Unit: "U", Missing: "-"}

// Tag is the BILUO tag of one token.
type Tag struct {
	Kind  TagKind
	Label string // empty for Outside and Missing
}

// String returns the conventional notation: "O", "-", or the kind prefix and the label, as in "B-PER".
func (t Tag) String() string {
	if t.Kind == Outside || t.Kind == Missing {
		return tagPrefixes[t.Kind]
	}
	return tagPrefixes[t.Kind] + "-" + t.Label
}

// ParseTag parses the notation returned by Tag.String.
func ParseTag(s string) (Tag, error) {
	switch s {
	case "O":
		return Tag{Kind: Outside}, nil
	case "-":
		return Tag{Kind: Missing}, nil
	}
	prefix, label, found := strings.Cut(s, "-")
	if !found || label == "" {
		return Tag{}, errors.Errorf("invalid BILUO tag %q", s)
	}
	for kind := Begin; kind <= Unit; kind++ {
		if tagPrefixes[kind] == prefix {
			return Tag{Kind: kind, Label: label}, nil
		}
	}
	return Tag{}, errors.Errorf("invalid BILUO tag %q: unknown prefix %q", s, prefix)
}

// Mode is how an annotation's byte span is snapped to token boundaries.
type Mode string

const (
	// ModeStrict requires the span to start at a token start and end at a token end.
	ModeStrict Mode = "strict"

	// ModeContract snaps inward to the tokens fully inside the span.
	ModeContract Mode = "contract"

	// ModeExpand snaps outward to every token the span touches.
	ModeExpand Mode = "expand"

	// DefaultMode is used when no mode is configured.
	DefaultMode = ModeStrict
)

// ParseMode returns the Mode named by s (case-insensitive). An empty s returns DefaultMode.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return DefaultMode, nil
	}
	switch mode := Mode(strings.ToLower(s)); mode {
	case ModeStrict, ModeContract, ModeExpand:
		return mode, nil
	}
	return "", errors.Errorf("unknown alignment mode %q: valid values are %q, %q and %q", s, ModeStrict, ModeContract, ModeExpand)
}

// Outcome is what became of one annotation during alignment.
type Outcome uint8

const (
	// Resolved: the annotation became an entity.
	Resolved Outcome = iota

	// Misaligned: the annotation doesn't map to whole tokens.
	Misaligned

	// Overlapping: the annotation aligned, but some of its tokens belong to an earlier entity.
	// It's dropped, and counts as misaligned too.
	Overlapping
)

// String implements fmt.Stringer.
func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case Misaligned:
		return "misaligned"
	case Overlapping:
		return "overlapping"
	}
	return "unknown"
}

// OffsetsToTags tags tokens with the annotations, returning one tag per token and one outcome
// per annotation.
//
// Annotation offsets are counted in unit and snapped to tokens according to mode. Annotations
// are processed in order and the first one to claim a token keeps it: later annotations
// overlapping a resolved entity are dropped. Tokens under a misaligned annotation are tagged
// Missing, unless an entity covers them; Missing tokens don't block later annotations.
//
// tokens must be sorted and non-overlapping byte spans of text.
func OffsetsToTags(text string, tokens []api.TokenSpan, annotations []corpus.Annotation,
	unit OffsetUnit, mode Mode) ([]Tag, []Outcome) {
	tags := make([]Tag, len(tokens))
	claimed := make([]bool, len(tokens))
	outcomes := make([]Outcome, len(annotations))
	table := newOffsetTable(text, unit)

	for i, ann := range annotations {
		start, okStart := table.toByte(ann.Start)
		end, okEnd := table.toByte(ann.End)
		if !okStart || !okEnd || start >= end {
			outcomes[i] = Misaligned
			continue
		}

		first, last := snap(tokens, start, end, mode)
		if first >= last {
			outcomes[i] = Misaligned
			touchedFirst, touchedLast := snap(tokens, start, end, ModeExpand)
			for j := touchedFirst; j < touchedLast; j++ {
				if !claimed[j] {
					tags[j] = Tag{Kind: Missing}
				}
			}
			continue
		}

		overlaps := false
		for j := first; j < last; j++ {
			if claimed[j] {
				overlaps = true
				break
			}
		}
		if overlaps {
			outcomes[i] = Overlapping
			continue
		}

		outcomes[i] = Resolved
		for j := first; j < last; j++ {
			claimed[j] = true
			kind := Inside
			switch {
			case last-first == 1:
				kind = Unit
			case j == first:
				kind = Begin
			case j == last-1:
				kind = Last
			}
			tags[j] = Tag{Kind: kind, Label: ann.Label}
		}
	}
	return tags, outcomes
}

// snap returns the range [first, last) of tokens selected for the byte span [start, end).
// An empty range means the span can't be aligned.
func snap(tokens []api.TokenSpan, start, end int, mode Mode) (first, last int) {
	switch mode {
	case ModeExpand:
		// Tokens touching the span: End > start and Start < end.
		first = sort.Search(len(tokens), func(i int) bool { return tokens[i].End > start })
		last = sort.Search(len(tokens), func(i int) bool { return tokens[i].Start >= end })
	default:
		// Tokens fully inside the span: Start >= start and End <= end.
		first = sort.Search(len(tokens), func(i int) bool { return tokens[i].Start >= start })
		last = sort.Search(len(tokens), func(i int) bool { return tokens[i].End > end })
		if mode != ModeContract && first < last &&
			(tokens[first].Start != start || tokens[last-1].End != end) {
			return 0, 0
		}
	}
	if first > last {
		return 0, 0
	}
	return first, last
}

// TagsToEntities reads the entities back from tags, in increasing token order.
//
// Malformed sequences are tolerated: an entity is only emitted for a Unit tag, or a Begin tag
// followed by Inside tags and a Last tag, all with the same label. Anything else is skipped.
func TagsToEntities(tags []Tag) []corpus.Entity {
	entities := make([]corpus.Entity, 0)
	open := -1 // index of the pending Begin tag, -1 if none.
	for i, tag := range tags {
		switch tag.Kind {
		case Unit:
			open = -1
			entities = append(entities, corpus.Entity{Start: i, End: i + 1, Label: tag.Label})
		case Begin:
			open = i
		case Inside:
			if open >= 0 && tags[open].Label != tag.Label {
				open = -1
			}
		case Last:
			if open >= 0 && tags[open].Label == tag.Label {
				entities = append(entities, corpus.Entity{Start: open, End: i + 1, Label: tag.Label})
			}
			open = -1
		default:
			open = -1
		}
	}
	return entities
}
