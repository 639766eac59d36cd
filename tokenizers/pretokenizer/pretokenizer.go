// Package pretokenizer implements span-preserving pre-tokenizers modeled on the
// "pre_tokenizer" section of HuggingFace's tokenizer.json format.
//
// Unlike a full tokenizer it has no vocabulary: it only cuts the text into words
// and punctuation and reports the byte span of each piece, which is what entity
// alignment needs. Characters are never split from their combining marks, since
// text is segmented on Unicode normalization boundaries.
package pretokenizer

import (
	"encoding/json"
	"os"
	"unicode"
	"unicode/utf8"

	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/pkg/errors"
	"golang.org/x/text/unicode/norm"
	"k8s.io/klog/v2"
)

// Pre-tokenizer types, named as in tokenizer.json.
const (
	TypeWhitespace      = "Whitespace"
	TypeWhitespaceSplit = "WhitespaceSplit"
	TypeBert            = "BertPreTokenizer"
	TypePunctuation     = "Punctuation"
	TypeDigits          = "Digits"
	TypeSequence        = "Sequence"
)

// Delimiter behaviors, named as in tokenizer.json.
const (
	BehaviorRemoved            = "removed"
	BehaviorIsolated           = "isolated"
	BehaviorContiguous         = "contiguous"
	BehaviorMergedWithPrevious = "merged_with_previous"
	BehaviorMergedWithNext     = "merged_with_next"
)

// Config represents the pre-tokenizer configuration.
type Config struct {
	Type             string   `json:"type"`
	PreTokenizers    []Config `json:"pretokenizers"`
	Behavior         string   `json:"behavior"`
	IndividualDigits bool     `json:"individual_digits"`
}

// tokenizerJSON is the subset of tokenizer.json we care about.
type tokenizerJSON struct {
	PreTokenizer *Config `json:"pre_tokenizer"`
}

// splitFn splits one span of text into sub-spans.
type splitFn func(text string, span api.TokenSpan) []api.TokenSpan

// Tokenizer implements api.TokenizerWithSpans.
type Tokenizer struct {
	config Config
	split  splitFn
}

// Compile time assert that Tokenizer implements api.TokenizerWithSpans interface.
var _ api.TokenizerWithSpans = &Tokenizer{}

// New creates a pre-tokenizer of the given type with default settings.
func New(preTokenizerType string) (*Tokenizer, error) {
	return NewFromConfig(Config{Type: preTokenizerType})
}

// NewFromConfig creates a pre-tokenizer from its configuration.
func NewFromConfig(config Config) (*Tokenizer, error) {
	split, err := compile(&config)
	if err != nil {
		return nil, err
	}
	return &Tokenizer{config: config, split: split}, nil
}

// NewFromContent creates a pre-tokenizer from the contents of a HuggingFace tokenizer.json file.
// Only the "pre_tokenizer" section is used. If it is null, text is split on whitespace.
func NewFromContent(content []byte) (*Tokenizer, error) {
	var tj tokenizerJSON
	if err := json.Unmarshal(content, &tj); err != nil {
		return nil, errors.Wrapf(err, "failed to parse tokenizer.json")
	}
	if tj.PreTokenizer == nil {
		klog.V(1).Infof("tokenizer.json has no pre_tokenizer, splitting on whitespace")
		return New(TypeWhitespaceSplit)
	}
	return NewFromConfig(*tj.PreTokenizer)
}

// NewFromFile creates a pre-tokenizer from a local tokenizer.json file path.
func NewFromFile(filePath string) (*Tokenizer, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tokenizer.json file %q", filePath)
	}
	return NewFromContent(content)
}

// Config returns the configuration the tokenizer was built from.
func (t *Tokenizer) Config() Config {
	return t.config
}

// EncodeWithSpans returns the byte spans of the pre-tokens of text. IDs is always nil.
func (t *Tokenizer) EncodeWithSpans(text string) api.EncodingResult {
	if text == "" {
		return api.EncodingResult{}
	}
	return api.EncodingResult{Spans: t.split(text, api.TokenSpan{Start: 0, End: len(text)})}
}

// Tokenize returns the pre-tokens of text as strings, nil if there are none.
func (t *Tokenizer) Tokenize(text string) []string {
	spans := t.EncodeWithSpans(text).Spans
	if len(spans) == 0 {
		return nil
	}
	words := make([]string, len(spans))
	for i, span := range spans {
		words[i] = text[span.Start:span.End]
	}
	return words
}

func compile(c *Config) (splitFn, error) {
	switch c.Type {
	case TypeWhitespace:
		return splitWordsAndSymbols, nil
	case TypeWhitespaceSplit:
		return delimited(isSpaceSegment, BehaviorRemoved), nil
	case TypeBert:
		onSpace := delimited(isSpaceSegment, BehaviorRemoved)
		onPunct := delimited(isPunctSegment, BehaviorIsolated)
		return chain(onSpace, onPunct), nil
	case TypePunctuation:
		behavior := c.Behavior
		if behavior == "" {
			behavior = BehaviorIsolated
		}
		if err := checkBehavior(behavior); err != nil {
			return nil, err
		}
		return delimited(isPunctSegment, behavior), nil
	case TypeDigits:
		if c.IndividualDigits {
			return delimited(isDigitSegment, BehaviorIsolated), nil
		}
		return delimited(isDigitSegment, BehaviorContiguous), nil
	case TypeSequence:
		if len(c.PreTokenizers) == 0 {
			return nil, errors.Errorf("pre-tokenizer %q requires at least one child", TypeSequence)
		}
		fns := make([]splitFn, 0, len(c.PreTokenizers))
		for i := range c.PreTokenizers {
			fn, err := compile(&c.PreTokenizers[i])
			if err != nil {
				return nil, errors.WithMessagef(err, "in %s element #%d", TypeSequence, i)
			}
			fns = append(fns, fn)
		}
		return chain(fns...), nil
	case "":
		return nil, errors.Errorf("pre-tokenizer type not set")
	default:
		return nil, errors.Errorf("pre-tokenizer type %q not supported", c.Type)
	}
}

func checkBehavior(behavior string) error {
	switch behavior {
	case BehaviorRemoved, BehaviorIsolated, BehaviorContiguous, BehaviorMergedWithPrevious, BehaviorMergedWithNext:
		return nil
	}
	return errors.Errorf("unknown delimiter behavior %q", behavior)
}

// chain applies each splitFn to every span produced by the previous one.
func chain(fns ...splitFn) splitFn {
	return func(text string, span api.TokenSpan) []api.TokenSpan {
		spans := []api.TokenSpan{span}
		for _, fn := range fns {
			var next []api.TokenSpan
			for _, s := range spans {
				next = append(next, fn(text, s)...)
			}
			spans = next
		}
		return spans
	}
}

// segment is a starter rune plus its trailing non-starters (combining marks).
type segment struct {
	start, end int
	first      rune
}

// segmentsOf cuts text[span.Start:span.End] on normalization boundaries.
func segmentsOf(text string, span api.TokenSpan) []segment {
	segs := make([]segment, 0, span.Len())
	pos := span.Start
	for pos < span.End {
		rest := text[pos:span.End]
		n := norm.NFC.NextBoundaryInString(rest, true)
		if n <= 0 || n > len(rest) {
			n = len(rest)
		}
		r, _ := utf8.DecodeRuneInString(rest)
		segs = append(segs, segment{start: pos, end: pos + n, first: r})
		pos += n
	}
	return segs
}

func isSpaceSegment(s segment) bool { return isWhitespace(s.first) }
func isPunctSegment(s segment) bool { return isPunctuation(s.first) }
func isDigitSegment(s segment) bool { return unicode.IsDigit(s.first) }

// delimited returns a splitFn cutting around delimiter segments according to behavior.
func delimited(isDelim func(segment) bool, behavior string) splitFn {
	return func(text string, span api.TokenSpan) []api.TokenSpan {
		var (
			out       []api.TokenSpan
			cur       = api.TokenSpan{Start: -1}
			prevDelim bool
		)
		flush := func() {
			if cur.Start >= 0 {
				out = append(out, cur)
				cur.Start = -1
			}
		}
		extend := func(s segment) {
			if cur.Start < 0 {
				cur = api.TokenSpan{Start: s.start, End: s.end}
				return
			}
			cur.End = s.end
		}

		for _, s := range segmentsOf(text, span) {
			delim := isDelim(s)
			if !delim {
				if behavior == BehaviorContiguous && prevDelim {
					flush()
				}
				extend(s)
				prevDelim = false
				continue
			}
			switch behavior {
			case BehaviorRemoved:
				flush()
			case BehaviorIsolated:
				flush()
				out = append(out, api.TokenSpan{Start: s.start, End: s.end})
			case BehaviorContiguous:
				if !prevDelim {
					flush()
				}
				extend(s)
			case BehaviorMergedWithPrevious:
				extend(s)
				flush()
			case BehaviorMergedWithNext:
				flush()
				extend(s)
			}
			prevDelim = true
		}
		flush()
		return out
	}
}

// splitWordsAndSymbols mimics the `\w+|[^\w\s]+` rule: runs of word characters and
// runs of other non-space characters become separate tokens.
func splitWordsAndSymbols(text string, span api.TokenSpan) []api.TokenSpan {
	var out []api.TokenSpan
	cur := api.TokenSpan{Start: -1}
	curWord := false
	for _, s := range segmentsOf(text, span) {
		if isWhitespace(s.first) {
			if cur.Start >= 0 {
				out = append(out, cur)
				cur.Start = -1
			}
			continue
		}
		word := isWordChar(s.first)
		if cur.Start >= 0 && word != curWord {
			out = append(out, cur)
			cur.Start = -1
		}
		if cur.Start < 0 {
			cur = api.TokenSpan{Start: s.start, End: s.end}
			curWord = word
			continue
		}
		cur.End = s.end
	}
	if cur.Start >= 0 {
		out = append(out, cur)
	}
	return out
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.IsSpace(r) || unicode.Is(unicode.Zs, r)
}

func isPunctuation(r rune) bool {
	// ASCII punctuation and symbols, as BERT treats them.
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}
