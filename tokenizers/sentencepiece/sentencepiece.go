// Package sentencepiece implements an api.TokenizerWithSpans based on a SentencePiece model.
//
// Subword tokens are finer than words, so entities aligned against them rarely
// get dropped, at the cost of longer token sequences.
package sentencepiece

import (
	"strconv"
	"strings"

	esentencepiece "github.com/eliben/go-sentencepiece"
	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// metaspace is U+2581, used by SentencePiece in place of spaces.
const metaspace = "▁"

// Tokenizer implements api.TokenizerWithSpans based on SentencePiece tokenizer by Google.
type Tokenizer struct {
	*esentencepiece.Processor
	Info *esentencepiece.ModelInfo
}

// Compile time assert that sentencepiece.Tokenizer implements api.TokenizerWithSpans interface.
var _ api.TokenizerWithSpans = &Tokenizer{}

// NewFromFile creates a SentencePiece tokenizer from a "tokenizer.model" file,
// which must be a SentencePiece Model proto.
func NewFromFile(modelPath string) (*Tokenizer, error) {
	proc, err := esentencepiece.NewProcessorFromPath(modelPath)
	if err != nil {
		return nil, errors.Wrapf(err, "can't create sentencepiece tokenizer from %q", modelPath)
	}
	info := proc.ModelInfo()
	klog.V(1).Infof("loaded sentencepiece model %q: %d pieces", modelPath, info.VocabularySize)
	return &Tokenizer{
		Processor: proc,
		Info:      info,
	}, nil
}

// EncodeWithSpans returns the text encoded into a sequence of ids along with their byte spans.
func (p *Tokenizer) EncodeWithSpans(text string) api.EncodingResult {
	return spansOf(text, p.Processor.Encode(text))
}

// spansOf matches the pieces back against the original text left to right.
//
// Pieces that only stand for whitespace are dropped, since they can't start or end an entity.
// Byte-fallback pieces ("<0xF0>") cover exactly one byte. Pieces that don't appear verbatim,
// because normalization changed them, cover the text up to where the next piece matches; a run
// of them is reported as one span with the ID of its first piece.
func spansOf(text string, tokens []esentencepiece.Token) api.EncodingResult {
	res := api.EncodingResult{
		IDs:   make([]int, 0, len(tokens)),
		Spans: make([]api.TokenSpan, 0, len(tokens)),
	}
	emit := func(id, start, end int) {
		if end > start {
			res.IDs = append(res.IDs, id)
			res.Spans = append(res.Spans, api.TokenSpan{Start: start, End: end})
		}
	}

	pos := 0
	pendingID, pendingStart := -1, 0
	flushPending := func(end int) {
		if pendingID >= 0 {
			emit(pendingID, pendingStart, end)
			pendingID = -1
		}
	}
	for _, tok := range tokens {
		piece := strings.TrimPrefix(tok.Text, metaspace)
		if len(piece) != len(tok.Text) && pendingID < 0 {
			pos = skipSpaces(text, pos)
		}
		if piece == "" {
			continue
		}

		if b, ok := byteValue(piece); ok {
			if pos < len(text) && text[pos] == b {
				flushPending(pos)
				emit(tok.ID, pos, pos+1)
				pos++
			}
			continue
		}
		if foundAt := findSubstring(text, piece, pos); foundAt >= 0 {
			flushPending(foundAt)
			emit(tok.ID, foundAt, foundAt+len(piece))
			pos = foundAt + len(piece)
			continue
		}
		if pendingID < 0 {
			pendingID, pendingStart = tok.ID, skipSpaces(text, pos)
		}
	}
	if pendingID >= 0 {
		end := len(strings.TrimRight(text, " \t\n\r"))
		flushPending(max(end, pendingStart))
	}
	return res
}

// byteValue parses byte-fallback pieces of the form "<0xXY>".
func byteValue(piece string) (byte, bool) {
	if len(piece) != 6 || !strings.HasPrefix(piece, "<0x") || piece[5] != '>' {
		return 0, false
	}
	v, err := strconv.ParseUint(piece[3:5], 16, 8)
	if err != nil {
		return 0, false
	}
	return byte(v), true
}

func skipSpaces(text string, pos int) int {
	for pos < len(text) && (text[pos] == ' ' || text[pos] == '\t' || text[pos] == '\n' || text[pos] == '\r') {
		pos++
	}
	return pos
}

// findSubstring finds the first occurrence of substr in s starting from position start.
// Returns the byte position of the match, or -1 if not found.
func findSubstring(s, substr string, start int) int {
	if start >= len(s) {
		return -1
	}
	idx := strings.Index(s[start:], substr)
	if idx < 0 {
		return -1
	}
	return start + idx
}
