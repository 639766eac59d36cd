// Package api defines the tokenizer contract used by the alignment engine.
// It's kept separate from `tokenizers` so implementations can import it without
// importing the factory.
package api

// TokenSpan represents the byte span of a token in the original text.
// Start and End are byte offsets (not rune offsets), suitable for slicing
// Go strings directly: originalText[span.Start:span.End].
type TokenSpan struct {
	Start int `json:"start"` // start byte position (inclusive)
	End   int `json:"end"`   // end byte position (exclusive)
}

// Len returns the number of bytes covered by the span.
func (s TokenSpan) Len() int {
	return s.End - s.Start
}

// EncodingResult contains tokens with their spans in the original text.
type EncodingResult struct {
	IDs   []int       // token IDs, nil for tokenizers without a vocabulary
	Spans []TokenSpan // byte spans for each token, sorted and non-overlapping
}

// Len returns the number of tokens.
func (r EncodingResult) Len() int {
	return len(r.Spans)
}

// TokenizerWithSpans splits text into tokens and reports where each one sits in
// the original text. Implementations must be deterministic: the same text
// always yields the same spans.
type TokenizerWithSpans interface {
	// EncodeWithSpans returns tokens along with their byte spans in the original text.
	EncodeWithSpans(text string) EncodingResult
}
