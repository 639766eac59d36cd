package pretokenizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNew(t *testing.T, preTokenizerType string) *Tokenizer {
	t.Helper()
	tok, err := New(preTokenizerType)
	require.NoError(t, err)
	return tok
}

func TestPreTokenizers(t *testing.T) {
	tests := []struct {
		name      string
		tokenizer string
		input     string
		want      []string
	}{
		{"bert punctuation", TypeBert, "Hello, world!", []string{"Hello", ",", "world", "!"}},
		{"bert repeated punctuation", TypeBert, "wait...", []string{"wait", ".", ".", "."}},
		{"bert newlines", TypeBert, "line one\n\nline two", []string{"line", "one", "line", "two"}},
		{"whitespace split keeps punctuation", TypeWhitespaceSplit, "Hello, world!", []string{"Hello,", "world!"}},
		{"whitespace word runs", TypeWhitespace, "don't stop", []string{"don", "'", "t", "stop"}},
		{"whitespace underscore is a word char", TypeWhitespace, "a__b-c", []string{"a__b", "-", "c"}},
		{"whitespace symbol runs", TypeWhitespace, "wow?!", []string{"wow", "?!"}},
		{"combining mark stays attached", TypeBert, "cafe\u0301!", []string{"cafe\u0301", "!"}},
		{"mark after punctuation", TypeBert, "a!\u0301b", []string{"a", "!\u0301", "b"}},
		{"multi-byte letters", TypeBert, "Zürich, 東京", []string{"Zürich", ",", "東京"}},
		{"leading and trailing spaces", TypeBert, "  x  ", []string{"x"}},
		{"empty", TypeBert, "", nil},
		{"only spaces", TypeWhitespace, " \t ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok := mustNew(t, tt.tokenizer)
			assert.Equal(t, tt.want, tok.Tokenize(tt.input))
		})
	}
}

func TestSpansSliceOriginalText(t *testing.T) {
	text := "Ünïcödé text: naïve café́, 123 $5.00!"
	for _, preTokenizerType := range []string{TypeWhitespace, TypeWhitespaceSplit, TypeBert, TypePunctuation, TypeDigits} {
		t.Run(preTokenizerType, func(t *testing.T) {
			tok := mustNew(t, preTokenizerType)
			res := tok.EncodeWithSpans(text)
			assert.Nil(t, res.IDs)
			prevEnd := 0
			for i, span := range res.Spans {
				require.Greater(t, span.End, span.Start, "span #%d is empty", i)
				require.GreaterOrEqual(t, span.Start, prevEnd, "span #%d overlaps its predecessor", i)
				require.LessOrEqual(t, span.End, len(text))
				prevEnd = span.End
			}
		})
	}
}

func TestDeterministic(t *testing.T) {
	tok := mustNew(t, TypeBert)
	text := "Same input, same spans. Every time!"
	first := tok.EncodeWithSpans(text)
	for range 5 {
		assert.Equal(t, first, tok.EncodeWithSpans(text))
	}
}

func TestPunctuationBehaviors(t *testing.T) {
	tests := []struct {
		behavior string
		want     []string
	}{
		{BehaviorIsolated, []string{"a", "-", "b", "-", "-", "c"}},
		{BehaviorRemoved, []string{"a", "b", "c"}},
		{BehaviorContiguous, []string{"a", "-", "b", "--", "c"}},
		{BehaviorMergedWithPrevious, []string{"a-", "b-", "-", "c"}},
		{BehaviorMergedWithNext, []string{"a", "-b", "-", "-c"}},
	}
	for _, tt := range tests {
		t.Run(tt.behavior, func(t *testing.T) {
			tok, err := NewFromConfig(Config{Type: TypePunctuation, Behavior: tt.behavior})
			require.NoError(t, err)
			assert.Equal(t, tt.want, tok.Tokenize("a-b--c"))
		})
	}
}

func TestDigits(t *testing.T) {
	tok, err := NewFromConfig(Config{Type: TypeDigits, IndividualDigits: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "1", "2", "3"}, tok.Tokenize("abc123"))

	tok, err = NewFromConfig(Config{Type: TypeDigits})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "123"}, tok.Tokenize("abc123"))
}

func TestNewFromContent(t *testing.T) {
	content := []byte(`{
  "version": "1.0",
  "normalizer": null,
  "pre_tokenizer": {
    "type": "Sequence",
    "pretokenizers": [
      {"type": "WhitespaceSplit"},
      {"type": "Digits", "individual_digits": true}
    ]
  },
  "model": {"type": "WordPiece", "vocab": {}}
}`)
	tok, err := NewFromContent(content)
	require.NoError(t, err)
	assert.Equal(t, TypeSequence, tok.Config().Type)
	assert.Equal(t, []string{"ab", "1", "2", "c"}, tok.Tokenize("ab12 c"))
}

func TestNewFromContent_NullPreTokenizer(t *testing.T) {
	tok, err := NewFromContent([]byte(`{"pre_tokenizer": null}`))
	require.NoError(t, err)
	assert.Equal(t, TypeWhitespaceSplit, tok.Config().Type)
	assert.Equal(t, []string{"a,", "b"}, tok.Tokenize("a, b"))
}

func TestNewFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokenizer.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pre_tokenizer": {"type": "BertPreTokenizer"}}`), 0o644))
	tok, err := NewFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", ",", "b"}, tok.Tokenize("a, b"))

	_, err = NewFromFile(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}

func TestInvalidConfigs(t *testing.T) {
	for name, config := range map[string]Config{
		"empty type":     {},
		"unknown type":   {Type: "ByteLevel"},
		"bad behavior":   {Type: TypePunctuation, Behavior: "sideways"},
		"empty sequence": {Type: TypeSequence},
		"bad child":      {Type: TypeSequence, PreTokenizers: []Config{{Type: TypeBert}, {Type: "Nope"}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := NewFromConfig(config)
			require.Error(t, err)
		})
	}

	_, err := NewFromContent([]byte(`{not json`))
	require.Error(t, err)
}
