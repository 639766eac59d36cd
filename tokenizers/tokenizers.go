// Package tokenizers creates the span tokenizers used to align annotations.
//
// The default is a BertPreTokenizer-style whitespace and punctuation splitter, which needs no
// model files. A HuggingFace tokenizer.json can be used to pick up a model's pre_tokenizer, and
// a SentencePiece model gives subword tokens.
package tokenizers

import (
	"github.com/gomlx/nerprep/tokenizers/api"
	"github.com/gomlx/nerprep/tokenizers/pretokenizer"
	"github.com/gomlx/nerprep/tokenizers/sentencepiece"
	"github.com/pkg/errors"
)

// Tokenizer kinds.
const (
	KindPreTokenizer  = "pretokenizer"
	KindHuggingFace   = "huggingface"
	KindSentencePiece = "sentencepiece"
)

// DefaultPreTokenizer is used when Config.PreTokenizer is empty.
const DefaultPreTokenizer = pretokenizer.TypeBert

// Config selects and configures a tokenizer.
type Config struct {
	// Kind is one of KindPreTokenizer (default), KindHuggingFace or KindSentencePiece.
	Kind string `yaml:"kind"`

	// PreTokenizer is the pre-tokenizer type for KindPreTokenizer, e.g. "BertPreTokenizer" or "Whitespace".
	PreTokenizer string `yaml:"pre_tokenizer"`

	// File is the tokenizer.json (KindHuggingFace) or tokenizer.model (KindSentencePiece) path.
	File string `yaml:"file"`
}

// New creates the tokenizer described by config.
func New(config Config) (api.TokenizerWithSpans, error) {
	switch config.Kind {
	case "", KindPreTokenizer:
		preTokenizerType := config.PreTokenizer
		if preTokenizerType == "" {
			preTokenizerType = DefaultPreTokenizer
		}
		tok, err := pretokenizer.New(preTokenizerType)
		if err != nil {
			return nil, err
		}
		return tok, nil
	case KindHuggingFace:
		if config.File == "" {
			return nil, errors.Errorf("tokenizer kind %q requires a tokenizer.json file", config.Kind)
		}
		tok, err := pretokenizer.NewFromFile(config.File)
		if err != nil {
			return nil, err
		}
		return tok, nil
	case KindSentencePiece:
		if config.File == "" {
			return nil, errors.Errorf("tokenizer kind %q requires a tokenizer.model file", config.Kind)
		}
		tok, err := sentencepiece.NewFromFile(config.File)
		if err != nil {
			return nil, err
		}
		return tok, nil
	default:
		return nil, errors.Errorf("unknown tokenizer kind %q", config.Kind)
	}
}
