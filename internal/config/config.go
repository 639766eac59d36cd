// Package config loads the conversion settings: an optional YAML file, a .env file and
// NERPREP_* environment variables, in increasing order of precedence. Command-line flags are
// applied on top by the caller.
package config

import (
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gomlx/nerprep/align"
	"github.com/gomlx/nerprep/corpus"
	"github.com/gomlx/nerprep/labelstudio"
	"github.com/gomlx/nerprep/tokenizers"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"k8s.io/klog/v2"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "NERPREP_"

// Config holds the conversion settings.
type Config struct {
	// TextKey is the key of the raw text in each task's "data".
	TextKey string `yaml:"text_key"`

	// CancelledWhenPresent makes any "was_cancelled" field mark its completion as cancelled,
	// regardless of its value.
	CancelledWhenPresent bool `yaml:"cancelled_when_present"`

	Tokenizer tokenizers.Config `yaml:"tokenizer"`

	Alignment struct {
		Offsets string `yaml:"offsets"` // "runes", "utf16" or "bytes"
		Mode    string `yaml:"mode"`    // "strict", "contract" or "expand"
	} `yaml:"alignment"`

	Split struct {
		DevRatio  float64 `yaml:"dev_ratio"`
		TestRatio float64 `yaml:"test_ratio"`
	} `yaml:"split"`

	Output struct {
		Format string `yaml:"format"` // "parquet" or "jsonl"
	} `yaml:"output"`
}

// Default returns the configuration used when nothing is set. Ratios have no default.
func Default() *Config {
	config := &Config{TextKey: labelstudio.DefaultTextKey}
	config.Tokenizer.Kind = tokenizers.KindPreTokenizer
	config.Tokenizer.PreTokenizer = tokenizers.DefaultPreTokenizer
	config.Alignment.Offsets = string(align.DefaultOffsetUnit)
	config.Alignment.Mode = string(align.DefaultMode)
	config.Output.Format = string(corpus.DefaultFormat)
	return config
}

// Load returns the default configuration overridden by the YAML file at configPath (skipped
// if empty) and then by NERPREP_* environment variables. A .env file in the current directory
// is loaded first, if present; it doesn't override variables already set.
//
// ${VAR} references in Tokenizer.File are expanded.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err == nil {
		klog.V(1).Infof("loaded .env")
	}

	config := Default()
	if configPath != "" {
		f, err := os.Open(configPath)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open config file %q", configPath)
		}
		defer f.Close()
		decoder := yaml.NewDecoder(f)
		decoder.KnownFields(true)
		if err := decoder.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "failed to decode config file %q", configPath)
		}
		klog.V(1).Infof("loaded config from %q", configPath)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	config.Tokenizer.File = os.ExpandEnv(config.Tokenizer.File)
	return config, nil
}

// applyEnv overrides fields with the NERPREP_* variables that are set.
func (c *Config) applyEnv() error {
	for name, field := range map[string]*string{
		"TEXT_KEY":       &c.TextKey,
		"TOKENIZER":      &c.Tokenizer.Kind,
		"PRE_TOKENIZER":  &c.Tokenizer.PreTokenizer,
		"TOKENIZER_FILE": &c.Tokenizer.File,
		"OFFSETS":        &c.Alignment.Offsets,
		"ALIGNMENT":      &c.Alignment.Mode,
		"FORMAT":         &c.Output.Format,
	} {
		if value, found := os.LookupEnv(EnvPrefix + name); found {
			*field = strings.TrimSpace(value)
		}
	}
	for name, field := range map[string]*float64{
		"DEV_SIZE":  &c.Split.DevRatio,
		"TEST_SIZE": &c.Split.TestRatio,
	} {
		value, found := os.LookupEnv(EnvPrefix + name)
		if !found {
			continue
		}
		ratio, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return errors.Wrapf(err, "invalid %s%s=%q", EnvPrefix, name, value)
		}
		*field = ratio
	}
	if value, found := os.LookupEnv(EnvPrefix + "CANCELLED_WHEN_PRESENT"); found {
		present, err := strconv.ParseBool(strings.TrimSpace(value))
		if err != nil {
			return errors.Wrapf(err, "invalid %sCANCELLED_WHEN_PRESENT=%q", EnvPrefix, value)
		}
		c.CancelledWhenPresent = present
	}
	return nil
}

// Validate checks the ratios are in (0, 1) and every enumerated setting has a known value.
func (c *Config) Validate() error {
	if c.TextKey == "" {
		return errors.New("text key must not be empty")
	}
	for name, ratio := range map[string]float64{"dev": c.Split.DevRatio, "test": c.Split.TestRatio} {
		if !(ratio > 0 && ratio < 1) { // Also rejects NaN.
			return errors.Errorf("%s ratio must be in (0, 1), got %g", name, ratio)
		}
	}
	if sum := c.Split.DevRatio + c.Split.TestRatio; sum >= 1 {
		klog.Warningf("dev and test ratios add up to %g: the train partition will likely be empty", sum)
	}
	switch c.Tokenizer.Kind {
	case "", tokenizers.KindPreTokenizer, tokenizers.KindHuggingFace, tokenizers.KindSentencePiece:
	default:
		return errors.Errorf("unknown tokenizer kind %q", c.Tokenizer.Kind)
	}
	if _, err := align.ParseOffsetUnit(c.Alignment.Offsets); err != nil {
		return err
	}
	if _, err := align.ParseMode(c.Alignment.Mode); err != nil {
		return err
	}
	if _, err := corpus.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	return nil
}
