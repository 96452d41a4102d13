package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/born-ml/readcomp/internal/nn"
	"gopkg.in/yaml.v3"
)

// Attention variants.
const (
	AttentionBasic = "basic"
	AttentionBiDAF = "bidaf"
)

// Config describes a Reader.
//
// HiddenSize is the encoder state size per direction. ContextLen and
// QuestionLen bound the input lengths. Attention is "basic" or "bidaf".
// KeepProb is 1.0 for inference. A zero Seed draws a random one.
type Config struct {
	EmbeddingSize int     `json:"embedding_size" yaml:"embedding_size"`
	HiddenSize    int     `json:"hidden_size" yaml:"hidden_size"`
	ContextLen    int     `json:"context_len" yaml:"context_len"`
	QuestionLen   int     `json:"question_len" yaml:"question_len"`
	Attention     string  `json:"attention" yaml:"attention"`
	BiDAFDropout  bool    `json:"bidaf_output_dropout" yaml:"bidaf_output_dropout"`
	KeepProb      float64 `json:"keep_prob" yaml:"keep_prob"`
	Seed          uint64  `json:"seed" yaml:"seed"`
}

// DefaultConfig returns the configuration of the reference model: GloVe-100
// embeddings, 200 hidden units, BiDAF attention, inference mode.
func DefaultConfig() Config {
	return Config{
		EmbeddingSize: 100,
		HiddenSize:    200,
		ContextLen:    600,
		QuestionLen:   30,
		Attention:     AttentionBiDAF,
		KeepProb:      1,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.EncoderConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ContextLen <= 0 || c.QuestionLen <= 0 {
		return fmt.Errorf("%w: context_len and question_len must be positive, got %d and %d",
			ErrInvalidConfig, c.ContextLen, c.QuestionLen)
	}
	switch c.Attention {
	case AttentionBasic, AttentionBiDAF:
	default:
		return fmt.Errorf("%w: unknown attention %q (want %q or %q)", ErrInvalidConfig, c.Attention, AttentionBasic, AttentionBiDAF)
	}
	if c.KeepProb <= 0 || c.KeepProb > 1 {
		return fmt.Errorf("%w: keep_prob %v outside (0, 1]", ErrInvalidConfig, c.KeepProb)
	}
	return nil
}

// EncoderConfig returns the configuration of the shared encoder.
func (c Config) EncoderConfig() nn.EncoderConfig {
	return nn.EncoderConfig{InputSize: c.EmbeddingSize, HiddenSize: c.HiddenSize}
}

// BlendedSize returns the feature size fed to the output layers.
func (c Config) BlendedSize() int {
	enc := c.EncoderConfig().OutputSize()
	if c.Attention == AttentionBiDAF {
		return nn.BiDAFConfig{HiddenSize: enc}.OutputSize()
	}
	return 2 * enc
}

// LoadConfig reads a YAML (.yaml, .yml) or JSON (.json) config file.
// Fields absent from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	//nolint:gosec // G304: config path is supplied by the operator
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	case ".json":
		err = json.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}
