package nn

import "fmt"

// EncoderConfig configures an RNNEncoder.
type EncoderConfig struct {
	InputSize  int `json:"input_size" yaml:"input_size"`   // Feature size of the input vectors
	HiddenSize int `json:"hidden_size" yaml:"hidden_size"` // GRU state size per direction
}

// DefaultEncoderConfig returns the configuration used for GloVe-100
// embeddings with 200 hidden units per direction.
func DefaultEncoderConfig() EncoderConfig {
	return EncoderConfig{
		InputSize:  100,
		HiddenSize: 200,
	}
}

// Validate checks the configuration.
func (c EncoderConfig) Validate() error {
	if c.InputSize <= 0 {
		return fmt.Errorf("encoder input_size must be positive, got %d", c.InputSize)
	}
	if c.HiddenSize <= 0 {
		return fmt.Errorf("encoder hidden_size must be positive, got %d", c.HiddenSize)
	}
	return nil
}

// OutputSize returns the feature size of the encoder output (both
// directions concatenated).
func (c EncoderConfig) OutputSize() int {
	return 2 * c.HiddenSize
}

// BiDAFConfig configures a BiDirAttnFlow layer.
type BiDAFConfig struct {
	// HiddenSize is the feature size of the question and context vectors.
	HiddenSize int `json:"hidden_size" yaml:"hidden_size"`

	// OutputDropout applies dropout to the fused output.
	OutputDropout bool `json:"output_dropout" yaml:"output_dropout"`
}

// DefaultBiDAFConfig returns a configuration matching the default encoder
// output size.
func DefaultBiDAFConfig() BiDAFConfig {
	return BiDAFConfig{
		HiddenSize: DefaultEncoderConfig().OutputSize(),
	}
}

// Validate checks the configuration.
func (c BiDAFConfig) Validate() error {
	if c.HiddenSize <= 0 {
		return fmt.Errorf("bidaf hidden_size must be positive, got %d", c.HiddenSize)
	}
	return nil
}

// OutputSize returns the feature size of the fused output.
func (c BiDAFConfig) OutputSize() int {
	return 4 * c.HiddenSize
}
