package nn

import (
	"path/filepath"
	"testing"

	"github.com/born-ml/readcomp/internal/backend/cpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSaveLoadStateDict tests a SafeTensors round trip through a file.
func TestSaveLoadStateDict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bidaf.safetensors")

	src := newTestBiDAF(4, 1)
	require.NoError(t, SaveStateDict(path, src, map[string]string{"hidden_size": "4"}))

	dst := newTestBiDAF(4, 2)
	meta, err := LoadStateDictFile(path, dst)
	require.NoError(t, err)
	assert.Equal(t, "4", meta["hidden_size"])

	for i, p := range src.Parameters() {
		assert.Equal(t, p.Tensor().Data(), dst.Parameters()[i].Tensor().Data(), p.Name())
	}

	// Weights of another layer do not fit.
	enc := NewRNNEncoder(EncoderConfig{InputSize: 4, HiddenSize: 2}, Inference(), cpu.New())
	_, err = LoadStateDictFile(path, enc)
	assert.Error(t, err)

	_, err = LoadStateDictFile(filepath.Join(t.TempDir(), "missing"), dst)
	assert.Error(t, err)
}
