package model

import (
	"context"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/readcomp/internal/backend/cpu"
	"github.com/born-ml/readcomp/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

type Backend = *cpu.CPUBackend

func testConfig(attention string) Config {
	return Config{
		EmbeddingSize: 5,
		HiddenSize:    3,
		ContextLen:    8,
		QuestionLen:   4,
		Attention:     attention,
		KeepProb:      1,
		Seed:          42,
	}
}

func randn(r *rand.Rand, backend Backend, shape ...int) *tensor.Tensor[float32, Backend] {
	x := tensor.Zeros[float32](tensor.Shape(shape), backend)
	for i := range x.Data() {
		x.Data()[i] = float32(r.NormFloat64())
	}
	return x
}

func prefixMask(backend Backend, steps int, lengths ...int) *tensor.Tensor[float32, Backend] {
	m := tensor.Zeros[float32](tensor.Shape{len(lengths), steps}, backend)
	for b, l := range lengths {
		for t := 0; t < l; t++ {
			m.Set(1, b, t)
		}
	}
	return m
}

func testBatch(backend Backend) Batch[Backend] {
	r := rand.New(rand.NewPCG(1, 2))
	return Batch[Backend]{
		Context:      randn(r, backend, 2, 6, 5),
		ContextMask:  prefixMask(backend, 6, 6, 4),
		Question:     randn(r, backend, 2, 3, 5),
		QuestionMask: prefixMask(backend, 3, 2, 3),
	}
}

// TestReader_Forward tests both attention variants end to end.
func TestReader_Forward(t *testing.T) {
	for _, attention := range []string{AttentionBasic, AttentionBiDAF} {
		t.Run(attention, func(t *testing.T) {
			backend := cpu.New()
			reader, err := New(testConfig(attention), backend)
			require.NoError(t, err)

			batch := testBatch(backend)
			pred, err := reader.Forward(context.Background(), batch)
			require.NoError(t, err)

			for _, dist := range []*tensor.Tensor[float32, Backend]{pred.StartDist, pred.EndDist} {
				require.Equal(t, tensor.Shape{2, 6}, dist.Shape())
				p := dist.Raw().Float64s()
				for _, v := range p {
					assert.False(t, math.IsNaN(v))
				}
				assert.InDelta(t, 1.0, floats.Sum(p[:6]), 1e-5)
				assert.InDelta(t, 1.0, floats.Sum(p[6:]), 1e-5)
				// Row 1 has 4 valid context positions.
				assert.Equal(t, 0.0, p[6+4])
				assert.Equal(t, 0.0, p[6+5])
			}
			assert.Equal(t, tensor.Shape{2, 6}, pred.StartLogits.Shape())
		})
	}
}

// TestReader_Deterministic tests that a fixed seed reproduces weights and
// predictions.
func TestReader_Deterministic(t *testing.T) {
	backend := cpu.New()
	a, err := New(testConfig(AttentionBiDAF), backend)
	require.NoError(t, err)
	b, err := New(testConfig(AttentionBiDAF), backend)
	require.NoError(t, err)

	batch := testBatch(backend)
	pa, err := a.Forward(context.Background(), batch)
	require.NoError(t, err)
	pb, err := b.Forward(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, pa.StartDist.Data(), pb.StartDist.Data())
	assert.Equal(t, pa.EndLogits.Data(), pb.EndLogits.Data())
}

func TestReader_Parameters(t *testing.T) {
	backend := cpu.New()

	bidaf, err := New(testConfig(AttentionBiDAF), backend)
	require.NoError(t, err)
	sd := bidaf.StateDict()
	assert.Len(t, sd, 8+3+4)
	assert.Contains(t, sd, "RNNEncoder/fw/gates/kernel")
	assert.Contains(t, sd, "BiDirAttnFlow/w_sim3")
	assert.Contains(t, sd, "StartDist/SimpleSoftmaxLayer/dense/kernel")
	assert.Equal(t, tensor.Shape{24, 1}, sd["EndDist/SimpleSoftmaxLayer/dense/kernel"].Shape())

	basic, err := New(testConfig(AttentionBasic), backend)
	require.NoError(t, err)
	assert.Len(t, basic.StateDict(), 8+4)
	assert.Equal(t, tensor.Shape{12, 1}, basic.StateDict()["StartDist/SimpleSoftmaxLayer/dense/kernel"].Shape())
}

// TestReader_ShapeErrors tests up-front input validation.
func TestReader_ShapeErrors(t *testing.T) {
	backend := cpu.New()
	reader, err := New(testConfig(AttentionBiDAF), backend)
	require.NoError(t, err)
	r := rand.New(rand.NewPCG(3, 4))

	tests := []struct {
		name   string
		modify func(b *Batch[Backend])
	}{
		{"nil", func(b *Batch[Backend]) { b.Question = nil }},
		{"embedding size", func(b *Batch[Backend]) { b.Context = randn(r, backend, 2, 6, 4) }},
		{"context too long", func(b *Batch[Backend]) {
			b.Context = randn(r, backend, 2, 9, 5)
			b.ContextMask = prefixMask(backend, 9, 9, 9)
		}},
		{"mask", func(b *Batch[Backend]) { b.QuestionMask = prefixMask(backend, 2, 2, 2) }},
		{"batch", func(b *Batch[Backend]) {
			b.Question = randn(r, backend, 1, 3, 5)
			b.QuestionMask = prefixMask(backend, 3, 3)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batch := testBatch(backend)
			tt.modify(&batch)
			_, err := reader.Forward(context.Background(), batch)
			assert.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestReader_Canceled(t *testing.T) {
	backend := cpu.New()
	reader, err := New(testConfig(AttentionBasic), backend)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reader.Forward(ctx, testBatch(backend))
	assert.ErrorIs(t, err, context.Canceled)
}

// TestReader_DeterministicDropout tests that a fixed seed reproduces
// predictions in training mode.
func TestReader_DeterministicDropout(t *testing.T) {
	cfg := testConfig(AttentionBiDAF)
	cfg.ContextLen = 40
	cfg.KeepProb = 0.5

	backend := cpu.New()
	r := rand.New(rand.NewPCG(3, 4))
	lengths := make([]int, 8)
	for i := range lengths {
		lengths[i] = 20 + 2*i
	}
	batch := Batch[Backend]{
		Context:      randn(r, backend, 8, 40, 5),
		ContextMask:  prefixMask(backend, 40, lengths...),
		Question:     randn(r, backend, 8, 4, 5),
		QuestionMask: prefixMask(backend, 4, 4, 3, 2, 4, 1, 4, 3, 4),
	}

	var first []float32
	for run := 0; run < 10; run++ {
		reader, err := New(cfg, backend)
		require.NoError(t, err)
		pred, err := reader.Forward(context.Background(), batch)
		require.NoError(t, err)

		if run == 0 {
			first = pred.StartDist.Data()
			continue
		}
		require.Equal(t, first, pred.StartDist.Data(), "run %d", run)
	}
}

// TestReader_KeepProb tests that dropout is only active below 1.0.
func TestReader_KeepProb(t *testing.T) {
	backend := cpu.New()
	reader, err := New(testConfig(AttentionBiDAF), backend)
	require.NoError(t, err)
	batch := testBatch(backend)

	infer1, err := reader.Forward(context.Background(), batch)
	require.NoError(t, err)

	require.NoError(t, reader.SetKeepProb(0.5))
	train, err := reader.Forward(context.Background(), batch)
	require.NoError(t, err)
	assert.NotEqual(t, infer1.StartLogits.Data(), train.StartLogits.Data())

	require.NoError(t, reader.SetKeepProb(1))
	infer2, err := reader.Forward(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, infer1.StartLogits.Data(), infer2.StartLogits.Data())

	assert.Error(t, reader.SetKeepProb(0))
}

// TestReader_SaveLoad tests a checkpoint round trip and architecture checks.
func TestReader_SaveLoad(t *testing.T) {
	backend := cpu.New()
	path := filepath.Join(t.TempDir(), "reader.safetensors")

	src, err := New(testConfig(AttentionBiDAF), backend)
	require.NoError(t, err)
	require.NoError(t, src.Save(path))

	cfg := testConfig(AttentionBiDAF)
	cfg.Seed = 7
	dst, err := New(cfg, backend)
	require.NoError(t, err)
	require.NoError(t, dst.Load(path))

	batch := testBatch(backend)
	ps, err := src.Forward(context.Background(), batch)
	require.NoError(t, err)
	pd, err := dst.Forward(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, ps.EndDist.Data(), pd.EndDist.Data())

	other, err := New(testConfig(AttentionBasic), backend)
	require.NoError(t, err)
	assert.ErrorIs(t, other.Load(path), ErrCheckpointMismatch)

	assert.ErrorIs(t, dst.Load(filepath.Join(t.TempDir(), "missing")), os.ErrNotExist)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	tests := map[string]func(c *Config){
		"hidden":    func(c *Config) { c.HiddenSize = 0 },
		"embedding": func(c *Config) { c.EmbeddingSize = -1 },
		"lengths":   func(c *Config) { c.QuestionLen = 0 },
		"attention": func(c *Config) { c.Attention = "coattention" },
		"keep":      func(c *Config) { c.KeepProb = 1.5 },
	}
	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			modify(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.Equal(t, 1600, DefaultConfig().BlendedSize())
	assert.Equal(t, 800, Config{HiddenSize: 200, Attention: AttentionBasic}.BlendedSize())
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "reader.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("hidden_size: 16\nattention: basic\nkeep_prob: 0.85\n"), 0o600))
	cfg, err := LoadConfig(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.HiddenSize)
	assert.Equal(t, AttentionBasic, cfg.Attention)
	assert.InDelta(t, 0.85, cfg.KeepProb, 1e-12)
	assert.Equal(t, 100, cfg.EmbeddingSize, "unset fields keep defaults")

	jsonPath := filepath.Join(dir, "reader.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"embedding_size": 50, "bidaf_output_dropout": true, "seed": 9}`), 0o600))
	cfg, err = LoadConfig(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.EmbeddingSize)
	assert.True(t, cfg.BiDAFDropout)
	assert.Equal(t, uint64(9), cfg.Seed)

	badPath := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(badPath, []byte("attention: coattention\n"), 0o600))
	_, err = LoadConfig(badPath)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = LoadConfig(filepath.Join(dir, "reader.toml"))
	assert.Error(t, err)

	tomlPath := filepath.Join(dir, "reader.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("x = 1"), 0o600))
	_, err = LoadConfig(tomlPath)
	assert.ErrorContains(t, err, "unsupported extension")
}
