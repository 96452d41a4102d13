// Package model assembles the reading-comprehension layers into a Reader
// that maps embedded context and question batches to answer start and end
// distributions.
package model

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/born-ml/readcomp/internal/nn"
	"github.com/born-ml/readcomp/internal/parallel"
	"github.com/born-ml/readcomp/internal/serialization"
	"github.com/born-ml/readcomp/internal/tensor"
	"k8s.io/klog/v2"
)

// Batch is one forward-pass input. Embeddings are [batch, len, embedding]
// and masks are [batch, len] with 0/1 entries.
type Batch[B tensor.Backend] struct {
	Context      *tensor.Tensor[float32, B]
	ContextMask  *tensor.Tensor[float32, B]
	Question     *tensor.Tensor[float32, B]
	QuestionMask *tensor.Tensor[float32, B]
}

// Prediction holds start and end masked logits and distributions, each
// [batch, context_len].
type Prediction[B tensor.Backend] struct {
	StartLogits *tensor.Tensor[float32, B]
	StartDist   *tensor.Tensor[float32, B]
	EndLogits   *tensor.Tensor[float32, B]
	EndDist     *tensor.Tensor[float32, B]
}

// Reader encodes context and question with one shared RNNEncoder, attends
// from context to question, and projects the blended representation to
// start and end distributions.
//
// Forward is safe for concurrent use.
type Reader[B tensor.Backend] struct {
	cfg  Config
	keep *nn.KeepProb

	encoder *nn.RNNEncoder[B]
	basic   *nn.BasicAttn[B]
	bidaf   *nn.BiDirAttnFlow[B]
	start   *nn.SimpleSoftmaxLayer[B]
	end     *nn.SimpleSoftmaxLayer[B]
}

// New builds a Reader with freshly initialized weights.
func New[B tensor.Backend](cfg Config, backend B) (*Reader[B], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	keep, err := nn.NewKeepProb(cfg.KeepProb)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	sub := func(name string) []nn.Option {
		return []nn.Option{nn.WithScope(nn.NewScope(name)), nn.WithSource(rand.NewPCG(src.Uint64(), src.Uint64()))}
	}

	r := &Reader[B]{
		cfg:     cfg,
		keep:    keep,
		encoder: nn.NewRNNEncoder(cfg.EncoderConfig(), keep, backend, nn.WithSource(rand.NewPCG(src.Uint64(), src.Uint64()))),
	}

	encSize := cfg.EncoderConfig().OutputSize()
	switch cfg.Attention {
	case AttentionBasic:
		r.basic = nn.NewBasicAttn(keep, encSize, encSize, backend, nn.WithSource(rand.NewPCG(src.Uint64(), src.Uint64())))
	case AttentionBiDAF:
		r.bidaf = nn.NewBiDirAttnFlow(nn.BiDAFConfig{HiddenSize: encSize, OutputDropout: cfg.BiDAFDropout},
			keep, backend, nn.WithSource(rand.NewPCG(src.Uint64(), src.Uint64())))
	}

	r.start = nn.NewSimpleSoftmaxLayer(cfg.BlendedSize(), backend, sub("StartDist")...)
	r.end = nn.NewSimpleSoftmaxLayer(cfg.BlendedSize(), backend, sub("EndDist")...)

	klog.V(2).InfoS("Created reader", "attention", cfg.Attention, "embedding", cfg.EmbeddingSize,
		"hidden", cfg.HiddenSize, "blended", cfg.BlendedSize(), "parameters", len(r.Parameters()))
	return r, nil
}

// Config returns the reader configuration.
func (r *Reader[B]) Config() Config {
	return r.cfg
}

// SetKeepProb changes the dropout keep probability of every layer.
func (r *Reader[B]) SetKeepProb(p float64) error {
	return r.keep.Set(p)
}

// Forward runs the model on one batch.
//
// Input shapes are validated up front and reported as ErrShapeMismatch.
// In inference mode context and question are encoded concurrently. With
// dropout active they are encoded in order, context first, so a seeded
// Reader draws the same masks on every run. ctx is checked between stages.
func (r *Reader[B]) Forward(ctx context.Context, batch Batch[B]) (*Prediction[B], error) {
	if err := r.validate(batch); err != nil {
		return nil, err
	}
	log := klog.FromContext(ctx)

	var contextHiddens, questionHiddens *tensor.Tensor[float32, B]
	encodeContext := func(context.Context) error {
		return guard("encode context", func() {
			contextHiddens = r.encoder.Forward(batch.Context, batch.ContextMask)
		})
	}
	encodeQuestion := func(context.Context) error {
		return guard("encode question", func() {
			questionHiddens = r.encoder.Forward(batch.Question, batch.QuestionMask)
		})
	}

	var err error
	if r.keep.Get() < 1 {
		err = encodeContext(ctx)
		if err == nil {
			err = encodeQuestion(ctx)
		}
	} else {
		err = parallel.Do(ctx, encodeContext, encodeQuestion)
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.V(4).Info("Encoded batch", "context", contextHiddens.Shape(), "question", questionHiddens.Shape())

	var blended *tensor.Tensor[float32, B]
	err = guard("attention", func() {
		switch {
		case r.bidaf != nil:
			blended = r.bidaf.Forward(questionHiddens, batch.QuestionMask, contextHiddens, batch.ContextMask)
		default:
			_, attnOutput := r.basic.Forward(questionHiddens, batch.QuestionMask, contextHiddens)
			blended = tensor.Cat([]*tensor.Tensor[float32, B]{contextHiddens, attnOutput}, 2)
		}
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.V(4).Info("Blended representations", "attention", r.cfg.Attention, "shape", blended.Shape())

	pred := &Prediction[B]{}
	err = parallel.Do(ctx,
		func(context.Context) error {
			return guard("start distribution", func() {
				pred.StartLogits, pred.StartDist = r.start.Forward(blended, batch.ContextMask)
			})
		},
		func(context.Context) error {
			return guard("end distribution", func() {
				pred.EndLogits, pred.EndDist = r.end.Forward(blended, batch.ContextMask)
			})
		},
	)
	if err != nil {
		return nil, err
	}
	return pred, nil
}

func (r *Reader[B]) validate(batch Batch[B]) error {
	if batch.Context == nil || batch.ContextMask == nil || batch.Question == nil || batch.QuestionMask == nil {
		return fmt.Errorf("%w: batch has nil tensors", ErrShapeMismatch)
	}
	if err := checkSequence("context", batch.Context, batch.ContextMask, r.cfg.EmbeddingSize, r.cfg.ContextLen); err != nil {
		return err
	}
	if err := checkSequence("question", batch.Question, batch.QuestionMask, r.cfg.EmbeddingSize, r.cfg.QuestionLen); err != nil {
		return err
	}
	if c, q := batch.Context.Shape()[0], batch.Question.Shape()[0]; c != q {
		return fmt.Errorf("%w: context batch %d, question batch %d", ErrShapeMismatch, c, q)
	}
	return nil
}

func checkSequence[B tensor.Backend](name string, seq, mask *tensor.Tensor[float32, B], dim, maxLen int) error {
	s, m := seq.Shape(), mask.Shape()
	if len(s) != 3 || s[2] != dim {
		return fmt.Errorf("%w: %s must be [batch, len, %d], got %v", ErrShapeMismatch, name, dim, s)
	}
	if s[1] > maxLen {
		return fmt.Errorf("%w: %s length %d exceeds %d", ErrShapeMismatch, name, s[1], maxLen)
	}
	if !m.Equal(tensor.Shape{s[0], s[1]}) {
		return fmt.Errorf("%w: %s mask %v does not match %v", ErrShapeMismatch, name, m, s)
	}
	return nil
}

// guard converts a panic raised by a layer into an error.
func guard(stage string, f func()) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%s: %v", stage, p)
		}
	}()
	f()
	return nil
}

// Parameters returns every trainable parameter of the reader.
func (r *Reader[B]) Parameters() []*nn.Parameter[B] {
	params := r.encoder.Parameters()
	if r.bidaf != nil {
		params = append(params, r.bidaf.Parameters()...)
	}
	params = append(params, r.start.Parameters()...)
	return append(params, r.end.Parameters()...)
}

// StateDict returns a map of parameter names to raw tensors.
func (r *Reader[B]) StateDict() map[string]*tensor.RawTensor {
	return nn.StateDictOf(r.Parameters())
}

// LoadStateDict loads parameters from a state dictionary.
func (r *Reader[B]) LoadStateDict(stateDict map[string]*tensor.RawTensor) error {
	return nn.LoadParameters(r.Parameters(), stateDict)
}

// metadata describes the architecture stored alongside the weights.
func (r *Reader[B]) metadata() map[string]string {
	return map[string]string{
		"attention":      r.cfg.Attention,
		"embedding_size": strconv.Itoa(r.cfg.EmbeddingSize),
		"hidden_size":    strconv.Itoa(r.cfg.HiddenSize),
	}
}

// Save writes the reader weights to a SafeTensors file.
func (r *Reader[B]) Save(path string) error {
	return nn.SaveStateDict(path, r, r.metadata())
}

// Load restores weights saved by Save. The file's architecture metadata
// must match the reader's config.
func (r *Reader[B]) Load(path string) error {
	file, err := serialization.ReadSafeTensors(path)
	if err != nil {
		return fmt.Errorf("loading checkpoint: %w", err)
	}
	for k, want := range r.metadata() {
		if got, ok := file.Metadata[k]; ok && got != want {
			return fmt.Errorf("%w: %s is %q in %s, config has %q", ErrCheckpointMismatch, k, got, path, want)
		}
	}
	if err := r.LoadStateDict(file.Tensors); err != nil {
		return fmt.Errorf("loading checkpoint %s: %w", path, err)
	}
	return nil
}
