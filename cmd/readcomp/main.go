// Command readcomp builds a reading comprehension Reader, runs a forward
// pass over synthetic embeddings and prints the answer span distributions.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"

	"github.com/born-ml/readcomp/backend/cpu"
	"github.com/born-ml/readcomp/internal/model"
	"github.com/born-ml/readcomp/tensor"
	"k8s.io/klog/v2"
)

const version = "v0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	configPath := ""
	flag.StringVar(&configPath, "config", configPath, "path to a YAML or JSON reader config")
	batchSize := 2
	flag.IntVar(&batchSize, "batch", batchSize, "number of examples in the synthetic batch")
	contextLen := 0
	flag.IntVar(&contextLen, "context-len", contextLen, "context length of the synthetic batch (0 uses the config maximum)")
	questionLen := 0
	flag.IntVar(&questionLen, "question-len", questionLen, "question length of the synthetic batch (0 uses the config maximum)")
	seed := uint64(0)
	flag.Uint64Var(&seed, "seed", seed, "seed for weights and inputs (0 keeps the config value)")
	keepProb := 0.0
	flag.Float64Var(&keepProb, "keep-prob", keepProb, "dropout keep probability (0 keeps the config value)")
	savePath := ""
	flag.StringVar(&savePath, "save", savePath, "write the reader weights to this SafeTensors file")
	loadPath := ""
	flag.StringVar(&loadPath, "load", loadPath, "read the reader weights from this SafeTensors file")
	showVersion := false
	flag.BoolVar(&showVersion, "version", showVersion, "print the version and exit")

	klog.InitFlags(nil)
	flag.Parse()

	if showVersion {
		fmt.Printf("readcomp %s\n", version)
		return nil
	}

	log := klog.FromContext(ctx)

	cfg := model.DefaultConfig()
	if configPath != "" {
		loaded, err := model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	if keepProb != 0 {
		cfg.KeepProb = keepProb
	}
	if contextLen == 0 {
		contextLen = cfg.ContextLen
	}
	if questionLen == 0 {
		questionLen = cfg.QuestionLen
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch must be positive, got %d", batchSize)
	}

	backend := cpu.New()
	reader, err := model.New(cfg, backend)
	if err != nil {
		return fmt.Errorf("building reader: %w", err)
	}
	log.Info("Built reader", "attention", cfg.Attention, "hidden", cfg.HiddenSize, "parameters", len(reader.Parameters()))

	if loadPath != "" {
		if err := reader.Load(loadPath); err != nil {
			return fmt.Errorf("loading weights: %w", err)
		}
		log.Info("Loaded weights", "path", loadPath)
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, uint64(batchSize)))
	batch, err := syntheticBatch(rng, backend, batchSize, contextLen, questionLen, cfg.EmbeddingSize)
	if err != nil {
		return err
	}

	pred, err := reader.Forward(ctx, batch)
	if err != nil {
		return fmt.Errorf("forward pass: %w", err)
	}

	for b := 0; b < batchSize; b++ {
		start, startP := argmax(pred.StartDist, b)
		end, endP := argmax(pred.EndDist, b)
		fmt.Printf("example %d: start=%d (p=%.4f) end=%d (p=%.4f)\n", b, start, startP, end, endP)
		if klog.V(2).Enabled() {
			fmt.Printf("  start dist: %v\n", row(pred.StartDist, b))
			fmt.Printf("  end dist:   %v\n", row(pred.EndDist, b))
		}
	}

	if savePath != "" {
		if err := reader.Save(savePath); err != nil {
			return fmt.Errorf("saving weights: %w", err)
		}
		log.Info("Saved weights", "path", savePath)
	}
	return nil
}

// syntheticBatch draws normal embeddings and masks whose valid prefix has
// a random length of at least one.
func syntheticBatch(rng *rand.Rand, backend *cpu.Backend, batchSize, contextLen, questionLen, dim int) (model.Batch[*cpu.Backend], error) {
	var batch model.Batch[*cpu.Backend]
	var err error
	if batch.Context, batch.ContextMask, err = sequence(rng, backend, batchSize, contextLen, dim); err != nil {
		return batch, fmt.Errorf("context: %w", err)
	}
	if batch.Question, batch.QuestionMask, err = sequence(rng, backend, batchSize, questionLen, dim); err != nil {
		return batch, fmt.Errorf("question: %w", err)
	}
	return batch, nil
}

func sequence(rng *rand.Rand, backend *cpu.Backend, batchSize, length, dim int) (embs, mask *tensor.Tensor[float32, *cpu.Backend], err error) {
	if length <= 0 {
		return nil, nil, fmt.Errorf("length must be positive, got %d", length)
	}
	values := make([]float32, batchSize*length*dim)
	for i := range values {
		values[i] = float32(rng.NormFloat64())
	}
	bits := make([]float32, batchSize*length)
	for b := 0; b < batchSize; b++ {
		valid := 1 + rng.IntN(length)
		for t := 0; t < valid; t++ {
			bits[b*length+t] = 1
		}
	}

	if embs, err = tensor.FromSlice(values, tensor.Shape{batchSize, length, dim}, backend); err != nil {
		return nil, nil, err
	}
	if mask, err = tensor.FromSlice(bits, tensor.Shape{batchSize, length}, backend); err != nil {
		return nil, nil, err
	}
	return embs, mask, nil
}

func row(dist *tensor.Tensor[float32, *cpu.Backend], b int) []float32 {
	n := dist.Shape()[1]
	return dist.Data()[b*n : (b+1)*n]
}

func argmax(dist *tensor.Tensor[float32, *cpu.Backend], b int) (int, float32) {
	best := 0
	probs := row(dist, b)
	for i, p := range probs {
		if p > probs[best] {
			best = i
		}
	}
	return best, probs[best]
}
