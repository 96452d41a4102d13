package nn

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/born-ml/readcomp/internal/tensor"
	"gonum.org/v1/gonum/stat/distuv"
)

// KeepProb is the probability of keeping a unit under dropout, shared by
// every layer built with it. 1.0 disables dropout (inference).
//
// It is safe for concurrent use.
type KeepProb struct {
	bits atomic.Uint64
}

// NewKeepProb creates a KeepProb set to p.
func NewKeepProb(p float64) (*KeepProb, error) {
	k := &KeepProb{}
	if err := k.Set(p); err != nil {
		return nil, err
	}
	return k, nil
}

// Inference returns a KeepProb fixed at 1.0.
func Inference() *KeepProb {
	k := &KeepProb{}
	k.bits.Store(math.Float64bits(1))
	return k
}

// Get returns the current keep probability. A nil KeepProb reads as 1.0.
func (k *KeepProb) Get() float64 {
	if k == nil {
		return 1
	}
	return math.Float64frombits(k.bits.Load())
}

// Set updates the keep probability. p must lie in (0, 1].
func (k *KeepProb) Set(p float64) error {
	if math.IsNaN(p) || p <= 0 || p > 1 {
		return fmt.Errorf("keep probability %v outside (0, 1]", p)
	}
	k.bits.Store(math.Float64bits(p))
	return nil
}

// Dropout implements inverted dropout: each element is kept with
// probability keep and scaled by 1/keep, otherwise zeroed.
type Dropout[B tensor.Backend] struct {
	keep *KeepProb

	mu   sync.Mutex
	dist distuv.Bernoulli
}

// NewDropout creates a dropout layer reading its rate from keep.
// A nil src uses a randomly seeded generator.
func NewDropout[B tensor.Backend](keep *KeepProb, src rand.Source) *Dropout[B] {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Dropout[B]{
		keep: keep,
		dist: distuv.Bernoulli{P: 1, Src: src},
	}
}

// Forward applies dropout. With keep == 1 the input is returned as is.
func (d *Dropout[B]) Forward(x *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	p := d.keep.Get()
	if p >= 1 {
		return x
	}

	mask := tensor.Zeros[float32](x.Shape(), x.Backend())
	data := mask.Data()
	scale := float32(1 / p)

	d.mu.Lock()
	d.dist.P = p
	for i := range data {
		data[i] = float32(d.dist.Rand()) * scale
	}
	d.mu.Unlock()

	return x.Mul(mask)
}
