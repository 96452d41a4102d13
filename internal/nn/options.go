package nn

import (
	"math/rand/v2"
)

// Option configures layer construction.
type Option func(*options)

type options struct {
	scope Scope
	src   rand.Source
}

// WithScope places the layer's parameters under scope.
func WithScope(scope Scope) Option {
	return func(o *options) {
		o.scope = scope
	}
}

// WithSource draws initial weights and dropout masks from src, making
// construction and training-mode forward passes reproducible.
func WithSource(src rand.Source) Option {
	return func(o *options) {
		o.src = src
	}
}

func newOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// source returns a new independent source derived from the configured one.
func (o *options) source() rand.Source {
	if o.src == nil {
		return rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return rand.NewPCG(o.src.Uint64(), o.src.Uint64())
}
