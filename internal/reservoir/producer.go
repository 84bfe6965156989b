package reservoir

import (
	"context"
)

// Producer builds a fresh subject for one sweep step.
type Producer interface {
	Produce(ctx context.Context, cfg Config, opts Options) (Subject, error)
}

// ESNProducer builds Networks. Distribution and Ridge apply to every
// network unless the per-call Options set them.
type ESNProducer struct {
	Distribution string
	Ridge        float64
}

// Produce implements Producer.
func (p ESNProducer) Produce(ctx context.Context, cfg Config, opts Options) (Subject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Distribution == "" {
		opts.Distribution = p.Distribution
	}
	if opts.Ridge == 0 {
		opts.Ridge = p.Ridge
	}
	return NewNetwork(cfg, opts)
}

// ProducerFunc adapts a function to Producer.
type ProducerFunc func(ctx context.Context, cfg Config, opts Options) (Subject, error)

// Produce implements Producer.
func (f ProducerFunc) Produce(ctx context.Context, cfg Config, opts Options) (Subject, error) {
	return f(ctx, cfg, opts)
}
