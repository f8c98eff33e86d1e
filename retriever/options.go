package retriever

import "context"

const DefaultTopK = 2

type Option func(*Options)

type Options struct {
	TopK    int
	Context context.Context
}

func WithTopK(k int) Option {
	return func(o *Options) {
		o.TopK = k
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		TopK:    DefaultTopK,
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
