package chat

import "context"

type Option func(*Options)

type Options struct {
	CustomInstructions string
	Context            context.Context
}

// WithCustomInstructions prepends user-supplied instructions verbatim
// to every question before it is answered.
func WithCustomInstructions(instructions string) Option {
	return func(o *Options) {
		o.CustomInstructions = instructions
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Context: context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
