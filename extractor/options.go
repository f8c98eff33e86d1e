package extractor

import (
	"context"
	"time"
)

type Option func(*Options)

type Options struct {
	ApiKey       string
	Location     string
	Instruction  string
	Cooldown     time.Duration
	PollInterval time.Duration
	Context      context.Context
}

func WithApiKey(apiKey string) Option {
	return func(o *Options) {
		o.ApiKey = apiKey
	}
}

func WithLocation(loc string) Option {
	return func(o *Options) {
		o.Location = loc
	}
}

func WithInstruction(instruction string) Option {
	return func(o *Options) {
		o.Instruction = instruction
	}
}

// WithCooldown sets the delay observed after each remote parse call so
// the provider's rate limit is not tripped. Zero disables the delay.
func WithCooldown(d time.Duration) Option {
	return func(o *Options) {
		o.Cooldown = d
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = d
	}
}

func NewOptions(opts ...Option) Options {
	options := Options{
		Instruction:  "Extract all information",
		Cooldown:     4 * time.Second,
		PollInterval: time.Second,
		Context:      context.Background(),
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
