package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"
)

// Option adjusts how environment variables are read.
type Option func(*env.Options)

// WithPrefix prepends prefix to every env tag, e.g. "BACKOFFICE_".
func WithPrefix(prefix string) Option {
	return func(o *env.Options) { o.Prefix = prefix }
}

// WithEnvironment reads from the given map instead of the process
// environment. Used by tests.
func WithEnvironment(vars map[string]string) Option {
	return func(o *env.Options) { o.Environment = vars }
}

// Load parses environment variables into cfg using `env` and `envDefault`
// struct tags.
func Load(cfg any, opts ...Option) error {
	var o env.Options
	for _, opt := range opts {
		opt(&o)
	}
	if err := env.ParseWithOptions(cfg, o); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}
