package repository

import "github.com/chronoverse/chronoverse/pkg/logger"

// Option applies a configuration option to a store.
type Option func(*storeOptions)

type storeOptions struct {
	log           logger.Logger
	reportMetrics bool
}

func defaultOptions() storeOptions {
	return storeOptions{log: logger.Nop(), reportMetrics: true}
}

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(o *storeOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithMetrics toggles publishing the dataset size gauge after writes.
func WithMetrics(enabled bool) Option {
	return func(o *storeOptions) {
		o.reportMetrics = enabled
	}
}
