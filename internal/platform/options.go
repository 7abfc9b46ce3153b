package platform

import (
	"log/slog"

	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/eventbus"
)

// options holds the internal configuration for the engine.
type options struct {
	extensions      []string
	excludePatterns []string
	delivery        eventbus.DeliveryMode
	maxListeners    int
	busErrorHandler eventbus.ErrorHandler
	logger          *slog.Logger
	errorHandler    func(error)
	modules         []core.EditingModule
}

// Option defines a functional option for configuring the engine.
type Option func(*options)

func defaultOptions() *options {
	return &options{
		delivery: eventbus.Sync,
	}
}

// WithExtensions sets the file extensions eligible for extraction.
func WithExtensions(exts ...string) Option {
	return func(o *options) {
		o.extensions = exts
	}
}

// WithExcludePatterns sets doublestar globs for paths to skip.
func WithExcludePatterns(patterns ...string) Option {
	return func(o *options) {
		o.excludePatterns = patterns
	}
}

// WithAsyncEvents switches the bus to asynchronous delivery.
func WithAsyncEvents(async bool) Option {
	return func(o *options) {
		if async {
			o.delivery = eventbus.Async
		} else {
			o.delivery = eventbus.Sync
		}
	}
}

// WithMaxListeners overrides the per-event listener leak threshold.
func WithMaxListeners(n int) Option {
	return func(o *options) {
		o.maxListeners = n
	}
}

// WithListenerErrorHandler routes listener errors to fn instead of the log.
func WithListenerErrorHandler(fn eventbus.ErrorHandler) Option {
	return func(o *options) {
		o.busErrorHandler = fn
	}
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithWatcherErrorHandler registers a callback for errors occurring during
// the watch loop, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.errorHandler = fn
	}
}

// WithEditingModule registers a custom editing module ahead of the
// built-ins.
func WithEditingModule(m core.EditingModule) Option {
	return func(o *options) {
		o.modules = append(o.modules, m)
	}
}
