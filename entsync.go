package entsync

import (
	"log/slog"

	"github.com/vivafolio/entsync/internal/platform"
	"github.com/vivafolio/entsync/pkg/core"
	"github.com/vivafolio/entsync/pkg/engine"
	"github.com/vivafolio/entsync/pkg/eventbus"
)

// Version exposes the version of the library.
const Version = "0.1.0"

// --- Types ---

// Service is the indexing service, the engine's public API surface.
type Service = engine.Service

// Entity is the unit of synchronization.
type Entity = core.Entity

// Properties represents an entity's key-value pairs.
type Properties = core.Properties

// EntityMetadata addresses an entity's backing fragment.
type EntityMetadata = core.EntityMetadata

// EditingModule is the plugin contract for file-type support.
type EditingModule = core.EditingModule

// OpResult is the unified outcome of a mutating operation.
type OpResult = core.OpResult

// DSLModule describes how to edit one embedded table construct.
type DSLModule = core.DSLModule

// --- Configuration ---

// Option defines a functional option for configuring the engine.
type Option = platform.Option

// WithExtensions sets the file extensions eligible for extraction.
func WithExtensions(exts ...string) Option {
	return platform.WithExtensions(exts...)
}

// WithExcludePatterns sets glob patterns for paths to skip.
func WithExcludePatterns(patterns ...string) Option {
	return platform.WithExcludePatterns(patterns...)
}

// WithAsyncEvents switches the event bus to asynchronous delivery.
func WithAsyncEvents(async bool) Option {
	return platform.WithAsyncEvents(async)
}

// WithMaxListeners overrides the per-event listener leak threshold.
func WithMaxListeners(n int) Option {
	return platform.WithMaxListeners(n)
}

// WithListenerErrorHandler routes listener errors to fn instead of the log.
func WithListenerErrorHandler(fn eventbus.ErrorHandler) Option {
	return platform.WithListenerErrorHandler(fn)
}

// WithLogger sets the logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithWatcherErrorHandler registers a callback for watch-loop errors.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// WithEditingModule registers a custom editing module ahead of the
// built-ins.
func WithEditingModule(m core.EditingModule) Option {
	return platform.WithEditingModule(m)
}

// --- Factory ---

// New creates an indexing service over the given watch roots.
func New(watchPaths []string, opts ...Option) (*engine.Service, error) {
	return platform.New(watchPaths, opts...)
}
