package platform

import (
	"fmt"

	"github.com/vivafolio/entsync/pkg/engine"
)

// New builds an indexing service over the given watch roots.
func New(watchPaths []string, opts ...Option) (*engine.Service, error) {
	if len(watchPaths) == 0 {
		return nil, fmt.Errorf("no watch paths configured")
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	svc := engine.NewService(engine.Config{
		WatchPaths:          watchPaths,
		SupportedExtensions: o.extensions,
		ExcludePatterns:     o.excludePatterns,
		Delivery:            o.delivery,
		MaxListeners:        o.maxListeners,
		BusErrorHandler:     o.busErrorHandler,
		Logger:              o.logger,
		ErrorHandler:        o.errorHandler,
	})

	for _, m := range o.modules {
		svc.RegisterEditingModule(m)
	}
	return svc, nil
}
