package engine

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	WatchPaths          []string `json:"watch_paths"`
	SupportedExtensions []string `json:"supported_extensions"`
	ExcludePatterns     []string `json:"exclude_patterns,omitempty"`
	Entities            int      `json:"entities"`
	EditingModules      int      `json:"editing_modules"`
	DSLModules          int      `json:"dsl_modules"`
	WatcherActive       bool     `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServiceState{
		WatchPaths:          s.config.WatchPaths,
		SupportedExtensions: s.config.SupportedExtensions,
		ExcludePatterns:     s.config.ExcludePatterns,
		Entities:            s.store.Len(),
		EditingModules:      len(s.modules),
		DSLModules:          len(s.dslModules),
		WatcherActive:       s.worker != nil,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "indexing-service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
