// Package metrics provides Prometheus collectors for the listing cache and
// the reconciliation engine.
//
// Metrics are optional. Constructors return nil when the registry is nil,
// and components fall back to their no-op implementations.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the process-wide registry with Go runtime and
// process collectors. Calls after the first are ignored.
func InitRegistry() *prometheus.Registry {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	})
	return registry
}

// GetRegistry returns the process-wide registry, or nil when metrics are disabled
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called
func IsEnabled() bool {
	return GetRegistry() != nil
}
