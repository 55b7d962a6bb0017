package geospatial

import (
	"sort"
	"sync"
)

// Registry maps metric names to prototype instances used to rebuild metrics
// from their serialised form. A new registry knows GreatCircleMetric; other
// metrics are added with Register.
//
// Registries are built once at startup and passed to the code that decodes
// metrics. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]DistanceMetric
}

// NewRegistry returns a registry holding the built-in metrics.
func NewRegistry() *Registry {
	r := &Registry{metrics: make(map[string]DistanceMetric)}
	r.Register(NewGreatCircleMetric())
	return r
}

// Register adds a prototype under m.Name(), replacing any earlier metric of
// the same name.
func (r *Registry) Register(m DistanceMetric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[m.Name()] = m.Clone()
}

// Metric returns a clone of the prototype registered under name.
func (r *Registry) Metric(name string) (DistanceMetric, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.metrics[name]
	if !ok {
		return nil, NewUnknownMetricError(name)
	}
	return m.Clone(), nil
}

// UnserialiseMetric rebuilds a metric from its name and serialised parameters.
func (r *Registry) UnserialiseMetric(name string, params []byte) (DistanceMetric, error) {
	proto, err := r.Metric(name)
	if err != nil {
		return nil, err
	}
	return proto.Unserialise(params)
}

// Names returns the registered metric names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
