package fetch

import (
	"fmt"

	"RegSonar/internal/domain"
	"RegSonar/internal/ports"
)

// Registry keeps a mapping from fetch kinds to their strategies.
type Registry struct {
	fetchers map[domain.FetchKind]ports.SignalFetcher
}

var _ ports.FetcherRegistry = (*Registry)(nil)

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{fetchers: map[domain.FetchKind]ports.SignalFetcher{}}
}

// Register adds or replaces a fetch strategy.
func (r *Registry) Register(f ports.SignalFetcher) {
	if r.fetchers == nil {
		r.fetchers = map[domain.FetchKind]ports.SignalFetcher{}
	}
	r.fetchers[f.Kind()] = f
}

// Resolve returns the strategy for a kind or an error if it is absent.
func (r *Registry) Resolve(kind domain.FetchKind) (ports.SignalFetcher, error) {
	if f, ok := r.fetchers[kind]; ok {
		return f, nil
	}
	return nil, fmt.Errorf("no fetcher registered for kind %q", kind)
}
