package retrieval

import (
	"fmt"

	"github.com/pensieve-cloud/pensieve/internal/domain"
	"github.com/pensieve-cloud/pensieve/internal/domain/source"
)

// Registry maps each data-source kind to its extraction strategy. It is
// built once at startup and never mutated afterwards, so concurrent
// lookups need no locking.
type Registry struct {
	strategies map[source.Kind]Strategy
}

// NewRegistry builds a registry from an explicit strategy list.
// Registering two strategies for one kind is a configuration bug and
// fails construction.
func NewRegistry(strategies ...Strategy) (*Registry, error) {
	r := &Registry{strategies: make(map[source.Kind]Strategy, len(strategies))}
	for _, s := range strategies {
		if _, ok := r.strategies[s.Kind()]; ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrStrategyConflict, s.Kind())
		}
		r.strategies[s.Kind()] = s
	}
	return r, nil
}

// Resolve returns the strategy for kind. A miss means a kind was left
// unregistered at startup, which is a deployment error, not user input.
func (r *Registry) Resolve(kind source.Kind) (Strategy, error) {
	s, ok := r.strategies[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoStrategy, kind)
	}
	return s, nil
}

// Complete verifies every known kind has a strategy. Checked at startup
// before the service accepts traffic.
func (r *Registry) Complete() error {
	for _, k := range source.All() {
		if _, ok := r.strategies[k]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrNoStrategy, k)
		}
	}
	return nil
}

// DefaultRegistry enumerates the full production strategy set: chat backed
// by the message store, every other kind backed by the chunk store.
func DefaultRegistry(chunks ChunkStore, messages MessageStore) (*Registry, error) {
	strategies := []Strategy{NewMessageStrategy(messages)}
	for _, k := range source.All() {
		if k == source.Chat {
			continue
		}
		strategies = append(strategies, NewChunkStrategy(k, chunks))
	}

	r, err := NewRegistry(strategies...)
	if err != nil {
		return nil, err
	}
	if err := r.Complete(); err != nil {
		return nil, err
	}
	return r, nil
}
