// Package registry holds the live entity set. It is the registration
// collaborator the reconciliation managers hand new entity batches to, and
// the read surface the HTTP API lists entities from.
package registry

import (
	"log/slog"
	"sync"

	"github.com/firewatch/geofeed/app/feed"
)

var _ feed.EntityRegistrar = (*Registry)(nil)

type Registry struct {
	mu       sync.RWMutex
	entities map[string]*feed.LocationEvent
}

func New() *Registry {
	return &Registry{
		entities: make(map[string]*feed.LocationEvent),
	}
}

// Add registers a batch of newly created entities, activating each one. When
// initialRefresh is set, the batch is refreshed asynchronously so entities
// show data before their first update signal arrives.
func (r *Registry) Add(entities []*feed.LocationEvent, initialRefresh bool) {
	r.mu.Lock()
	for _, e := range entities {
		e.Activate()
		r.entities[key(e.Source(), e.ExternalID())] = e
	}
	r.mu.Unlock()

	slog.Debug("Entities registered", "count", len(entities), "initial_refresh", initialRefresh)

	if initialRefresh {
		go func() {
			for _, e := range entities {
				e.Refresh()
			}
		}()
	}
}

// Remove drops an entity from the registry. Called by the entity itself when
// it retires.
func (r *Registry) Remove(sourceName, externalID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entities, key(sourceName, externalID))
}

func (r *Registry) Get(sourceName, externalID string) (*feed.LocationEvent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[key(sourceName, externalID)]
	return e, ok
}

// List returns a snapshot of all registered entities.
func (r *Registry) List() []*feed.LocationEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entities := make([]*feed.LocationEvent, 0, len(r.entities))
	for _, e := range r.entities {
		entities = append(entities, e)
	}
	return entities
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

func key(sourceName, externalID string) string {
	return sourceName + "/" + externalID
}
