package feed

import (
	"github.com/firewatch/geofeed/app/source"
)

// SignalDelete names the per-identifier channel an entity is retired on.
// Signal names are unique per identifier for the lifetime of a source.
func SignalDelete(sourceName, externalID string) string {
	return sourceName + "/delete/" + externalID
}

// SignalUpdate names the per-identifier channel an entity is refreshed on.
func SignalUpdate(sourceName, externalID string) string {
	return sourceName + "/update/" + externalID
}

// EntryProvider is the read-only view an entity keeps of its manager. The
// entity never owns or mutates manager state; it only looks entries up.
type EntryProvider interface {
	Entry(externalID string) (source.Entry, bool)
	IsTracked(externalID string) bool
}

// EntityRegistrar receives newly created entities, one batch per
// reconciliation cycle, and serves removal when an entity retires itself.
type EntityRegistrar interface {
	Add(entities []*LocationEvent, initialRefresh bool)
	Remove(sourceName, externalID string)
}
