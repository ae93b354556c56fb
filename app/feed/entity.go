package feed

import (
	"log/slog"
	"sync"
	"time"

	"github.com/firewatch/geofeed/app/dispatch"
	"github.com/firewatch/geofeed/app/source"
)

// DistanceUnit is the unit all entity distances are reported in.
const DistanceUnit = "km"

type entityState int

const (
	stateUnregistered entityState = iota
	stateActive
	stateRetired
)

// LocationEvent represents one tracked incident to the outside world. It
// subscribes to its own delete/update signals on activation, pulls fresh
// data from its manager whenever an update arrives, and retires itself on
// delete. Retired is terminal: late or duplicate signals are ignored.
type LocationEvent struct {
	provider   EntryProvider
	registrar  EntityRegistrar
	bus        *dispatch.Dispatcher
	sourceName string
	externalID string

	mu    sync.Mutex
	state entityState
	subs  []*dispatch.Subscription

	title             string
	distanceKm        float64
	latitude          float64
	longitude         float64
	category          string
	publicationDate   *time.Time
	location          string
	councilArea       string
	status            string
	eventType         string
	fire              *bool
	size              string
	responsibleAgency string
	attribution       string
}

func NewLocationEvent(provider EntryProvider, registrar EntityRegistrar,
	bus *dispatch.Dispatcher, sourceName, externalID string) *LocationEvent {
	return &LocationEvent{
		provider:   provider,
		registrar:  registrar,
		bus:        bus,
		sourceName: sourceName,
		externalID: externalID,
	}
}

// Activate subscribes the entity to its delete and update signals. Called by
// the registrar when the entity is added; calling it twice is a no-op.
func (e *LocationEvent) Activate() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateUnregistered {
		return
	}

	e.subs = append(e.subs,
		e.bus.Subscribe(SignalDelete(e.sourceName, e.externalID), e.handleDelete),
		e.bus.Subscribe(SignalUpdate(e.sourceName, e.externalID), e.handleUpdate),
	)
	e.state = stateActive
}

func (e *LocationEvent) handleUpdate() {
	e.Refresh()
}

// Refresh pulls the latest entry from the manager and applies it. An id
// missing from the manager's entries is treated as a no-op refresh.
func (e *LocationEvent) Refresh() {
	// The provider lookup happens outside the entity lock; the manager
	// holds its own lock for the duration of a cycle.
	entry, ok := e.provider.Entry(e.externalID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != stateActive {
		return
	}

	slog.Debug("Updating event entity", "source", e.sourceName, "external_id", e.externalID)
	e.applyEntry(entry)
}

func (e *LocationEvent) handleDelete() {
	e.mu.Lock()
	if e.state != stateActive {
		e.mu.Unlock()
		return
	}
	e.state = stateRetired
	subs := e.subs
	e.subs = nil
	e.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	e.registrar.Remove(e.sourceName, e.externalID)

	slog.Debug("Event entity retired", "source", e.sourceName, "external_id", e.externalID)
}

func (e *LocationEvent) applyEntry(entry source.Entry) {
	e.title = entry.Title
	e.distanceKm = entry.DistanceKm
	e.latitude = entry.Latitude
	e.longitude = entry.Longitude
	e.category = entry.Category
	e.publicationDate = entry.PublicationDate
	e.location = entry.Location
	e.councilArea = entry.CouncilArea
	e.status = entry.Status
	e.eventType = entry.Type
	e.fire = entry.Fire
	e.size = entry.Size
	e.responsibleAgency = entry.ResponsibleAgency
	e.attribution = entry.Attribution
}

func (e *LocationEvent) Source() string {
	return e.sourceName
}

func (e *LocationEvent) ExternalID() string {
	return e.externalID
}

func (e *LocationEvent) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.title
}

func (e *LocationEvent) Coordinates() (lat, lon float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.latitude, e.longitude
}

func (e *LocationEvent) DistanceKm() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.distanceKm
}

func (e *LocationEvent) Retired() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == stateRetired
}

// Attributes renders the optional attributes for display. Empty values are
// omitted, except the fire flag, which is included whenever the feed carried
// it so an explicit false survives.
func (e *LocationEvent) Attributes() map[string]any {
	e.mu.Lock()
	defer e.mu.Unlock()

	attrs := make(map[string]any)
	for key, value := range map[string]string{
		"external_id":        e.externalID,
		"category":           e.category,
		"location":           e.location,
		"council_area":       e.councilArea,
		"status":             e.status,
		"type":               e.eventType,
		"size":               e.size,
		"responsible_agency": e.responsibleAgency,
		"attribution":        e.attribution,
	} {
		if value != "" {
			attrs[key] = value
		}
	}
	if e.publicationDate != nil {
		attrs["publication_date"] = *e.publicationDate
	}
	if e.fire != nil {
		attrs["fire"] = *e.fire
	}

	return attrs
}
