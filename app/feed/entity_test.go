package feed

import (
	"sync"
	"testing"
	"time"

	"github.com/firewatch/geofeed/app/dispatch"
	"github.com/firewatch/geofeed/app/source"
)

// stubProvider serves canned entries without any manager behind it.
type stubProvider struct {
	mu      sync.Mutex
	entries map[string]source.Entry
}

func newStubProvider() *stubProvider {
	return &stubProvider{entries: make(map[string]source.Entry)}
}

func (p *stubProvider) set(entry source.Entry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries[entry.ExternalID] = entry
}

func (p *stubProvider) Entry(externalID string) (source.Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.entries[externalID]
	return entry, ok
}

func (p *stubProvider) IsTracked(externalID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.entries[externalID]
	return ok
}

func newTestEntity(bus *dispatch.Dispatcher) (*LocationEvent, *stubProvider, *recordingRegistrar) {
	provider := newStubProvider()
	registrar := &recordingRegistrar{}
	e := NewLocationEvent(provider, registrar, bus, "test", "A")
	return e, provider, registrar
}

func TestLocationEvent_ActivateSubscribes(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, _, _ := newTestEntity(bus)

	e.Activate()

	if bus.SubscriberCount(SignalDelete("test", "A")) != 1 {
		t.Error("Expected a delete subscription")
	}
	if bus.SubscriberCount(SignalUpdate("test", "A")) != 1 {
		t.Error("Expected an update subscription")
	}

	// Second activation must not double-subscribe.
	e.Activate()
	if bus.SubscriberCount(SignalUpdate("test", "A")) != 1 {
		t.Errorf("Expected 1 update subscription, got %d",
			bus.SubscriberCount(SignalUpdate("test", "A")))
	}
}

func TestLocationEvent_RefreshAppliesEntry(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, provider, _ := newTestEntity(bus)
	e.Activate()

	fire := true
	when := time.Date(2026, 8, 27, 10, 30, 0, 0, time.UTC)
	provider.set(source.Entry{
		ExternalID:        "A",
		Title:             "Bush fire near Pheasants Nest",
		Latitude:          -33.86,
		Longitude:         151.21,
		DistanceKm:        4.2,
		Category:          "Advice",
		PublicationDate:   &when,
		Location:          "Hume Hwy",
		CouncilArea:       "Wollondilly",
		Status:            "Under control",
		Type:              "Bush Fire",
		Fire:              &fire,
		Size:              "20 ha",
		ResponsibleAgency: "Rural Fire Service",
		Attribution:       "NSW Rural Fire Service",
	})

	e.Refresh()

	if e.Name() != "Bush fire near Pheasants Nest" {
		t.Errorf("Unexpected name: %s", e.Name())
	}
	lat, lon := e.Coordinates()
	if lat != -33.86 || lon != 151.21 {
		t.Errorf("Unexpected coordinates: %f, %f", lat, lon)
	}
	if e.DistanceKm() != 4.2 {
		t.Errorf("Unexpected distance: %f", e.DistanceKm())
	}

	attrs := e.Attributes()
	if attrs["external_id"] != "A" {
		t.Errorf("Unexpected external_id attribute: %v", attrs["external_id"])
	}
	if attrs["category"] != "Advice" {
		t.Errorf("Unexpected category attribute: %v", attrs["category"])
	}
	if attrs["council_area"] != "Wollondilly" {
		t.Errorf("Unexpected council_area attribute: %v", attrs["council_area"])
	}
	if attrs["fire"] != true {
		t.Errorf("Unexpected fire attribute: %v", attrs["fire"])
	}
	if attrs["publication_date"] != when {
		t.Errorf("Unexpected publication_date attribute: %v", attrs["publication_date"])
	}
}

func TestLocationEvent_RefreshMissingEntryIsNoOp(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, provider, _ := newTestEntity(bus)
	e.Activate()

	provider.set(testEntry("A"))
	e.Refresh()
	if e.Name() != "Fire A" {
		t.Fatalf("Unexpected name: %s", e.Name())
	}

	// The provider forgetting the id must not blank out existing state.
	provider.mu.Lock()
	delete(provider.entries, "A")
	provider.mu.Unlock()

	e.Refresh()
	if e.Name() != "Fire A" {
		t.Errorf("Expected state to survive a missing entry, got %q", e.Name())
	}
}

func TestLocationEvent_AttributesOmitEmptyButKeepFalseFire(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, provider, _ := newTestEntity(bus)
	e.Activate()

	fire := false
	provider.set(source.Entry{
		ExternalID: "A",
		Title:      "Hazard reduction",
		Latitude:   -33.9,
		Longitude:  151.1,
		DistanceKm: 7.5,
		Fire:       &fire,
	})
	e.Refresh()

	attrs := e.Attributes()
	if _, ok := attrs["category"]; ok {
		t.Error("Expected empty category to be omitted")
	}
	if _, ok := attrs["location"]; ok {
		t.Error("Expected empty location to be omitted")
	}
	if _, ok := attrs["publication_date"]; ok {
		t.Error("Expected absent publication date to be omitted")
	}
	if attrs["fire"] != false {
		t.Errorf("Expected explicit false fire flag to survive, got %v", attrs["fire"])
	}
}

func TestLocationEvent_UpdateSignalRefreshes(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, provider, _ := newTestEntity(bus)
	e.Activate()

	provider.set(testEntry("A"))
	bus.Emit(SignalUpdate("test", "A"))

	waitFor(t, func() bool { return e.Name() == "Fire A" })
}

func TestLocationEvent_DeleteSignalRetires(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, _, registrar := newTestEntity(bus)
	e.Activate()

	bus.Emit(SignalDelete("test", "A"))

	waitFor(t, func() bool { return e.Retired() })

	waitFor(t, func() bool {
		registrar.mu.Lock()
		defer registrar.mu.Unlock()
		return len(registrar.removed) == 1
	})
	registrar.mu.Lock()
	removed := registrar.removed[0]
	registrar.mu.Unlock()
	if removed != "A" {
		t.Errorf("Expected removal of A, got %s", removed)
	}

	waitFor(t, func() bool {
		return bus.SubscriberCount(SignalDelete("test", "A")) == 0 &&
			bus.SubscriberCount(SignalUpdate("test", "A")) == 0
	})
}

func TestLocationEvent_DoubleDeleteIsSafe(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, _, registrar := newTestEntity(bus)
	e.Activate()

	e.handleDelete()
	e.handleDelete()

	if !e.Retired() {
		t.Error("Expected entity to be retired")
	}
	registrar.mu.Lock()
	removals := len(registrar.removed)
	registrar.mu.Unlock()
	if removals != 1 {
		t.Errorf("Expected exactly one removal, got %d", removals)
	}
}

func TestLocationEvent_SignalsAfterRetirementIgnored(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, provider, _ := newTestEntity(bus)
	e.Activate()

	provider.set(testEntry("A"))
	e.Refresh()

	e.handleDelete()

	// A stale refresh after retirement must not change state.
	updated := testEntry("A")
	updated.Title = "Stale update"
	provider.set(updated)
	e.Refresh()

	if e.Name() != "Fire A" {
		t.Errorf("Expected retired entity to ignore refresh, got %q", e.Name())
	}
}

func TestLocationEvent_RefreshBeforeActivateIsNoOp(t *testing.T) {
	bus := dispatch.NewDispatcher()
	e, provider, _ := newTestEntity(bus)

	provider.set(testEntry("A"))
	e.Refresh()

	if e.Name() != "" {
		t.Errorf("Expected unregistered entity to stay empty, got %q", e.Name())
	}
}
