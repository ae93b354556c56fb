package feed

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/firewatch/geofeed/app/dispatch"
	"github.com/firewatch/geofeed/app/source"
)

var _ EntryProvider = (*Manager)(nil)

// Manager owns the state of one watched feed source: the last fetched
// entries keyed by external id, and the set of ids that currently have a
// live entity. It runs one reconciliation cycle per scan interval and is the
// single source of truth entities query.
type Manager struct {
	config    *Config
	fetcher   source.Fetcher
	bus       *dispatch.Dispatcher
	registrar EntityRegistrar

	// mu spans a whole reconciliation cycle, fetch included. Cycles are
	// already serialized by the single ticker goroutine; the mutex also
	// covers reads from entity and HTTP handlers.
	mu      sync.Mutex
	entries map[string]source.Entry
	tracked map[string]struct{}

	lastStatus  source.Status
	lastFetchAt time.Time
	cycles      int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Stats is a point-in-time snapshot of a manager for monitoring.
type Stats struct {
	Source      string
	URL         string
	Tracked     int
	LastStatus  string
	LastFetchAt time.Time
	Cycles      int
}

func NewManager(config *Config, fetcher source.Fetcher, bus *dispatch.Dispatcher,
	registrar EntityRegistrar) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:    config,
		fetcher:   fetcher,
		bus:       bus,
		registrar: registrar,
		entries:   make(map[string]source.Entry),
		tracked:   make(map[string]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (m *Manager) Name() string {
	return m.config.Name
}

// Start runs one immediate reconciliation cycle, then arms the periodic
// trigger. A failing initial fetch is handled like any other cycle and never
// prevents the trigger from being armed.
func (m *Manager) Start() {
	m.Reconcile()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(time.Duration(m.config.Settings.ScanInterval) * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				m.Reconcile()
			}
		}
	}()
}

func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Reconcile executes one fetch-diff-dispatch cycle. Fetch failures are never
// propagated: a failure retires every tracked entity so that stale safety
// data is not displayed as current, and the next tick retries on its own.
func (m *Manager) Reconcile() {
	m.mu.Lock()
	defer m.mu.Unlock()

	status, fetched, err := m.fetcher.Fetch(m.ctx)

	m.lastStatus = status
	m.lastFetchAt = time.Now().UTC()
	m.cycles++

	switch status {
	case source.StatusOKNoData:
		slog.Debug("Update successful, but no data received", "source", m.config.Name)
		return

	case source.StatusError:
		slog.Warn("Update not successful, retiring all tracked events",
			"source", m.config.Name, "tracked", len(m.tracked), "error", err)
		m.entries = make(map[string]source.Entry)
		m.removeEntities(m.trackedIDs())
		return
	}

	slog.Debug("Data retrieved", "source", m.config.Name, "count", len(fetched))

	// Keep a copy of all entries for later lookups by entities. The map is
	// replaced wholesale, never merged.
	m.entries = make(map[string]source.Entry, len(fetched))
	for _, entry := range fetched {
		m.entries[entry.ExternalID] = entry
	}

	var toRemove, toUpdate, toCreate []string
	for id := range m.tracked {
		if _, ok := m.entries[id]; ok {
			toUpdate = append(toUpdate, id)
		} else {
			toRemove = append(toRemove, id)
		}
	}
	for id := range m.entries {
		if _, ok := m.tracked[id]; !ok {
			toCreate = append(toCreate, id)
		}
	}
	sort.Strings(toRemove)
	sort.Strings(toUpdate)
	sort.Strings(toCreate)

	// Removal first bounds the working set; update before create keeps
	// churn on existing ids apart from creation.
	m.removeEntities(toRemove)
	m.updateEntities(toUpdate)
	m.createEntities(toCreate)

	slog.Info("Reconciliation cycle completed", "source", m.config.Name,
		"tracked", len(m.tracked), "created", len(toCreate),
		"updated", len(toUpdate), "removed", len(toRemove))
}

func (m *Manager) removeEntities(externalIDs []string) {
	for _, id := range externalIDs {
		slog.Debug("Event not current anymore", "source", m.config.Name, "external_id", id)
		// Membership changes before the signal goes out, so a subscriber
		// reacting to the delete never observes itself as still tracked.
		delete(m.tracked, id)
		m.bus.Emit(SignalDelete(m.config.Name, id))
	}
}

func (m *Manager) updateEntities(externalIDs []string) {
	for _, id := range externalIDs {
		slog.Debug("Existing event found", "source", m.config.Name, "external_id", id)
		m.bus.Emit(SignalUpdate(m.config.Name, id))
	}
}

func (m *Manager) createEntities(externalIDs []string) {
	if len(externalIDs) == 0 {
		return
	}

	entities := make([]*LocationEvent, 0, len(externalIDs))
	for _, id := range externalIDs {
		slog.Debug("New event added", "source", m.config.Name, "external_id", id)
		entities = append(entities, NewLocationEvent(m, m.registrar, m.bus, m.config.Name, id))
		m.tracked[id] = struct{}{}
	}

	// One batch per cycle; the registrar may do bulk setup work.
	m.registrar.Add(entities, true)
}

func (m *Manager) trackedIDs() []string {
	ids := make([]string, 0, len(m.tracked))
	for id := range m.tracked {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Entry returns the latest fetched entry for an external id.
func (m *Manager) Entry(externalID string) (source.Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.entries[externalID]
	return entry, ok
}

// IsTracked reports whether an external id currently has a live entity.
func (m *Manager) IsTracked(externalID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tracked[externalID]
	return ok
}

func (m *Manager) TrackedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tracked)
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{
		Source:      m.config.Name,
		URL:         m.config.URL,
		Tracked:     len(m.tracked),
		LastStatus:  m.lastStatus.String(),
		LastFetchAt: m.lastFetchAt,
		Cycles:      m.cycles,
	}
}
