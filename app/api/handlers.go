package api

import (
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/firewatch/geofeed/app/feed"
	"github.com/firewatch/geofeed/app/registry"
)

func NewHandler(configCache *feed.ConfigCache, reg *registry.Registry,
	managers map[string]*feed.Manager) *Handler {
	return &Handler{
		configCache: configCache,
		registry:    reg,
		managers:    managers,
	}
}

// GetEvents lists all tracked events, nearest first. An optional "source"
// query narrows the list to one feed source.
func (h *Handler) GetEvents(c *gin.Context) {
	sourceFilter := c.Query("source")

	events := make([]EventResponse, 0)
	for _, e := range h.registry.List() {
		if sourceFilter != "" && e.Source() != sourceFilter {
			continue
		}
		events = append(events, eventResponse(e))
	}

	sort.Slice(events, func(i, j int) bool {
		return events[i].Distance < events[j].Distance
	})

	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

// GetEvent returns a single event. External ids are feed-assigned URLs, so
// they travel as a query parameter rather than a path segment.
func (h *Handler) GetEvent(c *gin.Context) {
	sourceName := c.Query("source")
	externalID := c.Query("external_id")
	if sourceName == "" || externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "source and external_id query parameters are required"})
		return
	}

	e, ok := h.registry.Get(sourceName, externalID)
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	c.JSON(http.StatusOK, eventResponse(e))
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.configCache.GetConfigCount(),
		"tracked":   h.registry.Count(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	stats := make([]SourceStatsResponse, 0, len(h.managers))
	for _, m := range h.managers {
		s := m.GetStats()
		resp := SourceStatsResponse{
			Source:     s.Source,
			URL:        s.URL,
			Tracked:    s.Tracked,
			LastStatus: s.LastStatus,
			Cycles:     s.Cycles,
		}
		if !s.LastFetchAt.IsZero() {
			fetchedAt := s.LastFetchAt
			resp.LastFetchAt = &fetchedAt
		}
		stats = append(stats, resp)
	}

	sort.Slice(stats, func(i, j int) bool {
		return stats[i].Source < stats[j].Source
	})

	c.JSON(http.StatusOK, gin.H{"sources": stats})
}

// ListSources reports the configured watch definitions.
func (h *Handler) ListSources(c *gin.Context) {
	configs := h.configCache.GetConfigs()

	sources := make([]gin.H, 0, len(configs))
	for _, cfg := range configs {
		sources = append(sources, gin.H{
			"name":          cfg.Name,
			"url":           cfg.URL,
			"format":        cfg.Format,
			"enabled":       cfg.Settings.Enabled,
			"scan_interval": cfg.Settings.ScanInterval,
			"radius_km":     cfg.Settings.RadiusKm,
			"categories":    cfg.Settings.Categories,
		})
	}

	sort.Slice(sources, func(i, j int) bool {
		return sources[i]["name"].(string) < sources[j]["name"].(string)
	})

	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// RefreshSource triggers an out-of-band reconciliation cycle for one source.
func (h *Handler) RefreshSource(c *gin.Context) {
	name := c.Param("name")

	m, ok := h.managers[name]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown source: " + name})
		return
	}

	go m.Reconcile()
	slog.Info("Manual refresh triggered", "source", name)

	c.JSON(http.StatusAccepted, gin.H{"source": name, "status": "refresh scheduled"})
}

func eventResponse(e *feed.LocationEvent) EventResponse {
	lat, lon := e.Coordinates()
	return EventResponse{
		ExternalID:        e.ExternalID(),
		Source:            e.Source(),
		Name:              e.Name(),
		Latitude:          lat,
		Longitude:         lon,
		Distance:          e.DistanceKm(),
		UnitOfMeasurement: feed.DistanceUnit,
		Attributes:        e.Attributes(),
	}
}
