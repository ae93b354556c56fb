package api

import (
	"time"

	"github.com/firewatch/geofeed/app/feed"
	"github.com/firewatch/geofeed/app/registry"
)

type Handler struct {
	configCache *feed.ConfigCache
	registry    *registry.Registry
	managers    map[string]*feed.Manager
}

// EventResponse is the JSON shape of one tracked location event.
type EventResponse struct {
	ExternalID        string         `json:"external_id"`
	Source            string         `json:"source"`
	Name              string         `json:"name"`
	Latitude          float64        `json:"latitude"`
	Longitude         float64        `json:"longitude"`
	Distance          float64        `json:"distance"`
	UnitOfMeasurement string         `json:"unit_of_measurement"`
	Attributes        map[string]any `json:"attributes"`
}

// SourceStatsResponse reports one manager's reconciliation state.
type SourceStatsResponse struct {
	Source      string     `json:"source"`
	URL         string     `json:"url"`
	Tracked     int        `json:"tracked"`
	LastStatus  string     `json:"last_status"`
	LastFetchAt *time.Time `json:"last_fetch_at,omitempty"`
	Cycles      int        `json:"cycles"`
}
