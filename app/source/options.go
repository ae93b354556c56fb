package source

import (
	"fmt"
	"net/http"
	"time"
)

// Format identifies the wire format a feed source publishes in.
const (
	FormatGeoJSON = "geojson"
	FormatGeoRSS  = "georss"
)

// Options configures a fetch collaborator. Radius and category filtering
// happen here, inside the collaborator, so the reconciliation manager only
// ever sees the entries it should track.
type Options struct {
	URL           string
	HomeLatitude  float64
	HomeLongitude float64
	RadiusKm      float64
	Categories    []string
	Timeout       time.Duration
	UserAgent     string
	Client        *http.Client
}

// NewFetcher builds the fetch collaborator for the given wire format.
func NewFetcher(format string, opts Options) (Fetcher, error) {
	switch format {
	case FormatGeoJSON, "":
		return NewClient(opts), nil
	case FormatGeoRSS:
		return NewGeoRSSClient(opts), nil
	default:
		return nil, fmt.Errorf("unsupported feed format: %q", format)
	}
}

func (o Options) withDefaults() Options {
	if o.Client == nil {
		o.Client = http.DefaultClient
	}
	if o.Timeout == 0 {
		o.Timeout = 15 * time.Second
	}
	return o
}

// keep reports whether an entry passes the configured radius and category
// filters.
func (o Options) keep(e Entry) bool {
	if o.RadiusKm > 0 && e.DistanceKm > o.RadiusKm {
		return false
	}
	if len(o.Categories) > 0 {
		matched := false
		for _, c := range o.Categories {
			if c == e.Category {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

func (o Options) distanceFromHome(lat, lon float64) float64 {
	return haversineKm(o.HomeLatitude, o.HomeLongitude, lat, lon)
}
