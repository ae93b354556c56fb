package source

import (
	"context"
	"time"
)

// Status describes the outcome of a single fetch against a remote feed.
type Status int

const (
	// StatusOK means the feed responded with a current feature set. The
	// accompanying entry slice may legitimately be empty when every event
	// has been filtered out or the feed affirmatively reports zero events.
	StatusOK Status = iota
	// StatusOKNoData means the fetch succeeded but carried no payload
	// (HTTP 304 or an empty body). Callers must not treat this as a
	// failure and must not treat it as "the feed now has zero events".
	StatusOKNoData
	// StatusError means a transport or parse failure.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusOKNoData:
		return "ok_no_data"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Entry is one geo-tagged incident from a feed fetch. Entries are immutable
// once built; a later fetch produces a new Entry under the same ExternalID.
type Entry struct {
	ExternalID string
	Title      string
	Latitude   float64
	Longitude  float64
	DistanceKm float64

	// Optional attributes. An empty string means the feed did not carry
	// the attribute; Fire is presence-flagged so that an explicit "No"
	// survives, unlike an absent value.
	Category          string
	PublicationDate   *time.Time
	Location          string
	CouncilArea       string
	Status            string
	Type              string
	Fire              *bool
	Size              string
	ResponsibleAgency string
	Attribution       string
}

// Fetcher is the fetch collaborator the reconciliation manager polls.
type Fetcher interface {
	Fetch(ctx context.Context) (Status, []Entry, error)
}

// ValidCategories is the fixed alert-level enumeration used by the feed.
var ValidCategories = []string{
	"Emergency Warning",
	"Watch and Act",
	"Advice",
	"Not Applicable",
}

// IsValidCategory reports whether category is part of the fixed enumeration.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}
