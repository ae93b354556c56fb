package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ Fetcher = (*Client)(nil)

// Client fetches a GeoJSON incident feed (NSW Rural Fire Service style) and
// turns its features into filtered entries.
type Client struct {
	opts Options
}

func NewClient(opts Options) *Client {
	return &Client{opts: opts.withDefaults()}
}

// GeoJSON wire types. Geometry coordinates are kept raw because the feed
// mixes Point and GeometryCollection features.
type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string            `json:"type"`
	Geometry   geometry          `json:"geometry"`
	Properties featureProperties `json:"properties"`
}

type geometry struct {
	Type        string              `json:"type"`
	Coordinates jsoniter.RawMessage `json:"coordinates"`
	Geometries  []geometry          `json:"geometries"`
}

type featureProperties struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	GUID        string `json:"guid"`
	Link        string `json:"link"`
	PubDate     string `json:"pubDate"`
	Description string `json:"description"`
}

// point extracts the first point coordinate from a geometry, descending into
// geometry collections. GeoJSON orders coordinates longitude first.
func (g geometry) point() (lat, lon float64, ok bool) {
	switch g.Type {
	case "Point":
		var coords []float64
		if err := json.Unmarshal(g.Coordinates, &coords); err != nil || len(coords) < 2 {
			return 0, 0, false
		}
		return coords[1], coords[0], true
	case "GeometryCollection":
		for _, sub := range g.Geometries {
			if lat, lon, ok := sub.point(); ok {
				return lat, lon, true
			}
		}
	}
	return 0, 0, false
}

func (c *Client) Fetch(ctx context.Context) (Status, []Entry, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, c.opts.URL, nil)
	if err != nil {
		return StatusError, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)

	resp, err := c.opts.Client.Do(req)
	if err != nil {
		return StatusError, nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return StatusOKNoData, nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return StatusError, nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return StatusError, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return StatusOKNoData, nil, nil
	}

	var fc featureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return StatusError, nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if fc.Features == nil {
		return StatusOKNoData, nil, nil
	}

	entries := make([]Entry, 0, len(fc.Features))
	for _, f := range fc.Features {
		entry, ok := c.entryFromFeature(f)
		if !ok {
			continue
		}
		if c.opts.keep(entry) {
			entries = append(entries, entry)
		}
	}

	return StatusOK, entries, nil
}

func (c *Client) entryFromFeature(f feature) (Entry, bool) {
	lat, lon, ok := f.Geometry.point()
	if !ok {
		return Entry{}, false
	}

	externalID := f.Properties.GUID
	if externalID == "" {
		externalID = f.Properties.Link
	}
	if externalID == "" {
		return Entry{}, false
	}

	entry := Entry{
		ExternalID:      externalID,
		Title:           f.Properties.Title,
		Latitude:        lat,
		Longitude:       lon,
		DistanceKm:      c.opts.distanceFromHome(lat, lon),
		Category:        f.Properties.Category,
		PublicationDate: parsePubDate(f.Properties.PubDate),
	}
	applyDescription(&entry, parseDescription(f.Properties.Description))

	return entry, true
}
