package source

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

var _ Fetcher = (*GeoRSSClient)(nil)

// GeoRSSClient fetches the GeoRSS variant of an incident feed. Items carry
// their coordinates in the georss "point" extension ("lat lon").
type GeoRSSClient struct {
	opts   Options
	parser *gofeed.Parser
}

func NewGeoRSSClient(opts Options) *GeoRSSClient {
	return &GeoRSSClient{
		opts:   opts.withDefaults(),
		parser: gofeed.NewParser(),
	}
}

func (c *GeoRSSClient) Fetch(ctx context.Context) (Status, []Entry, error) {
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

	fd, err := c.parser.Parse(resp.Body)
	if err != nil {
		return StatusError, nil, fmt.Errorf("failed to parse feed: %w", err)
	}
	if len(fd.Items) == 0 {
		return StatusOKNoData, nil, nil
	}

	entries := make([]Entry, 0, len(fd.Items))
	for _, item := range fd.Items {
		entry, ok := c.entryFromItem(item, fd.Copyright)
		if !ok {
			continue
		}
		if c.opts.keep(entry) {
			entries = append(entries, entry)
		}
	}

	return StatusOK, entries, nil
}

func (c *GeoRSSClient) entryFromItem(item *gofeed.Item, attribution string) (Entry, bool) {
	lat, lon, ok := georssPoint(item)
	if !ok {
		return Entry{}, false
	}

	externalID := item.GUID
	if externalID == "" {
		externalID = item.Link
	}
	if externalID == "" {
		return Entry{}, false
	}

	entry := Entry{
		ExternalID:  externalID,
		Title:       item.Title,
		Latitude:    lat,
		Longitude:   lon,
		DistanceKm:  c.opts.distanceFromHome(lat, lon),
		Attribution: attribution,
	}
	if len(item.Categories) > 0 {
		entry.Category = item.Categories[0]
	}
	if item.PublishedParsed != nil {
		published := *item.PublishedParsed
		entry.PublicationDate = &published
	}
	applyDescription(&entry, parseDescription(item.Description))

	return entry, true
}

func georssPoint(item *gofeed.Item) (lat, lon float64, ok bool) {
	georss, ok := item.Extensions["georss"]
	if !ok {
		return 0, 0, false
	}
	points, ok := georss["point"]
	if !ok || len(points) == 0 {
		return 0, 0, false
	}

	fields := strings.Fields(points[0].Value)
	if len(fields) < 2 {
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return 0, 0, false
	}

	return lat, lon, true
}
