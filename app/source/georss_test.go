package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const georssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:georss="http://www.georss.org/georss">
  <channel>
    <title>Major Incidents</title>
    <copyright>NSW Rural Fire Service</copyright>
    <item>
      <title>Grass fire at Back Rd</title>
      <guid>https://incidents.example/7</guid>
      <category>Watch and Act</category>
      <pubDate>Thu, 27 Aug 2026 10:30:00 +1000</pubDate>
      <description>ALERT LEVEL: Watch and Act; LOCATION: Back Rd; COUNCIL AREA: Cessnock; STATUS: Being controlled; TYPE: Grass Fire; FIRE: Yes; SIZE: 5 ha; RESPONSIBLE AGENCY: Rural Fire Service</description>
      <georss:point>-33.90 151.10</georss:point>
    </item>
    <item>
      <title>Hazard reduction without coordinates</title>
      <guid>https://incidents.example/8</guid>
      <category>Not Applicable</category>
      <description>TYPE: Hazard Reduction; FIRE: No</description>
    </item>
  </channel>
</rss>`

func newTestGeoRSSClient(t *testing.T, body string, statusCode int, opts Options) *GeoRSSClient {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(statusCode)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	opts.URL = server.URL
	if opts.HomeLatitude == 0 && opts.HomeLongitude == 0 {
		opts.HomeLatitude = -33.8688
		opts.HomeLongitude = 151.2093
	}
	return NewGeoRSSClient(opts)
}

func TestGeoRSSClient_Fetch_OK(t *testing.T) {
	client := newTestGeoRSSClient(t, georssFixture, http.StatusOK, Options{RadiusKm: 50})

	status, entries, err := client.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if status != StatusOK {
		t.Fatalf("Expected StatusOK, got %v", status)
	}

	// The second item has no georss point and is skipped.
	if len(entries) != 1 {
		t.Fatalf("Expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	if entry.ExternalID != "https://incidents.example/7" {
		t.Errorf("Unexpected external id: %s", entry.ExternalID)
	}
	if entry.Latitude != -33.90 || entry.Longitude != 151.10 {
		t.Errorf("Unexpected coordinates: %f, %f", entry.Latitude, entry.Longitude)
	}
	if entry.Category != "Watch and Act" {
		t.Errorf("Unexpected category: %s", entry.Category)
	}
	if entry.Location != "Back Rd" {
		t.Errorf("Unexpected location: %s", entry.Location)
	}
	if entry.Fire == nil || !*entry.Fire {
		t.Error("Expected fire flag true")
	}
	if entry.Attribution != "NSW Rural Fire Service" {
		t.Errorf("Unexpected attribution: %s", entry.Attribution)
	}
	if entry.PublicationDate == nil {
		t.Error("Expected publication date")
	}
	if entry.DistanceKm <= 0 || entry.DistanceKm > 15 {
		t.Errorf("Unexpected distance: %f", entry.DistanceKm)
	}
}

func TestGeoRSSClient_Fetch_EmptyChannel(t *testing.T) {
	body := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Major Incidents</title></channel></rss>`
	client := newTestGeoRSSClient(t, body, http.StatusOK, Options{})

	status, _, err := client.Fetch(context.Background())
	if status != StatusOKNoData {
		t.Errorf("Expected StatusOKNoData, got %v", status)
	}
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestGeoRSSClient_Fetch_HTTPError(t *testing.T) {
	client := newTestGeoRSSClient(t, "", http.StatusServiceUnavailable, Options{})

	status, _, err := client.Fetch(context.Background())
	if status != StatusError {
		t.Errorf("Expected StatusError, got %v", status)
	}
	if err == nil {
		t.Error("Expected an error")
	}
}

func TestGeoRSSClient_Fetch_MalformedXML(t *testing.T) {
	client := newTestGeoRSSClient(t, "<rss><channel>", http.StatusOK, Options{})

	status, _, err := client.Fetch(context.Background())
	if status != StatusError {
		t.Errorf("Expected StatusError, got %v", status)
	}
	if err == nil {
		t.Error("Expected an error")
	}
}

func TestGeoRSSClient_NewFetcher(t *testing.T) {
	fetcher, err := NewFetcher(FormatGeoRSS, Options{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := fetcher.(*GeoRSSClient); !ok {
		t.Errorf("Expected a GeoRSSClient, got %T", fetcher)
	}

	fetcher, err = NewFetcher("", Options{URL: "http://example.com"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if _, ok := fetcher.(*Client); !ok {
		t.Errorf("Expected a Client, got %T", fetcher)
	}

	if _, err := NewFetcher("kml", Options{}); err == nil {
		t.Error("Expected an error for unsupported format")
	}
}
