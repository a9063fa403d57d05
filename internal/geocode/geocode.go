// Package geocode resolves free-text locations to map coordinates.
package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/journeyhub/internal/model"
)

// DefaultBaseURL is MapTiler's public API.
const DefaultBaseURL = "https://api.maptiler.com"

// Geocoder maps an address to a point.
//
// Forward returns (nil, nil) when the query has no match. An error means the
// lookup itself failed and the answer is unknown.
type Geocoder interface {
	Forward(ctx context.Context, query string) (*model.Geometry, error)
}

// MapTiler is a Geocoder backed by MapTiler's forward geocoding endpoint.
type MapTiler struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

var _ Geocoder = (*MapTiler)(nil)

// NewMapTiler creates a MapTiler geocoder. An empty baseURL uses
// DefaultBaseURL. With an empty apiKey every lookup reports no match.
func NewMapTiler(apiKey, baseURL string) *MapTiler {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &MapTiler{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// featureCollection is the part of the GeoJSON response we read.
type featureCollection struct {
	Features []struct {
		Geometry struct {
			Type        string    `json:"type"`
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

// Forward looks up query and returns the first feature's point.
func (m *MapTiler) Forward(ctx context.Context, query string) (*model.Geometry, error) {
	query = strings.TrimSpace(query)
	if query == "" || m.apiKey == "" {
		return nil, nil
	}

	endpoint := fmt.Sprintf("%s/geocoding/%s.json?%s",
		m.baseURL,
		url.PathEscape(query),
		url.Values{"key": {m.apiKey}, "limit": {"1"}}.Encode(),
	)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: building request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: requesting %q: %w", query, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little of the body so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("geocode: unexpected status %d for %q", resp.StatusCode, query)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("geocode: decoding response: %w", err)
	}

	for _, f := range fc.Features {
		if len(f.Geometry.Coordinates) >= 2 {
			return model.NewPoint(f.Geometry.Coordinates[0], f.Geometry.Coordinates[1]), nil
		}
	}
	return nil, nil
}
