// Package geo wraps the external geocoding provider.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"geosm/internal/observability"
)

// Place is one geocoding result.
type Place struct {
	Description string  `json:"description"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"long"`
}

// Provider resolves free text to places.
type Provider interface {
	Search(ctx context.Context, text string) ([]Place, error)
}

// Nominatim queries a Nominatim-compatible search endpoint.
type Nominatim struct {
	Endpoint  string
	UserAgent string
	Limit     int
	Client    *http.Client
}

// NewNominatim returns a provider for endpoint with a 5s timeout.
func NewNominatim(endpoint string) *Nominatim {
	return &Nominatim{
		Endpoint:  endpoint,
		UserAgent: "geosm/1.0",
		Limit:     10,
		Client:    &http.Client{Timeout: 5 * time.Second},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

func (n *Nominatim) Search(ctx context.Context, text string) (_ []Place, err error) {
	ctx, span := observability.StartClient(ctx, "nominatim", "search")
	defer func() { observability.EndClient(span, err) }()

	u, err := url.Parse(n.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid geocoder url: %w", err)
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("format", "json")
	q.Set("limit", strconv.Itoa(n.Limit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", n.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocoder request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned %d", resp.StatusCode)
	}

	var raw []nominatimPlace
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode geocoder response: %w", err)
	}
	places := make([]Place, 0, len(raw))
	for _, p := range raw {
		lat, errLat := strconv.ParseFloat(p.Lat, 64)
		lng, errLng := strconv.ParseFloat(p.Lon, 64)
		if errLat != nil || errLng != nil {
			continue
		}
		places = append(places, Place{Description: p.DisplayName, Latitude: lat, Longitude: lng})
	}
	return places, nil
}

// Dedupe keeps the first place for each description.
func Dedupe(places []Place) []Place {
	seen := make(map[string]bool, len(places))
	out := make([]Place, 0, len(places))
	for _, p := range places {
		if seen[p.Description] {
			continue
		}
		seen[p.Description] = true
		out = append(out, p)
	}
	return out
}
