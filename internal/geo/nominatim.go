package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/vg84526/airquality-analysis/internal/httpc"
)

// ErrNotFound reports that the geocoder had no match for a location name.
// It is distinct from transport failures (httpc.ErrTransport) so callers can
// tell "no such place" apart from "service unreachable".
var ErrNotFound = errors.New("location not found")

// Resolver turns a location name into a margin-expanded bounding box using
// the Nominatim search API.
type Resolver struct {
	baseURL   string
	userAgent string
	marginKm  float64
	httpCfg   httpc.Config
	circuit   *gobreaker.CircuitBreaker
}

// NewResolver creates a Resolver with the given default expansion margin in
// kilometers.
func NewResolver(client *http.Client, marginKm float64) *Resolver {
	return &Resolver{
		baseURL:   "https://nominatim.openstreetmap.org/search",
		userAgent: "airquality-analysis/1.0",
		marginKm:  marginKm,
		httpCfg: httpc.Config{
			Client:  client,
			Backoff: httpc.DefaultBackoff(),
		},
		circuit: httpc.NewBreaker("nominatim"),
	}
}

// Resolve returns the first geocoding match for name, expanded by the
// resolver's default margin.
func (r *Resolver) Resolve(ctx context.Context, name string) (BoundingBox, error) {
	return r.ResolveWithMargin(ctx, name, r.marginKm)
}

// ResolveWithMargin is Resolve with a per-call expansion margin.
func (r *Resolver) ResolveWithMargin(ctx context.Context, name string, marginKm float64) (BoundingBox, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", name)
		values.Set("format", "json")
		values.Set("addressdetails", "1")

		u := fmt.Sprintf("%s?%s", r.baseURL, values.Encode())
		req, err := http.NewRequest(http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		// Nominatim's usage policy requires an identifying User-Agent.
		req.Header.Set("User-Agent", r.userAgent)
		return req, nil
	}

	resp, err := httpc.Do(ctx, r.httpCfg, r.circuit, buildRequest)
	if err != nil {
		return BoundingBox{}, fmt.Errorf("geocoding %q: %w", name, err)
	}
	defer resp.Body.Close()

	var results []struct {
		// Nominatim encodes the box as [south, north, west, east] strings.
		BoundingBox []string `json:"boundingbox"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return BoundingBox{}, fmt.Errorf("geocoding %q: decoding response: %w", name, err)
	}

	if len(results) == 0 {
		return BoundingBox{}, fmt.Errorf("geocoding %q: %w", name, ErrNotFound)
	}

	box, err := parseNominatimBox(results[0].BoundingBox)
	if err != nil {
		return BoundingBox{}, fmt.Errorf("geocoding %q: %w", name, err)
	}

	return box.Expand(marginKm), nil
}

func parseNominatimBox(parts []string) (BoundingBox, error) {
	if len(parts) != 4 {
		return BoundingBox{}, fmt.Errorf("malformed boundingbox field: got %d values, want 4", len(parts))
	}

	vals := make([]float64, 4)
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return BoundingBox{}, fmt.Errorf("malformed boundingbox value %q: %w", p, err)
		}
		vals[i] = v
	}

	return BoundingBox{
		South: vals[0],
		North: vals[1],
		West:  vals[2],
		East:  vals[3],
	}, nil
}
