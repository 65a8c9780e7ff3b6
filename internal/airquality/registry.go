package airquality

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker"

	"github.com/vg84526/airquality-analysis/internal/geo"
	"github.com/vg84526/airquality-analysis/internal/httpc"
)

// registryPageLimit is the registry's default page size.
const registryPageLimit = 100

// RegistryClient queries the OpenAQ v3 locations API for monitoring sites
// inside a bounding box.
type RegistryClient struct {
	baseURL string
	apiKey  string
	httpCfg httpc.Config
	circuit *gobreaker.CircuitBreaker
}

func NewRegistryClient(client *http.Client, apiKey string) *RegistryClient {
	return &RegistryClient{
		baseURL: "https://api.openaq.org/v3/locations",
		apiKey:  apiKey,
		httpCfg: httpc.Config{
			Client:  client,
			Backoff: httpc.DefaultBackoff(),
		},
		circuit: httpc.NewBreaker("openaq-registry"),
	}
}

// Sites returns every monitoring site inside the box, following pagination
// until a short page. Results are ordered by id ascending.
func (c *RegistryClient) Sites(ctx context.Context, box geo.BoundingBox) ([]Site, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("site registry api key is not configured")
	}

	var sites []Site
	for page := 1; ; page++ {
		buildRequest := func() (*http.Request, error) {
			values := url.Values{}
			values.Set("limit", strconv.Itoa(registryPageLimit))
			values.Set("page", strconv.Itoa(page))
			values.Set("order_by", "id")
			values.Set("sort_order", "asc")
			// The registry expects west,south,east,north.
			values.Set("bbox", box.RegistryOrder())

			u := fmt.Sprintf("%s?%s", c.baseURL, values.Encode())
			req, err := http.NewRequest(http.MethodGet, u, nil)
			if err != nil {
				return nil, err
			}
			req.Header.Set("X-API-Key", c.apiKey)
			return req, nil
		}

		resp, err := httpc.Do(ctx, c.httpCfg, c.circuit, buildRequest)
		if err != nil {
			return nil, fmt.Errorf("listing sites for bbox %s (page %d): %w", box.RegistryOrder(), page, err)
		}

		var payload struct {
			Results []Site `json:"results"`
		}
		err = json.NewDecoder(resp.Body).Decode(&payload)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("listing sites for bbox %s (page %d): decoding response: %w", box.RegistryOrder(), page, err)
		}

		sites = append(sites, payload.Results...)
		if len(payload.Results) < registryPageLimit {
			return sites, nil
		}
	}
}
