package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Geocoding error constants
var (
	ErrGeocodeSinResultados = errors.New("geocoding returned no results")
	ErrGeocodeNoConfigurado = errors.New("geocoding client is not configured")
)

// GeocodeResult is a resolved location for a station address
type GeocodeResult struct {
	DireccionFormateada string  `json:"direccion_formateada"`
	Latitud             float64 `json:"latitud"`
	Longitud            float64 `json:"longitud"`
	PlaceID             string  `json:"place_id"`
}

// MapsClient resolves addresses to coordinates
type MapsClient interface {
	Geocode(ctx context.Context, direccion string) (*GeocodeResult, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error)
}

// GoogleMapsClient proxies the Google Geocoding API so the API key never
// reaches the frontend. Results are biased to Peru.
type GoogleMapsClient struct {
	BaseURL    string
	APIKey     string
	Region     string
	HTTPClient *http.Client
}

func NewGoogleMapsClient(baseURL, apiKey string, timeout time.Duration) *GoogleMapsClient {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com/maps/api"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoogleMapsClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Region:     "pe",
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

type googleGeocodeResp struct {
	Results []struct {
		FormattedAddress string `json:"formatted_address"`
		PlaceID          string `json:"place_id"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
}

func (c *GoogleMapsClient) Geocode(ctx context.Context, direccion string) (*GeocodeResult, error) {
	if strings.TrimSpace(direccion) == "" {
		return nil, errors.New("empty address")
	}
	params := url.Values{}
	params.Set("address", direccion)
	return c.geocode(ctx, params)
}

func (c *GoogleMapsClient) ReverseGeocode(ctx context.Context, lat, lng float64) (*GeocodeResult, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", lat, lng))
	return c.geocode(ctx, params)
}

func (c *GoogleMapsClient) geocode(ctx context.Context, params url.Values) (*GeocodeResult, error) {
	if c.APIKey == "" {
		return nil, ErrGeocodeNoConfigurado
	}
	params.Set("key", c.APIKey)
	params.Set("region", c.Region)

	reqURL := c.BaseURL + "/geocode/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding: status %d", resp.StatusCode)
	}

	var out googleGeocodeResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	switch out.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrGeocodeSinResultados
	default:
		return nil, fmt.Errorf("geocoding: %s %s", out.Status, out.ErrorMessage)
	}
	if len(out.Results) == 0 {
		return nil, ErrGeocodeSinResultados
	}

	first := out.Results[0]
	return &GeocodeResult{
		DireccionFormateada: first.FormattedAddress,
		Latitud:             first.Geometry.Location.Lat,
		Longitud:            first.Geometry.Location.Lng,
		PlaceID:             first.PlaceID,
	}, nil
}
