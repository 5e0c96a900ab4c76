package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/walletfeed/wallet-feed/internal/domain"
)

const defaultEndpoint = "https://nominatim.openstreetmap.org/reverse"

// Client is a minimal reverse-geocoding client for the Nominatim API.
// It implements domain.Geocoder.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient creates a new geocoding client. If endpoint is empty, it
// defaults to the public Nominatim instance.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// reverseResponse is the subset of the Nominatim reverse response we read.
type reverseResponse struct {
	Address struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
	} `json:"address"`
}

// ReverseGeocode resolves coordinates into a structured address. City falls
// back to town, then village, matching Nominatim's place granularity.
func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (*domain.Location, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	req.Header.Set("User-Agent", "wallet-feed/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var result reverseResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	city := result.Address.City
	if city == "" {
		city = result.Address.Town
	}
	if city == "" {
		city = result.Address.Village
	}

	return &domain.Location{
		HouseNumber: result.Address.HouseNumber,
		Road:        result.Address.Road,
		City:        city,
		State:       result.Address.State,
		Postcode:    result.Address.Postcode,
		Country:     result.Address.Country,
	}, nil
}
