package locate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Public IP geolocation endpoints, in the order they are tried
const (
	IPAPIURL  = "https://ipapi.co/json/"
	IPAPICom  = "http://ip-api.com/json/"
	IPInfoURL = "https://ipinfo.io/json"
)

// ipService is a provider backed by a JSON IP geolocation endpoint
type ipService struct {
	name   string
	url    string
	client *http.Client
	parse  func(body []byte) (*Location, error)
}

func (s *ipService) Name() string {
	return s.name
}

func (s *ipService) Locate(ctx context.Context) (*Location, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "geomap")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid response: %w", err)
	}
	return s.parse(raw)
}

// NewIPAPI queries ipapi.co at url
func NewIPAPI(url string, client *http.Client) Provider {
	return &ipService{name: "ipapi.co", url: url, client: orDefault(client), parse: parseIPAPI}
}

// NewIPAPICom queries ip-api.com at url
func NewIPAPICom(url string, client *http.Client) Provider {
	return &ipService{name: "ip-api.com", url: url, client: orDefault(client), parse: parseIPAPICom}
}

// NewIPInfo queries ipinfo.io at url
func NewIPInfo(url string, client *http.Client) Provider {
	return &ipService{name: "ipinfo.io", url: url, client: orDefault(client), parse: parseIPInfo}
}

// DefaultIPProviders returns the three public services in fallback order
func DefaultIPProviders(client *http.Client) []Provider {
	return []Provider{
		NewIPAPI(IPAPIURL, client),
		NewIPAPICom(IPAPICom, client),
		NewIPInfo(IPInfoURL, client),
	}
}

func orDefault(client *http.Client) *http.Client {
	if client == nil {
		return http.DefaultClient
	}
	return client
}

func parseIPAPI(body []byte) (*Location, error) {
	var r struct {
		Latitude    *float64 `json:"latitude"`
		Longitude   *float64 `json:"longitude"`
		City        string   `json:"city"`
		Region      string   `json:"region"`
		CountryName string   `json:"country_name"`
		Error       bool     `json:"error"`
		Reason      string   `json:"reason"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	if r.Error {
		return nil, fmt.Errorf("service error: %s", r.Reason)
	}
	if r.Latitude == nil || r.Longitude == nil {
		return nil, errors.New("response has no coordinates")
	}
	return &Location{Lat: *r.Latitude, Lon: *r.Longitude, Label: label(r.City, r.Region, r.CountryName)}, nil
}

func parseIPAPICom(body []byte) (*Location, error) {
	var r struct {
		Status     string  `json:"status"`
		Message    string  `json:"message"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
		City       string  `json:"city"`
		RegionName string  `json:"regionName"`
		Country    string  `json:"country"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	if r.Status != "success" {
		return nil, fmt.Errorf("service status %q: %s", r.Status, r.Message)
	}
	return &Location{Lat: r.Lat, Lon: r.Lon, Label: label(r.City, r.RegionName, r.Country)}, nil
}

func parseIPInfo(body []byte) (*Location, error) {
	var r struct {
		Loc     string `json:"loc"`
		City    string `json:"city"`
		Region  string `json:"region"`
		Country string `json:"country"`
	}
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, err
	}
	parts := strings.Split(r.Loc, ",")
	if len(parts) != 2 {
		return nil, fmt.Errorf("malformed loc %q", r.Loc)
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, fmt.Errorf("malformed longitude: %w", err)
	}
	return &Location{Lat: lat, Lon: lon, Label: label(r.City, r.Region, r.Country)}, nil
}
