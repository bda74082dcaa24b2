// Package geo imports the country/state/city hierarchy from the external
// geography API.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Country as returned by the geography API
type Country struct {
	Name string `json:"name"`
	ISO2 string `json:"iso2"`
}

// State as returned by the geography API
type State struct {
	Name string `json:"name"`
	ISO2 string `json:"iso2"`
}

// City as returned by the geography API
type City struct {
	Name string `json:"name"`
}

// API is the slice of the geography service the importer consumes
type API interface {
	Countries(ctx context.Context) ([]Country, error)
	States(ctx context.Context, countryCode string) ([]State, error)
	Cities(ctx context.Context, countryCode, stateCode string) ([]City, error)
}

// Client talks to a country/state/city REST API authenticated by header key
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a geography API client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Countries fetches all countries
func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	var countries []Country
	if err := c.get(ctx, "/countries", &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// States fetches the states of a country by its ISO2 code
func (c *Client) States(ctx context.Context, countryCode string) ([]State, error) {
	var states []State
	if err := c.get(ctx, fmt.Sprintf("/countries/%s/states", countryCode), &states); err != nil {
		return nil, err
	}
	return states, nil
}

// Cities fetches the cities of a state by country and state ISO2 codes
func (c *Client) Cities(ctx context.Context, countryCode, stateCode string) ([]City, error) {
	var cities []City
	if err := c.get(ctx, fmt.Sprintf("/countries/%s/states/%s/cities", countryCode, stateCode), &cities); err != nil {
		return nil, err
	}
	return cities, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build geography request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-CSCAPI-KEY", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("geography API unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("geography API returned %s for %s", resp.Status, path)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode geography response: %w", err)
	}
	return nil
}
