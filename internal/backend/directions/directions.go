// Package directions resolves driving routes with the Google Directions API.
package directions

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twpayne/go-polyline"

	"github.com/slok/fieldwork/internal/backend"
	"github.com/slok/fieldwork/internal/log"
	"github.com/slok/fieldwork/internal/model"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api/directions/json"

// ClientConfig is the configuration for the directions client.
type ClientConfig struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ClientConfig) defaults() error {
	if c.APIKey == "" {
		return fmt.Errorf("api key is required")
	}
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "directions.Client"})
	return nil
}

// Client is a Google Directions API client.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  log.Logger
}

// NewClient returns a new directions client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		http:    cfg.HTTPClient,
		logger:  cfg.Logger,
	}, nil
}

type textValue struct {
	Text string `json:"text"`
}

type response struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		OverviewPolyline struct {
			Points string `json:"points"`
		} `json:"overview_polyline"`
		Legs []struct {
			Distance textValue `json:"distance"`
			Duration textValue `json:"duration"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route returns the first driving route from origin to destination.
func (c *Client) Route(ctx context.Context, origin, destination model.Coordinates) (*model.Route, error) {
	if origin.IsZero() || destination.IsZero() {
		return nil, fmt.Errorf("origin and destination are required: %w", model.ErrNotValid)
	}

	q := url.Values{}
	q.Set("origin", origin.String())
	q.Set("destination", destination.String())
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("could not create directions request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions request failed with status %d", resp.StatusCode)
	}

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("could not decode directions response: %w", err)
	}

	switch r.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, fmt.Errorf("no route from %s to %s: %w", origin, destination, model.ErrNotFound)
	default:
		return nil, fmt.Errorf("directions api returned %s: %s", r.Status, r.ErrorMessage)
	}
	if len(r.Routes) == 0 {
		return nil, fmt.Errorf("no route from %s to %s: %w", origin, destination, model.ErrNotFound)
	}

	route := r.Routes[0]
	coords, _, err := polyline.DecodeCoords([]byte(route.OverviewPolyline.Points))
	if err != nil {
		return nil, fmt.Errorf("could not decode route polyline: %w", err)
	}

	res := &model.Route{
		Origin:      origin,
		Destination: destination,
		Points:      make([]model.Coordinates, 0, len(coords)),
	}
	for _, p := range coords {
		res.Points = append(res.Points, model.Coordinates{Latitude: p[0], Longitude: p[1]})
	}
	if len(route.Legs) > 0 {
		res.Distance = route.Legs[0].Distance.Text
		res.Duration = route.Legs[0].Duration.Text
	}

	c.logger.Debugf("Resolved route with %d points (%s, %s)", len(res.Points), res.Distance, res.Duration)
	return res, nil
}

var _ backend.Directions = &Client{}
