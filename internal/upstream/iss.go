package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

const defaultISSURL = "http://api.open-notify.org/iss-now.json"

// ISSPosition is the current ISS sub-satellite point reported by the feed.
type ISSPosition struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

// ISSClient queries the Open Notify ISS position feed.
type ISSClient struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewISSClient creates an ISSClient for the given feed URL. An empty URL
// selects the public Open Notify endpoint.
func NewISSClient(url string, logger *slog.Logger) *ISSClient {
	if url == "" {
		url = defaultISSURL
	}
	return &ISSClient{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Position fetches the current ISS sub-point. The feed encodes latitude and
// longitude as JSON strings, so they are parsed here.
func (c *ISSClient) Position(ctx context.Context) (ISSPosition, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return ISSPosition{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ISSPosition{}, fmt.Errorf("fetching ISS position: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ISSPosition{}, fmt.Errorf("unexpected status code %d from ISS feed", resp.StatusCode)
	}

	var payload struct {
		Timestamp   int64 `json:"timestamp"`
		ISSPosition struct {
			Latitude  string `json:"latitude"`
			Longitude string `json:"longitude"`
		} `json:"iss_position"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ISSPosition{}, fmt.Errorf("decoding ISS feed response: %w", err)
	}

	lat, err := strconv.ParseFloat(payload.ISSPosition.Latitude, 64)
	if err != nil {
		return ISSPosition{}, fmt.Errorf("invalid latitude %q in ISS feed: %w", payload.ISSPosition.Latitude, err)
	}
	lon, err := strconv.ParseFloat(payload.ISSPosition.Longitude, 64)
	if err != nil {
		return ISSPosition{}, fmt.Errorf("invalid longitude %q in ISS feed: %w", payload.ISSPosition.Longitude, err)
	}

	return ISSPosition{
		Latitude:  lat,
		Longitude: lon,
		Timestamp: payload.Timestamp,
	}, nil
}
