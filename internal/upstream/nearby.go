package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"time"
)

const defaultN2YOBaseURL = "https://api.n2yo.com/rest/v1/satellite"

// Candidate is one satellite from the "currently overhead" feed. All fields
// are approximate estimates owned by the feed; VelocityKmS is zero when the
// feed omits it.
type Candidate struct {
	ID           string
	Name         string
	AltitudeKm   float64
	LatitudeDeg  float64
	LongitudeDeg float64
	VelocityKmS  float64
}

// N2YOClient queries the N2YO "above" API for satellites currently overhead
// an observer.
type N2YOClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewN2YOClient creates an N2YOClient. An empty baseURL selects the public
// N2YO endpoint.
func NewN2YOClient(baseURL, apiKey string, logger *slog.Logger) *N2YOClient {
	if baseURL == "" {
		baseURL = defaultN2YOBaseURL
	}
	return &N2YOClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Above returns the satellites currently above the observer within the given
// search radius (degrees), sorted ascending by altitude. Callers rely on
// this ordering.
func (c *N2YOClient) Above(ctx context.Context, lat, lon, altKm float64, radiusDeg int) ([]Candidate, error) {
	// The trailing "/&apiKey=" shape is how the N2YO API documents its key
	// parameter.
	reqURL := fmt.Sprintf("%s/above/%g/%g/%g/%d/&apiKey=%s",
		c.baseURL, lat, lon, altKm, radiusDeg, c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching nearby satellites: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from nearby-satellite feed", resp.StatusCode)
	}

	var payload struct {
		Above []struct {
			SatID   int     `json:"satid"`
			SatName string  `json:"satname"`
			SatLat  float64 `json:"satlat"`
			SatLng  float64 `json:"satlng"`
			SatAlt  float64 `json:"satalt"`
			Vel     float64 `json:"vel"`
		} `json:"above"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding nearby-satellite response: %w", err)
	}

	candidates := make([]Candidate, 0, len(payload.Above))
	for _, sat := range payload.Above {
		candidates = append(candidates, Candidate{
			ID:           strconv.Itoa(sat.SatID),
			Name:         sat.SatName,
			AltitudeKm:   sat.SatAlt,
			LatitudeDeg:  sat.SatLat,
			LongitudeDeg: sat.SatLng,
			VelocityKmS:  sat.Vel,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].AltitudeKm < candidates[j].AltitudeKm
	})

	return candidates, nil
}
