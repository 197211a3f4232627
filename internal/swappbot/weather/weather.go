// Package weather provides current-conditions lookups for the weather flow.
//
// The production implementation calls the OpenWeatherMap current weather API.
// The cascade depends only on the Provider interface so tests can substitute
// a fake.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/huzaifa838/swappbot/common/retry"
)

const defaultBaseURL = "https://api.openweathermap.org/data/2.5"

// ErrMissingAPIKey is returned before any HTTP call when no API key is
// configured.
var ErrMissingAPIKey = errors.New("weather: API key is not configured")

// Report holds the fields of a current-conditions lookup the bot renders.
type Report struct {
	City        string
	Temperature float64 // °C
	FeelsLike   float64 // °C
	Humidity    int     // %
	WindSpeed   float64 // m/s
	Description string  // e.g. "scattered clouds"
}

// Provider is the weather collaborator consumed by the reply cascade.
type Provider interface {
	// Current returns the current conditions for the given city. The error,
	// when non-nil, carries a human-readable message suitable for echoing
	// back to the user (see ProviderError).
	Current(ctx context.Context, city string) (*Report, error)
}

// ProviderError is a lookup failure carrying the upstream service's own
// message (e.g. "city not found", "Invalid API key"). Status is the upstream
// HTTP status, or 0 for transport/configuration errors.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	return e.Message
}

// Config configures the OpenWeatherMap client.
type Config struct {
	// APIKey is the OpenWeatherMap appid. Required.
	APIKey string
	// BaseURL overrides the API endpoint (useful for tests).
	// Defaults to the public OpenWeatherMap endpoint.
	BaseURL string
	// Timeout for each HTTP request. Defaults to 10s.
	Timeout time.Duration
	// Retry controls transient-failure retries. Zero value uses
	// retry.DefaultConfig with a 5xx/transport-only predicate.
	Retry retry.Config
}

// Client implements Provider against the OpenWeatherMap API.
type Client struct {
	cfg    Config
	client *http.Client
}

// NewClient returns a Client for the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = retry.DefaultConfig
	}
	cfg.Retry.ShouldRetry = isTransient
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// owmResponse is the subset of the OpenWeatherMap payload the bot uses.
type owmResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// owmError is the error payload OpenWeatherMap returns on non-2xx statuses.
type owmError struct {
	Message string `json:"message"`
}

// Current implements Provider. Transient failures (5xx, transport errors)
// are retried with exponential backoff; 4xx responses are returned
// immediately with the upstream message.
func (c *Client) Current(ctx context.Context, city string) (*Report, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	q := url.Values{}
	q.Set("q", city)
	q.Set("appid", c.cfg.APIKey)
	q.Set("units", "metric")
	reqURL := c.cfg.BaseURL + "/weather?" + q.Encode()

	var report *Report
	err := retry.Do(ctx, c.cfg.Retry, func() error {
		r, err := c.fetch(ctx, reqURL)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// fetch performs a single request/decode round trip.
func (c *Client) fetch(ctx context.Context, reqURL string) (*Report, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("weather request failed: %v", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("weather response read failed: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var oe owmError
		msg := http.StatusText(resp.StatusCode)
		if jsonErr := json.Unmarshal(body, &oe); jsonErr == nil && oe.Message != "" {
			msg = oe.Message
		}
		return nil, &ProviderError{Status: resp.StatusCode, Message: msg}
	}

	var out owmResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &ProviderError{Message: fmt.Sprintf("weather response decode failed: %v", err)}
	}

	report := &Report{
		City:        out.Name,
		Temperature: out.Main.Temp,
		FeelsLike:   out.Main.FeelsLike,
		Humidity:    out.Main.Humidity,
		WindSpeed:   out.Wind.Speed,
	}
	if len(out.Weather) > 0 {
		report.Description = out.Weather[0].Description
	}
	return report, nil
}

// isTransient classifies an error as worth retrying: transport failures and
// upstream 5xx. 4xx responses (bad city, bad key) never succeed on retry.
func isTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Status == 0 || pe.Status >= 500
	}
	return false
}
