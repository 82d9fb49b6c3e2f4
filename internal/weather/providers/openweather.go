package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-history/internal/weather"
)

// maxForecastBytes bounds the forecast body; a 5 day / 3 hour forecast is ~20KB.
const maxForecastBytes = 4 << 20

// OpenWeatherForecast implements weather.ForecastFetcher for the
// OpenWeatherMap 5 day / 3 hour forecast API.
type OpenWeatherForecast struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherForecast(client *http.Client, apiKey string) *OpenWeatherForecast {
	return &OpenWeatherForecast{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/forecast",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("openweather"),
	}
}

func (p *OpenWeatherForecast) Name() string {
	return p.name
}

// FetchForecast returns the forecast document exactly as the API sent it.
func (p *OpenWeatherForecast) FetchForecast(ctx context.Context, city string, units weather.Units) (json.RawMessage, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather api key is not configured")
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("q", city)
		values.Set("appid", p.apiKey)
		values.Set("units", string(units))

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxForecastBytes))
	if err != nil {
		return nil, fmt.Errorf("read forecast: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("openweather returned a non-JSON forecast")
	}
	return json.RawMessage(body), nil
}
