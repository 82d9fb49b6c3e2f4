package providers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
)

// ErrLocationUnknown is returned when the lookup succeeds but names no city.
var ErrLocationUnknown = errors.New("could not detect location")

// IPInfoLocator implements weather.Locator using the caller's public IP.
type IPInfoLocator struct {
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewIPInfoLocator(client *http.Client) *IPInfoLocator {
	return &IPInfoLocator{
		baseURL: "https://ipinfo.io/json",
		httpCfg: HTTPClientConfig{
			Client:  client,
			Backoff: defaultBackoff,
		},
		circuit: newCircuitBreaker("ipinfo"),
	}
}

func (l *IPInfoLocator) Locate(ctx context.Context) (string, error) {
	buildRequest := func() (*http.Request, error) {
		req, err := http.NewRequest(http.MethodGet, l.baseURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	}

	resp, err := doRequestWithResilience(ctx, l.httpCfg, l.circuit, buildRequest)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		City string `json:"city"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}

	city := strings.TrimSpace(payload.City)
	if city == "" {
		return "", ErrLocationUnknown
	}
	return city, nil
}
