package weather

import (
	"context"
	"encoding/json"

	"github.com/i474232898/weather-history/internal/store"
)

// ForecastFetcher retrieves the raw forecast document for a city.
type ForecastFetcher interface {
	Name() string
	FetchForecast(ctx context.Context, city string, units Units) (json.RawMessage, error)
}

// Locator detects the caller's city.
type Locator interface {
	Locate(ctx context.Context) (string, error)
}

// HistoryStore is the contract the file-backed history log satisfies.
type HistoryStore interface {
	Load() (store.Log, error)
	Append(city string, data json.RawMessage) error
	Prune(now uint64) (store.PruneResult, error)
	Archive() (string, error)
	Now() uint64
}
