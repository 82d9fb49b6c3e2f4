package weather

import (
	"time"
)

// Units selects the unit system requested from the forecast API.
// Values are passed through unchanged; no conversion happens here.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
	UnitsStandard Units = "standard"
)

// Valid reports whether u is a unit system the forecast API accepts.
func (u Units) Valid() bool {
	switch u {
	case UnitsMetric, UnitsImperial, UnitsStandard:
		return true
	default:
		return false
	}
}

// DailySummary is the temperature spread of one forecast day.
type DailySummary struct {
	Date    string  `json:"date"` // YYYY-MM-DD as reported by the provider
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// Report is the outcome of one fetch.
type Report struct {
	City      string         `json:"city"`
	Detected  bool           `json:"detected"` // city came from location auto-detection
	FetchedAt time.Time      `json:"fetchedAt"`
	Days      []DailySummary `json:"days"`

	// HistoryErr is set when the forecast was fetched but could not be
	// recorded. History is auxiliary, so the fetch still counts as a success.
	HistoryErr error `json:"-"`
}
