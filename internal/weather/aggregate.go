package weather

import (
	"encoding/json"
	"math"
	"sort"
)

// forecastDoc is the subset of the OpenWeatherMap 5 day / 3 hour forecast
// used for daily summaries.
type forecastDoc struct {
	List []struct {
		DtTxt *string `json:"dt_txt"`
		Main  struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
	} `json:"list"`
}

// SummarizeByDay groups the forecast's temperature samples by calendar date
// and returns one summary per date, oldest first. Entries without a usable
// date or temperature are skipped. A document that is not a forecast yields
// no summaries.
func SummarizeByDay(raw json.RawMessage) []DailySummary {
	var doc forecastDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}

	temps := make(map[string][]float64)
	for _, entry := range doc.List {
		if entry.DtTxt == nil || entry.Main.Temp == nil || len(*entry.DtTxt) < 10 {
			continue
		}
		date := (*entry.DtTxt)[:10]
		temps[date] = append(temps[date], *entry.Main.Temp)
	}

	days := make([]DailySummary, 0, len(temps))
	for date, values := range temps {
		days = append(days, summarize(date, values))
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date < days[j].Date })
	return days
}

func summarize(date string, values []float64) DailySummary {
	var (
		sum = 0.0
		lo  = math.Inf(1)
		hi  = math.Inf(-1)
	)
	for _, v := range values {
		sum += v
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return DailySummary{
		Date:    date,
		Avg:     sum / float64(len(values)),
		Min:     lo,
		Max:     hi,
		Samples: len(values),
	}
}
