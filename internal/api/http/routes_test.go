package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

type stubFetcher struct{}

func (stubFetcher) Name() string { return "stub" }

func (stubFetcher) FetchForecast(_ context.Context, city string, _ weather.Units) (json.RawMessage, error) {
	return json.RawMessage(`{"list":[{"dt_txt":"2024-03-01 12:00:00","main":{"temp":8}}]}`), nil
}

func newTestApp(t *testing.T) (*fiber.App, *store.FileStore) {
	t.Helper()

	now := time.Unix(1_700_000_000, 0)
	hist := store.NewFileStore(filepath.Join(t.TempDir(), "history.json"),
		store.WithClock(func() time.Time { return now }))
	svc := weather.NewService(hist, stubFetcher{}, nil, weather.ServiceOptions{})

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, svc, weather.UnitsMetric)
	return app, hist
}

func doJSON(t *testing.T, app *fiber.App, method, target string, wantStatus int) map[string]any {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(method, target, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: expected status %d, got %d (%s)", method, target, wantStatus, resp.StatusCode, body)
	}

	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, body)
	}
	return out
}

func TestForecastRecordsHistory(t *testing.T) {
	app, hist := newTestApp(t)

	out := doJSON(t, app, http.MethodGet, "/api/v1/weather/forecast?city=Paris", http.StatusOK)
	if out["city"] != "Paris" || out["recorded"] != true {
		t.Fatalf("unexpected forecast response: %v", out)
	}
	if days, ok := out["days"].([]any); !ok || len(days) != 1 {
		t.Fatalf("expected one day summary, got %v", out["days"])
	}

	log, err := hist.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(log) != 1 || log[0].City != "Paris" {
		t.Fatalf("expected one Paris record, got %+v", log)
	}
}

func TestForecastUnitsValidation(t *testing.T) {
	app, _ := newTestApp(t)

	out := doJSON(t, app, http.MethodGet, "/api/v1/weather/forecast?city=Paris&units=kelvin", http.StatusBadRequest)
	if out["error"] != true {
		t.Fatalf("expected error envelope, got %v", out)
	}
}

func TestForecastWithoutCityNeedsLocator(t *testing.T) {
	app, _ := newTestApp(t)

	doJSON(t, app, http.MethodGet, "/api/v1/weather/forecast", http.StatusBadRequest)
}

func TestHistoryFilters(t *testing.T) {
	app, hist := newTestApp(t)

	err := os.WriteFile(hist.Path(), []byte(`[
		{"city":"Paris","timestamp":1699990000,"data":{}},
		{"city":"Rome","timestamp":1699995000,"data":{}},
		{"city":"Paris","timestamp":1699999000,"data":{}}
	]`), 0o644)
	if err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out := doJSON(t, app, http.MethodGet, "/api/v1/history", http.StatusOK)
	if out["count"] != float64(3) {
		t.Fatalf("expected 3 records, got %v", out["count"])
	}

	out = doJSON(t, app, http.MethodGet, "/api/v1/history?city=Paris", http.StatusOK)
	if out["count"] != float64(2) {
		t.Fatalf("expected 2 Paris records, got %v", out["count"])
	}

	out = doJSON(t, app, http.MethodGet, "/api/v1/history?city=Paris&since=1699995000", http.StatusOK)
	if out["count"] != float64(1) {
		t.Fatalf("expected 1 recent Paris record, got %v", out["count"])
	}

	doJSON(t, app, http.MethodGet, "/api/v1/history?since=yesterday", http.StatusBadRequest)
}

func TestHistoryCorruptFile(t *testing.T) {
	app, hist := newTestApp(t)

	if err := os.WriteFile(hist.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doJSON(t, app, http.MethodGet, "/api/v1/history", http.StatusInternalServerError)
	doJSON(t, app, http.MethodPost, "/api/v1/history/prune", http.StatusInternalServerError)
}

func TestPrune(t *testing.T) {
	app, hist := newTestApp(t)

	err := os.WriteFile(hist.Path(), []byte(`[
		{"city":"Paris","timestamp":1600000000,"data":{}},
		{"city":"Paris","timestamp":1699999000,"data":{}}
	]`), 0o644)
	if err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	out := doJSON(t, app, http.MethodPost, "/api/v1/history/prune", http.StatusOK)
	if out["removed"] != float64(1) || out["remaining"] != float64(1) {
		t.Fatalf("unexpected prune response: %v", out)
	}
}

// prunedService reports a prune result that differs from what a later
// History call would return.
type prunedService struct {
	*weather.Service
}

func (prunedService) Prune(context.Context) (store.PruneResult, error) {
	return store.PruneResult{Removed: 2, Remaining: 5}, nil
}

func (prunedService) History(string) (store.Log, error) {
	return store.Log{{City: "Paris"}}, nil
}

func TestPruneReportsCountsFromSamePass(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, prunedService{}, weather.UnitsMetric)

	out := doJSON(t, app, http.MethodPost, "/api/v1/history/prune", http.StatusOK)
	if out["removed"] != float64(2) || out["remaining"] != float64(5) {
		t.Fatalf("unexpected prune response: %v", out)
	}
}
