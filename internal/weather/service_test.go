package weather

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-history/internal/store"
)

const sampleForecast = `{"list":[{"dt_txt":"2024-03-01 12:00:00","main":{"temp":10}},{"dt_txt":"2024-03-01 15:00:00","main":{"temp":12}}]}`

type fakeFetcher struct {
	calls []string
	units []Units
	err   error
}

func (f *fakeFetcher) Name() string { return "fake" }

func (f *fakeFetcher) FetchForecast(_ context.Context, city string, units Units) (json.RawMessage, error) {
	f.calls = append(f.calls, city)
	f.units = append(f.units, units)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(sampleForecast), nil
}

type fakeLocator struct {
	city string
	err  error
}

func (l fakeLocator) Locate(context.Context) (string, error) { return l.city, l.err }

func newFileStore(t *testing.T, now time.Time) *store.FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	return store.NewFileStore(path, store.WithClock(func() time.Time { return now }))
}

func TestService_FetchRecordsHistory(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hist := newFileStore(t, now)
	fetcher := &fakeFetcher{}
	svc := NewService(hist, fetcher, nil, ServiceOptions{})

	report, err := svc.Fetch(context.Background(), " Paris ", "")
	require.NoError(t, err)
	assert.Equal(t, "Paris", report.City)
	assert.False(t, report.Detected)
	assert.NoError(t, report.HistoryErr)
	require.Len(t, report.Days, 1)
	assert.Equal(t, 11.0, report.Days[0].Avg)
	assert.Equal(t, []Units{UnitsMetric}, fetcher.units)

	log, err := svc.History("")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "Paris", log[0].City)
	assert.Equal(t, uint64(now.Unix()), log[0].Timestamp)
	assert.JSONEq(t, sampleForecast, string(log[0].Data))
}

func TestService_FetchDetectsLocation(t *testing.T) {
	hist := newFileStore(t, time.Now())
	fetcher := &fakeFetcher{}
	svc := NewService(hist, fetcher, fakeLocator{city: "Lisbon"}, ServiceOptions{})

	report, err := svc.Fetch(context.Background(), "", UnitsImperial)
	require.NoError(t, err)
	assert.Equal(t, "Lisbon", report.City)
	assert.True(t, report.Detected)
	assert.Equal(t, []string{"Lisbon"}, fetcher.calls)
}

func TestService_FetchErrors(t *testing.T) {
	hist := newFileStore(t, time.Now())

	_, err := NewService(hist, nil, nil, ServiceOptions{}).Fetch(context.Background(), "Paris", "")
	assert.ErrorIs(t, err, ErrNoFetcher)

	_, err = NewService(hist, &fakeFetcher{}, nil, ServiceOptions{}).Fetch(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrNoCity)

	_, err = NewService(hist, &fakeFetcher{}, nil, ServiceOptions{}).Fetch(context.Background(), "Paris", "kelvin")
	assert.Error(t, err)

	detectErr := errors.New("could not detect location")
	_, err = NewService(hist, &fakeFetcher{}, fakeLocator{err: detectErr}, ServiceOptions{}).Fetch(context.Background(), "", "")
	assert.ErrorIs(t, err, detectErr)

	fetchErr := errors.New("boom")
	_, err = NewService(hist, &fakeFetcher{err: fetchErr}, nil, ServiceOptions{}).Fetch(context.Background(), "Paris", "")
	assert.ErrorIs(t, err, fetchErr)

	log, err := hist.Load()
	require.NoError(t, err)
	assert.Empty(t, log, "failed fetches must not be recorded")
}

func TestService_FetchSurvivesHistoryFailure(t *testing.T) {
	hist := newFileStore(t, time.Now())
	require.NoError(t, os.WriteFile(hist.Path(), []byte("garbage"), 0o644))

	svc := NewService(hist, &fakeFetcher{}, nil, ServiceOptions{})
	report, err := svc.Fetch(context.Background(), "Paris", "")
	require.NoError(t, err)
	assert.ErrorIs(t, report.HistoryErr, store.ErrParse)
	assert.Len(t, report.Days, 1)
}

func TestService_Prune(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hist := newFileStore(t, now)
	require.NoError(t, os.WriteFile(hist.Path(), []byte(`[
		{"city":"Old","timestamp":1699000000,"data":{}},
		{"city":"New","timestamp":1699999000,"data":{}}
	]`), 0o644))

	svc := NewService(hist, nil, nil, ServiceOptions{})
	res, err := svc.Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.PruneResult{Removed: 1, Remaining: 1}, res)

	log, err := svc.History("")
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, "New", log[0].City)
}

func TestService_PruneCorruptHistory(t *testing.T) {
	hist := newFileStore(t, time.Unix(1_700_000_000, 0))
	require.NoError(t, os.WriteFile(hist.Path(), []byte("garbage"), 0o644))

	_, err := NewService(hist, nil, nil, ServiceOptions{}).Prune(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrParse)

	res, err := NewService(hist, nil, nil, ServiceOptions{ResetCorruptHistory: true}).Prune(context.Background())
	require.NoError(t, err)
	assert.Equal(t, store.PruneResult{}, res)

	matches, err := filepath.Glob(hist.Path() + ".corrupt-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)

	log, err := hist.Load()
	require.NoError(t, err)
	assert.Empty(t, log)
}

func TestService_RunContinuesAfterPruneFailure(t *testing.T) {
	hist := newFileStore(t, time.Unix(1_700_000_000, 0))
	require.NoError(t, os.WriteFile(hist.Path(), []byte(`[{"city":"NoTimestamp","data":{}}]`), 0o644))

	fetcher := &fakeFetcher{}
	report, err := NewService(hist, fetcher, nil, ServiceOptions{}).Run(context.Background(), "Paris", UnitsMetric)
	require.NoError(t, err)
	assert.Equal(t, []string{"Paris"}, fetcher.calls)
	assert.ErrorIs(t, report.HistoryErr, store.ErrParse)
}

func TestService_RunPrunesThenAppends(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	hist := newFileStore(t, now)
	require.NoError(t, os.WriteFile(hist.Path(), []byte(`[
		{"city":"Keep","timestamp":1699999900,"data":1},
		{"city":"Drop","timestamp":1600000000,"data":2}
	]`), 0o644))

	_, err := NewService(hist, &fakeFetcher{}, nil, ServiceOptions{}).Run(context.Background(), "Paris", UnitsMetric)
	require.NoError(t, err)

	log, err := hist.Load()
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "Keep", log[0].City)
	assert.Equal(t, "Paris", log[1].City)
}

func TestService_HistoryFiltersByCity(t *testing.T) {
	hist := newFileStore(t, time.Now())
	svc := NewService(hist, &fakeFetcher{}, nil, ServiceOptions{})
	for _, city := range []string{"Paris", "Rome", "Paris"} {
		_, err := svc.Fetch(context.Background(), city, "")
		require.NoError(t, err)
	}

	log, err := svc.History("Paris")
	require.NoError(t, err)
	assert.Len(t, log, 2)

	log, err = svc.History("paris")
	require.NoError(t, err)
	assert.Empty(t, log, "city matching is exact")
}
