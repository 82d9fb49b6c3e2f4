package weather

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/i474232898/weather-history/internal/store"
)

var (
	// ErrNoFetcher is returned when no forecast source is configured.
	ErrNoFetcher = errors.New("no forecast provider configured")
	// ErrNoCity is returned when no city was given and none could be detected.
	ErrNoCity = errors.New("no city given and location detection unavailable")
)

// ServiceOptions tunes Service behaviour.
type ServiceOptions struct {
	// ResetCorruptHistory archives an unparseable history file during Prune
	// instead of returning the parse error.
	ResetCorruptHistory bool
	Logger              *slog.Logger
}

// Service orchestrates forecast fetching and the history log.
type Service struct {
	history HistoryStore
	fetcher ForecastFetcher
	locator Locator

	resetCorrupt bool
	logger       *slog.Logger
}

// NewService creates a new Service. locator may be nil, in which case every
// fetch needs an explicit city.
func NewService(history HistoryStore, fetcher ForecastFetcher, locator Locator, opts ServiceOptions) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		history:      history,
		fetcher:      fetcher,
		locator:      locator,
		resetCorrupt: opts.ResetCorruptHistory,
		logger:       logger,
	}
}

// Prune removes expired records as of the store clock. When the history file
// cannot be parsed and ResetCorruptHistory is set, the file is archived and
// the history starts over.
func (s *Service) Prune(ctx context.Context) (store.PruneResult, error) {
	if err := ctx.Err(); err != nil {
		return store.PruneResult{}, err
	}

	res, err := s.history.Prune(s.history.Now())
	if err == nil {
		if res.Removed > 0 {
			s.logger.Info("pruned expired history records", "removed", res.Removed, "remaining", res.Remaining)
		}
		return res, nil
	}

	if !errors.Is(err, store.ErrParse) || !s.resetCorrupt {
		return store.PruneResult{}, fmt.Errorf("prune history: %w", err)
	}

	dest, archiveErr := s.history.Archive()
	if archiveErr != nil {
		return store.PruneResult{}, fmt.Errorf("archive corrupt history: %w", archiveErr)
	}
	s.logger.Warn("history file was corrupt and has been reset", "error", err, "archive", dest)
	return store.PruneResult{}, nil
}

// Fetch resolves the city (detecting it when empty), fetches its forecast,
// records it in the history log and summarises it per day. A failure to
// record history is logged and reported on Report.HistoryErr; it does not
// fail the fetch.
func (s *Service) Fetch(ctx context.Context, city string, units Units) (Report, error) {
	if s.fetcher == nil {
		return Report{}, ErrNoFetcher
	}
	if units == "" {
		units = UnitsMetric
	}
	if !units.Valid() {
		return Report{}, fmt.Errorf("unsupported units %q", units)
	}

	report := Report{City: strings.TrimSpace(city)}
	if report.City == "" {
		if s.locator == nil {
			return Report{}, ErrNoCity
		}
		detected, err := s.locator.Locate(ctx)
		if err != nil {
			return Report{}, fmt.Errorf("detect location: %w", err)
		}
		report.City = detected
		report.Detected = true
		s.logger.Info("auto-detected location", "city", detected)
	}

	raw, err := s.fetcher.FetchForecast(ctx, report.City, units)
	if err != nil {
		return Report{}, fmt.Errorf("fetch forecast for %s from %s: %w", report.City, s.fetcher.Name(), err)
	}
	report.FetchedAt = time.Now().UTC()

	if err := s.history.Append(report.City, raw); err != nil {
		s.logger.Error("failed to record forecast in history; continuing without it",
			"city", report.City,
			"error", err,
		)
		report.HistoryErr = err
	}

	report.Days = SummarizeByDay(raw)
	return report, nil
}

// Run performs one full cycle: prune, then fetch. A prune failure is logged
// and the fetch still happens.
func (s *Service) Run(ctx context.Context, city string, units Units) (Report, error) {
	if _, err := s.Prune(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Report{}, ctxErr
		}
		s.logger.Error("history prune failed; continuing without pruning", "error", err)
	}
	return s.Fetch(ctx, city, units)
}

// History returns the logged records, restricted to city when it is not empty.
func (s *Service) History(city string) (store.Log, error) {
	log, err := s.history.Load()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if city == "" {
		return log, nil
	}
	return log.FilterCity(city), nil
}
