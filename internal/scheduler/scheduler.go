package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
)

// Service is the part of weather.Service the scheduler drives.
type Service interface {
	Prune(ctx context.Context) (store.PruneResult, error)
	Fetch(ctx context.Context, city string, units weather.Units) (weather.Report, error)
}

// Config controls which jobs run and how often.
type Config struct {
	PruneInterval time.Duration
	FetchInterval time.Duration
	Cities        []string
	Units         weather.Units
}

// Scheduler periodically prunes the history and, when cities are configured,
// fetches and records their forecasts.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Service
	cfg       Config
	logger    *slog.Logger
}

// New creates a new Scheduler.
func New(cfg Config, service Service, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(time.UTC)
	// Jobs share one history file; overlapping runs would only queue on its lock.
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		service:   service,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start schedules the jobs and starts the underlying scheduler. The prune job
// runs immediately and then every PruneInterval; the fetch job runs every
// FetchInterval, prune first.
func (s *Scheduler) Start() error {
	pruneEvery := s.cfg.PruneInterval
	if pruneEvery <= 0 {
		pruneEvery = time.Hour
	}
	if _, err := s.scheduler.Every(pruneEvery).Do(s.pruneJob); err != nil {
		return err
	}

	if len(s.cfg.Cities) == 0 {
		s.logger.Info("scheduler: no cities configured; only pruning")
	} else {
		fetchEvery := s.cfg.FetchInterval
		if fetchEvery <= 0 {
			fetchEvery = 15 * time.Minute
		}
		if _, err := s.scheduler.Every(fetchEvery).WaitForSchedule().Do(s.fetchJob); err != nil {
			return err
		}
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) pruneJob() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := s.service.Prune(ctx); err != nil {
		s.logger.Error("scheduler: prune failed", "error", err)
	}
}

// fetchJob fetches cities one after another; each append is a full rewrite of
// the history file, so parallel fetches would only serialise on its lock.
func (s *Scheduler) fetchJob() {
	s.logger.Info("scheduler: running weather fetch job", "cities", len(s.cfg.Cities))

	s.pruneJob()
	for _, city := range s.cfg.Cities {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		report, err := s.service.Fetch(ctx, city, s.cfg.Units)
		cancel()
		if err != nil {
			s.logger.Error("scheduler: fetch failed", "city", city, "error", err)
			continue
		}
		if report.HistoryErr != nil {
			s.logger.Warn("scheduler: forecast not recorded", "city", city, "error", report.HistoryErr)
		}
	}

	s.logger.Info("scheduler: completed weather fetch job")
}
