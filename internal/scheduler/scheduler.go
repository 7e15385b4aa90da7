// Package scheduler keeps the cache warm for a configured set of locations.
package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/i474232898/weather-service/internal/weather"
)

// DefaultInterval applies when no positive interval is configured.
const DefaultInterval = 15 * time.Minute

const (
	jobTimeout  = 30 * time.Second
	parallelism = 4
)

// Warmer is the part of weather.Service the job drives.
type Warmer interface {
	Current(ctx context.Context, location string) (*weather.CurrentWeather, error)
	Forecast(ctx context.Context, location string) ([]weather.ForecastWeather, error)
}

// Scheduler periodically refreshes weather for configured locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	warmer    Warmer
	locations []string
	interval  time.Duration
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(locations []string, interval time.Duration, warmer Warmer, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		warmer:    warmer,
		locations: locations,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start schedules the periodic job, first run immediately.
func (s *Scheduler) Start() error {
	if len(s.locations) == 0 {
		s.logger.Info().Msg("no locations configured; nothing to schedule")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(func() {
		s.RunOnce(context.Background())
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	s.logger.Info().Dur("interval", s.interval).Strs("locations", s.locations).Msg("warm-up job scheduled")
	return nil
}

// RunOnce refreshes every location, a few at a time. Failures are logged.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.logger.Debug().Msg("running weather warm-up job")

	var g errgroup.Group
	g.SetLimit(parallelism)
	for _, loc := range s.locations {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, jobTimeout)
			defer cancel()

			if _, err := s.warmer.Current(ctx, loc); err != nil {
				s.logger.Warn().Err(err).Str("location", loc).Str("kind", weather.KindCurrent).Msg("warm-up failed")
			}
			if _, err := s.warmer.Forecast(ctx, loc); err != nil {
				s.logger.Warn().Err(err).Str("location", loc).Str("kind", weather.KindForecast).Msg("warm-up failed")
			}
			return nil
		})
	}
	_ = g.Wait()
	s.logger.Debug().Msg("completed weather warm-up job")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
