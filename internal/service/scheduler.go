package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iyhunko/price-tracker/internal/config"
	"github.com/iyhunko/price-tracker/internal/metrics"
	"github.com/iyhunko/price-tracker/internal/repository"
	"github.com/robfig/cron/v3"
)

// BatchChecker checks all tracked products.
type BatchChecker interface {
	CheckAll(ctx context.Context) (int, error)
}

// Scheduler runs the periodic price check and the daily history cleanup.
type Scheduler struct {
	checker  BatchChecker
	history  repository.PriceHistoryRepository
	conf     config.Scheduler
	now      func() time.Time
	location *time.Location

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	stopped context.Context
	running bool
}

func NewScheduler(checker BatchChecker, history repository.PriceHistoryRepository, conf config.Scheduler) *Scheduler {
	return &Scheduler{
		checker:  checker,
		history:  history,
		conf:     conf,
		now:      time.Now,
		location: time.Local,
	}
}

// cleanupSchedule fires daily at hour:00.
func cleanupSchedule(hour int) (cron.Schedule, error) {
	schedule, err := cron.ParseStandard(fmt.Sprintf("0 %d * * *", hour))
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup hour %d: %w", hour, err)
	}
	return schedule, nil
}

// Start registers both jobs and starts them. A job still running when its next turn comes is skipped.
// Calling Start on a running scheduler does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	cleanup, err := cleanupSchedule(s.conf.CleanupHour)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(s.location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	c.Schedule(cron.Every(s.conf.PriceCheckInterval), cron.FuncJob(func() {
		if _, err := s.checker.CheckAll(ctx); err != nil && ctx.Err() == nil {
			slog.Error("Error in price check job", slog.Any("err", err))
		}
	}))
	c.Schedule(cleanup, cron.FuncJob(func() { s.Cleanup(ctx) }))
	c.Start()

	s.cron = c
	s.cancel = cancel
	s.running = true

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	slog.Info("Price scheduler started",
		slog.Duration("check_interval", s.conf.PriceCheckInterval),
		slog.Int("cleanup_hour", s.conf.CleanupHour))
	return nil
}

// Stop cancels the running jobs and waits for them to return, also when the parent context already stopped them.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		stopped := s.stopped
		s.mu.Unlock()
		if stopped != nil {
			<-stopped.Done()
		}
		return
	}
	s.cancel()
	stopped := s.cron.Stop()
	s.stopped = stopped
	s.running = false
	s.mu.Unlock()

	<-stopped.Done()
	slog.Info("Price scheduler stopped")
}

// Cleanup removes price history older than the retention window.
func (s *Scheduler) Cleanup(ctx context.Context) {
	cutoff := s.now().Add(-s.conf.HistoryRetention)
	deleted, err := s.history.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("Error in cleanup job", slog.Any("err", err))
		return
	}
	metrics.HistoryCleanupDeleted.Add(float64(deleted))
	slog.Info("Cleaned up old price history records", slog.Int64("deleted", deleted), slog.Time("cutoff", cutoff))
}

// cronLogger routes cron's job bookkeeping to slog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	slog.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	slog.Error("cron: "+msg, append(keysAndValues, "err", err)...)
}
