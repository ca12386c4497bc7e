package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pruner removes favorites whose content is gone
type Pruner interface {
	PruneDangling(ctx context.Context) (int, error)
}

// Warmer refills the query cache
type Warmer interface {
	Warm(ctx context.Context) error
}

// Schedules holds the cron expressions of each job
type Schedules struct {
	Prune     string
	CacheWarm string
}

// Scheduler manages scheduled tasks
type Scheduler struct {
	cron      *cron.Cron
	pruner    Pruner
	warmer    Warmer
	schedules Schedules
	logger    *logrus.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler creates a new scheduler
func NewScheduler(pruner Pruner, warmer Warmer, schedules Schedules, logger *logrus.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(),
		pruner:    pruner,
		warmer:    warmer,
		schedules: schedules,
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start registers the jobs and starts the scheduler
func (s *Scheduler) Start() error {
	s.logger.Info("Starting scheduler")

	_, err := s.cron.AddFunc(s.schedules.Prune, func() {
		s.RunPrune()
	})
	if err != nil {
		return fmt.Errorf("failed to add prune job: %w", err)
	}

	_, err = s.cron.AddFunc(s.schedules.CacheWarm, func() {
		s.RunCacheWarm()
	})
	if err != nil {
		return fmt.Errorf("failed to add cache warm job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"prune":      s.schedules.Prune,
		"cache_warm": s.schedules.CacheWarm,
	}).Info("Scheduler started")

	// Run both jobs once immediately
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunPrune()
		s.RunCacheWarm()
	}()

	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	s.cancel()
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

// RunPrune executes the dangling favorite cleanup job
func (s *Scheduler) RunPrune() {
	s.logger.Debug("Running scheduled prune")

	pruned, err := s.pruner.PruneDangling(s.ctx)
	if err != nil {
		s.logger.WithError(err).Error("Prune job failed")
		return
	}
	s.logger.WithField("pruned", pruned).Debug("Prune job completed successfully")
}

// RunCacheWarm executes the cache warm job
func (s *Scheduler) RunCacheWarm() {
	s.logger.Debug("Running scheduled cache warm")

	if err := s.warmer.Warm(s.ctx); err != nil {
		s.logger.WithError(err).Error("Cache warm job failed")
		return
	}
	s.logger.Debug("Cache warm job completed successfully")
}
