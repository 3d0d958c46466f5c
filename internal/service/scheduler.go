package service

import (
	"context"
	"time"

	"watopic/internal/constants"

	"github.com/sirupsen/logrus"
)

// CleanupTarget is one maintenance task the scheduler runs.
type CleanupTarget interface {
	CleanupOldRecords(retentionDays int) error
}

// CleanupFunc adapts a plain function to CleanupTarget.
type CleanupFunc func(retentionDays int) error

func (f CleanupFunc) CleanupOldRecords(retentionDays int) error {
	return f(retentionDays)
}

// Scheduler runs retention cleanup on a fixed interval: inactive
// conversation mappings are deactivated and stale temp artifacts removed.
type Scheduler struct {
	targets       []CleanupTarget
	retentionDays int
	intervalHours int
	logger        *logrus.Logger
	stopCh        chan struct{}
}

func NewScheduler(targets []CleanupTarget, retentionDays, intervalHours int, logger *logrus.Logger) *Scheduler {
	if intervalHours <= 0 {
		intervalHours = constants.CleanupSchedulerIntervalHours
	}
	if retentionDays <= 0 {
		retentionDays = constants.DefaultRetentionDays
	}
	return &Scheduler{
		targets:       targets,
		retentionDays: retentionDays,
		intervalHours: intervalHours,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.intervalHours) * time.Hour)
	defer ticker.Stop()

	s.logger.Info("Starting cleanup scheduler")

	s.runCleanup()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runCleanup() {
	s.logger.WithField("retentionDays", s.retentionDays).Info("Running scheduled cleanup")

	for _, target := range s.targets {
		if err := target.CleanupOldRecords(s.retentionDays); err != nil {
			s.logger.WithError(err).Error("Cleanup task failed")
		}
	}
}
