package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ExpireJobName identifies the pending-payment sweep in job status output
const ExpireJobName = "expire_pending_payments"

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	lifecycle *LifecycleService
	schedule  string
	timeout   time.Duration
	logger    *logrus.Logger

	mu        sync.Mutex
	lastRun   time.Time
	lastCount int
	lastError string
}

// NewCronService creates a new CronService. schedule uses the six-field
// format with seconds; timeout of 0 disables the sweep.
func NewCronService(lifecycle *LifecycleService, schedule string, timeout time.Duration, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:      cron.New(cron.WithSeconds()),
		lifecycle: lifecycle,
		schedule:  schedule,
		timeout:   timeout,
		logger:    logger,
	}
}

// Start schedules all jobs and starts the scheduler
func (s *CronService) Start() error {
	if s.timeout <= 0 {
		s.logger.Info("Pending payment sweep disabled")
		return nil
	}

	// Cron format: second minute hour day month weekday
	_, err := s.cron.AddFunc(s.schedule, s.expirePendingPaymentsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule pending payment sweep: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"schedule": s.schedule,
		"timeout":  s.timeout.String(),
	}).Info("✓ Scheduled: Expire unpaid bookings")

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) expirePendingPaymentsJob() {
	if _, err := s.runExpire(); err != nil {
		s.logger.WithError(err).Error("[CRON] Failed to expire unpaid bookings")
	}
}

func (s *CronService) runExpire() (int, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := s.lifecycle.ExpirePendingPayments(ctx, s.timeout)

	s.mu.Lock()
	s.lastRun = start
	s.lastCount = count
	s.lastError = ""
	if err != nil {
		s.lastError = err.Error()
	}
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"expired":  count,
		"duration": time.Since(start).String(),
	}).Debug("[CRON] Pending payment sweep finished")
	return count, err
}

// RunExpirePendingNow runs the sweep immediately
func (s *CronService) RunExpirePendingNow() (int, error) {
	s.logger.Info("[MANUAL] Running pending payment sweep now...")
	if s.timeout <= 0 {
		return 0, nil
	}
	return s.runExpire()
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"name":     ExpireJobName,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last := map[string]interface{}{
		"expired": s.lastCount,
	}
	if !s.lastRun.IsZero() {
		last["ran_at"] = s.lastRun
	}
	if s.lastError != "" {
		last["error"] = s.lastError
	}

	return map[string]interface{}{
		"running":         len(entries) > 0,
		"job_count":       len(entries),
		"jobs":            jobs,
		"payment_timeout": s.timeout.String(),
		"last_sweep":      last,
	}
}
