package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	appcap "github.com/tourops/backend/internal/application/capacity"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusPartial JobStatus = "PARTIAL"
	JobStatusFailed  JobStatus = "FAILED"
	JobStatusSkipped JobStatus = "SKIPPED"
)

// SyncJob is one scheduled reconciliation of a tenant's catalog
type SyncJob struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Force       bool
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	Report      *appcap.SyncReport
}

// NewSyncJob creates a pending job for a tenant
func NewSyncJob(tenantID uuid.UUID, force bool) *SyncJob {
	return &SyncJob{
		ID:       uuid.New(),
		TenantID: tenantID,
		Force:    force,
		Status:   JobStatusPending,
	}
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete records the report; per-item errors make the job partial
func (j *SyncJob) Complete(report *appcap.SyncReport) {
	now := time.Now()
	j.CompletedAt = &now
	j.Report = report
	if report != nil && report.Errors > 0 {
		j.Status = JobStatusPartial
		return
	}
	j.Status = JobStatusSuccess
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Skip marks the job as not run because another sync was active
func (j *SyncJob) Skip() {
	now := time.Now()
	j.Status = JobStatusSkipped
	j.CompletedAt = &now
}

// Syncer runs tenant-wide reconciliations
type Syncer interface {
	SyncAll(ctx context.Context, req appcap.SyncRequest) (*appcap.SyncReport, error)
	Status() appcap.SyncStatus
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled    bool
	Workers    int
	JobTimeout time.Duration
	QueueSize  int
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    true,
		Workers:    2,
		JobTimeout: 10 * time.Minute,
		QueueSize:  100,
	}
}

// Validate checks the configuration
func (c SchedulerConfig) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	}
	if c.JobTimeout <= 0 {
		return fmt.Errorf("%w: job timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// JobListener is notified when a job reaches a final state
type JobListener func(job *SyncJob)

// SyncScheduler runs sync jobs on a bounded worker pool
type SyncScheduler struct {
	config   SchedulerConfig
	syncer   Syncer
	logger   *zap.Logger
	listener JobListener

	jobs      chan *SyncJob
	pending   atomic.Int64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewSyncScheduler creates a new scheduler instance
func NewSyncScheduler(config SchedulerConfig, syncer Syncer, logger *zap.Logger) (*SyncScheduler, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultSchedulerConfig().QueueSize
	}
	return &SyncScheduler{
		config: config,
		syncer: syncer,
		logger: logger.Named("sync-scheduler"),
		jobs:   make(chan *SyncJob, config.QueueSize),
	}, nil
}

// OnJobDone registers a listener for finished jobs. Call before Start.
func (s *SyncScheduler) OnJobDone(listener JobListener) {
	s.listener = listener
}

// Start starts the worker pool
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.Workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Sync scheduler started",
		zap.Int("workers", s.config.Workers),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels running jobs and waits for the workers or ctx
func (s *SyncScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.cancel()
	close(s.jobs)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Sync scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Sync scheduler stop timed out")
		return ctx.Err()
	}
}

// Submit queues a job without blocking
func (s *SyncScheduler) Submit(job *SyncJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return ErrSchedulerNotRunning
	}

	s.pending.Add(1)
	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
		)
		return nil
	default:
		s.pending.Add(-1)
		return ErrJobQueueFull
	}
}

// Pending returns the number of queued or running jobs
func (s *SyncScheduler) Pending() int64 {
	return s.pending.Load()
}

// Busy reports whether jobs are outstanding or any orchestrated sync is running in the process
func (s *SyncScheduler) Busy() bool {
	return s.pending.Load() > 0 || s.syncer.Status().Statistics.InProgress
}

func (s *SyncScheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-s.jobs:
			if !ok {
				return
			}
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *SyncScheduler) processJob(ctx context.Context, job *SyncJob, workerID int) {
	defer func() {
		s.pending.Add(-1)
		if s.listener != nil {
			s.listener(job)
		}
	}()

	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
	)

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	report, err := s.syncer.SyncAll(jobCtx, appcap.SyncRequest{TenantID: job.TenantID, Force: job.Force})
	switch {
	case errors.Is(err, appcap.ErrSyncInProgress):
		job.Skip()
		log.Info("Sync already in progress, job skipped")
	case err != nil:
		job.Report = report
		job.Fail(err.Error())
		log.Error("Sync job failed", zap.Error(err))
	default:
		job.Complete(report)
		log.Info("Sync job completed",
			zap.String("status", string(job.Status)),
			zap.Int("synced", report.Synced),
			zap.Int("errors", report.Errors),
			zap.Int("corrected", report.Corrected),
		)
	}
}
