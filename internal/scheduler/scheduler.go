package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Job is one factor rebuild.
type Job func(ctx context.Context) error

// Scheduler runs a job on a cron schedule. A tick that fires while the
// previous run is still going is dropped.
type Scheduler struct {
	Cron *cron.Cron
	Ctx  context.Context

	job     Job
	log     logrus.FieldLogger
	mu       sync.Mutex
	running  bool
	stopping bool
	wg       sync.WaitGroup
}

// NewScheduler creates a new Scheduler. Cron expressions carry a seconds field.
func NewScheduler(ctx context.Context, job Job, log logrus.FieldLogger) *Scheduler {
	return &Scheduler{
		Cron: cron.New(cron.WithSeconds()),
		Ctx:  ctx,
		job:  job,
		log:  log,
	}
}

// Register schedules the job.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.Cron.AddFunc(spec, func() { s.RunNow() }); err != nil {
		return fmt.Errorf("register rebuild task: %w", err)
	}
	s.log.WithField("cron", spec).Info("rebuild task registered")
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for a running job. RunNow refuses
// to start once Stop has been called.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopping = true
	s.mu.Unlock()
	<-s.Cron.Stop().Done()
	s.wg.Wait()
	s.log.Info("scheduler stopped")
}

// RunNow executes the job synchronously. It reports false when a run was
// already in progress or the scheduler is stopping.
func (s *Scheduler) RunNow() bool {
	s.mu.Lock()
	if s.stopping {
		s.mu.Unlock()
		s.log.Info("scheduler stopping, rebuild not started")
		return false
	}
	if s.running {
		s.mu.Unlock()
		s.log.Warn("previous rebuild still running, tick skipped")
		return false
	}
	s.running = true
	s.wg.Add(1)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		s.wg.Done()
	}()

	s.log.Info("running rebuild task")
	if err := s.job(s.Ctx); err != nil {
		s.log.WithError(err).Error("rebuild task")
	}
	return true
}
