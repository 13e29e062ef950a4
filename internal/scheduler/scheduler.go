package scheduler

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is a unit of background work. Jobs with an empty Schedule only run on
// demand through RunByName.
type Job interface {
	Name() string
	Schedule() string
	Execute(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedule. A job still running
// when its next tick fires is skipped for that tick.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger

	mu   sync.Mutex
	ctx  context.Context
	jobs []Job
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger: logger,
		ctx:    context.Background(),
	}
}

// Register adds job and schedules it when it has a schedule. An invalid
// schedule is reported and the job stays available on demand.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()

	schedule := job.Schedule()
	if schedule == "" {
		s.logger.Info("Registered on-demand job", zap.String("job", job.Name()))
		return nil
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.run(s.jobContext(), job)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", job.Name(), schedule, err)
	}

	s.logger.Info("Scheduled job", zap.String("job", job.Name()), zap.String("schedule", schedule))
	return nil
}

// Start runs scheduled jobs with ctx until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	count := len(s.jobs)
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("Scheduler started", zap.Int("jobs", count))
}

// Stop prevents new runs and waits for running jobs to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// RunByName executes the named job right away on the caller's goroutine.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	s.mu.Lock()
	var found Job
	for _, job := range s.jobs {
		if job.Name() == name {
			found = job
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("job %q is not registered", name)
	}
	return s.run(ctx, found)
}

func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}

func (s *Scheduler) jobContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) run(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name(), r)
			s.logger.Error("Job panicked", zap.String("job", job.Name()), zap.Any("panic", r))
		}
	}()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	s.logger.Debug("Starting job", zap.String("job", job.Name()))
	if err := job.Execute(ctx); err != nil {
		s.logger.Error("Job failed", zap.String("job", job.Name()), zap.Error(err))
		return err
	}
	s.logger.Debug("Job completed", zap.String("job", job.Name()))
	return nil
}
