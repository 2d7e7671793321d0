package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ibeckermayer/verifyshot/internal/logging"
)

// Job represents a scheduled task
type Job func(ctx context.Context) error

// Scheduler manages periodic tasks
type Scheduler struct {
	mu         sync.Mutex
	cron       *cron.Cron
	jobs       map[string]cron.EntryID
	timezone   *time.Location
	jobTimeout time.Duration
	logger     *slog.Logger
}

// New creates a new scheduler with the given timezone.
// Each job invocation is bounded by jobTimeout.
func New(timezone string, jobTimeout time.Duration, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", timezone, err)
	}

	logger = logging.Component(logger, "scheduler")

	// A slow run must not pile up behind itself
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{logger})),
	)

	return &Scheduler{
		cron:       c,
		jobs:       make(map[string]cron.EntryID),
		timezone:   loc,
		jobTimeout: jobTimeout,
		logger:     logger,
	}, nil
}

// AddJob adds a job with a cron schedule
// schedule format: "*/30 * * * *" (every 30 minutes)
func (s *Scheduler) AddJob(name, schedule string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("job %s already scheduled", name)
	}

	entryID, err := s.cron.AddFunc(schedule, func() {
		s.execute(context.Background(), name, job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}

	s.jobs[name] = entryID
	s.logger.Info("added job", "job", name, "schedule", schedule)

	return nil
}

// AddIntervalJob adds a job that runs every minutes minutes
func (s *Scheduler) AddIntervalJob(name string, minutes int, job Job) error {
	if minutes <= 0 {
		return fmt.Errorf("invalid interval %d for job %s", minutes, name)
	}
	return s.AddJob(name, IntervalSchedule(minutes), job)
}

// IntervalSchedule turns a minute interval into a cron descriptor
func IntervalSchedule(minutes int) string {
	return fmt.Sprintf("@every %dm", minutes)
}

// execute runs one invocation of a job with timeout and logging
func (s *Scheduler) execute(parent context.Context, name string, job Job) error {
	ctx, cancel := context.WithTimeout(parent, s.jobTimeout)
	defer cancel()

	s.logger.Info("starting job", "job", name)
	start := time.Now()

	if err := job(ctx); err != nil {
		s.logger.Error("job failed", "job", name, "err", err)
		return err
	}
	s.logger.Info("job completed", "job", name, "took", time.Since(start).Round(time.Millisecond))
	return nil
}

// RemoveJob removes a scheduled job
func (s *Scheduler) RemoveJob(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.jobs[name]; ok {
		s.cron.Remove(entryID)
		delete(s.jobs, name)
		s.logger.Info("removed job", "job", name)
	}
}

// Start begins running scheduled jobs
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler", "timezone", s.timezone.String())
	s.cron.Start()
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("stopping scheduler")
	return s.cron.Stop()
}

// RunNow immediately executes a job outside the schedule
func (s *Scheduler) RunNow(ctx context.Context, name string, job Job) error {
	return s.execute(ctx, name, job)
}

// ListJobs returns info about scheduled jobs, sorted by name
func (s *Scheduler) ListJobs() []JobInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]JobInfo, 0, len(s.jobs))
	for name, entryID := range s.jobs {
		entry := s.cron.Entry(entryID)
		if !entry.Valid() {
			continue
		}
		infos = append(infos, JobInfo{
			Name:    name,
			NextRun: entry.Next,
			LastRun: entry.Prev,
		})
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// JobInfo contains information about a scheduled job
type JobInfo struct {
	Name    string
	NextRun time.Time
	LastRun time.Time
}

// cronLogger adapts slog to cron.Logger
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "err", err)...)
}
