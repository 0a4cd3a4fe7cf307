// Package scheduler runs the bot's daily jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"daily-losers-bot/internal/logger"
	"daily-losers-bot/internal/trace"
)

// Job is one scheduled unit of work.
type Job struct {
	Name string
	// Spec is a six-field cron expression (with seconds).
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler owns the cron instance. Overlapping invocations of the same job
// are skipped.
type Scheduler struct {
	cron *cron.Cron
	ctx  context.Context
	ids  map[string]cron.EntryID
}

func New(ctx context.Context, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	l := cronLogger{ctx: ctx}
	return &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		ctx: ctx,
		ids: make(map[string]cron.EntryID),
	}
}

// Register adds every job, failing on the first bad spec.
func (s *Scheduler) Register(jobs ...Job) error {
	for _, j := range jobs {
		if j.Spec == "" {
			continue
		}
		job := j
		id, err := s.cron.AddFunc(job.Spec, func() { s.runJob(job) })
		if err != nil {
			return fmt.Errorf("register %s task: %w", job.Name, err)
		}
		s.ids[job.Name] = id
	}
	return nil
}

func (s *Scheduler) runJob(j Job) {
	ctx, span := trace.StartSpan(s.ctx, "scheduler."+j.Name)
	defer span.End()

	start := time.Now()
	logger.Info(ctx, "Running scheduled job", "job", j.Name)
	if err := j.Run(ctx); err != nil {
		logger.ErrorWithErr(ctx, "Scheduled job failed", err, "job", j.Name, "duration_ms", time.Since(start).Milliseconds())
		return
	}
	logger.Info(ctx, "Scheduled job completed", "job", j.Name, "duration_ms", time.Since(start).Milliseconds())
}

// Next reports when the named job fires next.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	id, ok := s.ids[name]
	if !ok {
		return time.Time{}, false
	}
	e := s.cron.Entry(id)
	return e.Next, e.Valid()
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for name := range s.ids {
		next, _ := s.Next(name)
		logger.Info(s.ctx, "Scheduler started job", "job", name, "next", next)
	}
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

type cronLogger struct {
	ctx context.Context
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(l.ctx, "cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.ErrorWithErr(l.ctx, "cron: "+msg, err, keysAndValues...)
}
