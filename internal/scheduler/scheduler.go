package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

const jobTimeout = 4 * time.Minute

// Scheduler runs background jobs on cron schedules. A job still running
// when its next slot arrives is skipped.
type Scheduler struct {
	cron *cron.Cron
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)),
		),
	}
}

// Add registers job under spec. Each run gets its own timeout context.
func (s *Scheduler) Add(name, spec string, job func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			log.Printf("[scheduler] %s failed: %v", name, err)
			return
		}
		log.Printf("[scheduler] %s done in %s", name, time.Since(start).Round(time.Millisecond))
	})
	if err != nil {
		return err
	}
	log.Printf("[scheduler] %s scheduled %q", name, spec)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		log.Printf("[scheduler] stop timed out with jobs still running")
	}
}
