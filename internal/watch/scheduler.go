package watch

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	apperrors "git.home.luguber.info/inful/packsmith/internal/errors"
)

// Scheduler triggers forced full rebuilds at a fixed cadence, independent of
// filesystem activity. It wraps gocron so the rebuild loop only deals with a
// plain callback.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates an idle scheduler. Call EveryDuration to register jobs
// and Start to begin executing them.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityFatal, "creating scheduler")
	}
	return &Scheduler{scheduler: s}, nil
}

// EveryDuration registers task to run every interval.
func (s *Scheduler) EveryDuration(name string, interval time.Duration, task func()) error {
	if interval <= 0 {
		return apperrors.InvalidArgument("schedule", "interval must be positive")
	}
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
	)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CategoryWatch, apperrors.SeverityError, "scheduling "+name)
	}
	return nil
}

// Start begins executing registered jobs.
func (s *Scheduler) Start() {
	slog.Debug("Starting scheduler")
	s.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs to finish.
func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}
