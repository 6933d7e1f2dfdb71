package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/quake-proxy/internal/logging"
)

// DefaultInterval is the feed refresh period when none is configured.
const DefaultInterval = 10 * time.Minute

// RefreshFunc runs one feed refresh. It should be the same path on-demand
// requests use so both share one write point into the cache.
type RefreshFunc func(ctx context.Context) error

// Scheduler periodically refreshes the earthquake feed.
type Scheduler struct {
	scheduler *gocron.Scheduler
	refresh   RefreshFunc
	interval  time.Duration
	timeout   time.Duration
}

// New creates a new Scheduler. timeout bounds how long one job waits for
// the refresh to finish.
func New(interval, timeout time.Duration, refresh RefreshFunc) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		refresh:   refresh,
		interval:  interval,
		timeout:   timeout,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens immediately to warm the cache.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	_, err := s.scheduler.Every(interval).SingletonMode().StartImmediately().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	logging.Info().Dur("interval", interval).Msg("scheduler: feed refresh job started")
	return nil
}

func (s *Scheduler) run() {
	timeout := s.timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	start := time.Now()
	if err := s.refresh(ctx); err != nil {
		// lastError already holds the failure; requests keep the stale snapshot.
		logging.Warn().Err(err).Msg("scheduler: feed refresh failed")
		return
	}
	logging.Debug().Dur("took", time.Since(start)).Msg("scheduler: feed refresh completed")
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
