package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// sweepTimeout bounds one retry sweep. Slow channels (browser automation)
// can take tens of seconds per message.
const sweepTimeout = 5 * time.Minute

// Sweeper is the dispatcher operation run on a schedule.
type Sweeper interface {
	RetryPending(ctx context.Context) (int, error)
}

type RetryScheduler struct {
	cronEngine *cron.Cron
	sweeper    Sweeper
	logger     *logrus.Entry
	cronSpec   string
}

// NewRetryScheduler creates the scheduler. A sweep still running when the next
// tick fires makes that tick a no-op.
func NewRetryScheduler(sweeper Sweeper, logger *logrus.Entry, cronSpec string) *RetryScheduler {
	cronLogger := cron.PrintfLogger(logger)
	return &RetryScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.Local),
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		sweeper:  sweeper,
		logger:   logger,
		cronSpec: cronSpec,
	}
}

func (s *RetryScheduler) Start() error {
	s.logger.WithField("spec", s.cronSpec).Info("Starting retry scheduler")

	if _, err := s.cronEngine.AddFunc(s.cronSpec, s.RunSweep); err != nil {
		return fmt.Errorf("could not add retry sweep cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Retry scheduler started")
	return nil
}

// RunSweep runs one retry sweep with its own deadline.
func (s *RetryScheduler) RunSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	start := time.Now()
	sent, err := s.sweeper.RetryPending(ctx)
	log := s.logger.WithFields(logrus.Fields{"sent": sent, "took": time.Since(start)})
	if err != nil {
		log.WithError(err).Error("Retry sweep failed")
		return
	}
	log.Debug("Retry sweep done")
}

func (s *RetryScheduler) Stop() {
	s.logger.Info("Stopping retry scheduler...")
	ctx := s.cronEngine.Stop() // waits for a running sweep
	<-ctx.Done()
	s.logger.Info("Retry scheduler gracefully stopped")
}
