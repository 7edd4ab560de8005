package loop

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler launches a session on trading weekdays via cron. The launch
// callback builds a fresh Session so each day gets its own window.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		logger: logger,
	}
}

// RegisterDaily registers the session launch under the given cron spec
// (with seconds field, e.g. "0 15 9 * * 1-5").
func (s *Scheduler) RegisterDaily(spec string, launch func()) error {
	if _, err := s.cron.AddFunc(spec, launch); err != nil {
		return fmt.Errorf("register session cron: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}
