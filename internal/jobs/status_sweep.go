package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/siaa/storage-rental/internal/config"
	"github.com/siaa/storage-rental/internal/service"
	"github.com/siaa/storage-rental/internal/utils"
)

const sweepTimeout = 2 * time.Minute

// Sweeper advances bookings whose dates have arrived or passed.
type Sweeper interface {
	SweepDue(ctx context.Context, now time.Time) (service.SweepResult, error)
}

// NewStatusSweep schedules the booking status sweep on a UTC cron.  The
// returned scheduler is not started.  Overlapping runs are skipped.
func NewStatusSweep(cfg config.SweepConfig, s Sweeper) (*cron.Cron, error) {
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	_, err := c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()
		RunSweep(ctx, s, time.Now().UTC())
	})
	if err != nil {
		return nil, fmt.Errorf("schedule status sweep %q: %w", cfg.Schedule, err)
	}
	return c, nil
}

// RunSweep runs one sweep and logs its outcome.
func RunSweep(ctx context.Context, s Sweeper, now time.Time) service.SweepResult {
	res, err := s.SweepDue(ctx, now)
	log := utils.Logger.WithFields(logrus.Fields{
		"activated": res.Activated,
		"completed": res.Completed,
	})
	if err != nil {
		log.WithError(err).Error("status sweep failed")
		return res
	}
	if res.Activated+res.Completed > 0 {
		log.Info("status sweep moved bookings")
	} else {
		log.Debug("status sweep: nothing due")
	}
	return res
}
