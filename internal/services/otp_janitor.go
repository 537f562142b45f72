package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Purger removes expired OTP records.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// StartOTPJanitor schedules PurgeExpired on the given cron schedule
// (e.g. "@every 5m"). Stop the returned cron on shutdown.
func StartOTPJanitor(schedule string, purger Purger) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { runPurge(purger) }); err != nil {
		return nil, err
	}
	c.Start()
	logrus.WithField("schedule", schedule).Info("otp janitor started")
	return c, nil
}

func runPurge(purger Purger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := purger.PurgeExpired(ctx)
	if err != nil {
		logrus.WithError(err).Error("otp purge failed")
		return
	}
	if n > 0 {
		logrus.WithField("removed", n).Info("expired otp records purged")
	}
}
