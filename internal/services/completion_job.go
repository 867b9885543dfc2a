package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"rental-backend/internal/logger"
	"rental-backend/internal/timeutil"
)

const completionJobTimeout = 2 * time.Minute

// StartCompletionJob schedules the sweep that marks finished stays as completed.
// crontab is evaluated in Manila time. The returned scheduler must be shut down on exit.
func StartCompletionJob(bookings *BookingService, crontab string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(timeutil.Manila))
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	j, err := sched.NewJob(
		gocron.CronJob(crontab, false),
		gocron.NewTask(runCompletion, bookings),
		gocron.WithName("complete-elapsed-bookings"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("schedule completion job: %w", err)
	}

	sched.Start()
	logger.WithComponent("scheduler").Infof("Completion job %s scheduled (%s)", j.ID().String(), crontab)
	return sched, nil
}

func runCompletion(bookings *BookingService) {
	log := logger.WithComponent("scheduler")
	ctx, cancel := context.WithTimeout(context.Background(), completionJobTimeout)
	defer cancel()

	n, err := bookings.CompleteElapsed(ctx, timeutil.Today())
	if err != nil {
		log.WithError(err).Error("completion sweep failed")
		return
	}
	if n > 0 {
		log.Infof("Completed %d booking(s)", n)
	}
}
