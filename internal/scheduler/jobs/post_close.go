package jobs

import (
	"context"

	"github.com/wonny/eds/backend/pkg/logger"
)

// PostCloseJob scores upcoming earnings after the close
// Schedule: 1:30 PM PT, weekdays
type PostCloseJob struct {
	runner Runner
	logger *logger.Logger
}

// NewPostCloseJob creates a new post-close job
func NewPostCloseJob(runner Runner, log *logger.Logger) *PostCloseJob {
	return &PostCloseJob{
		runner: runner,
		logger: log,
	}
}

func (j *PostCloseJob) Name() string {
	return "post_close"
}

func (j *PostCloseJob) Schedule() string {
	return PostCloseSchedule
}

// Run executes the post-close run for today
func (j *PostCloseJob) Run(ctx context.Context) error {
	today := j.runner.Today()
	j.logger.WithField("trade_date", today.Format(dateLayout)).Info("Starting scheduled post-close run")

	result, err := j.runner.RunPostClose(ctx, today)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"events":    result.Events,
		"tradeable": result.Tradeable,
		"scored":    len(result.Records),
		"csv":       result.CSVPath,
	}).Info("Scheduled post-close run completed")

	return nil
}
