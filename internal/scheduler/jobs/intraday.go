package jobs

import (
	"context"
	"time"

	"github.com/wonny/eds/backend/pkg/logger"
)

// 장중 첫 회차 (시장 타임존)
const (
	intradayStartHour   = 6
	intradayStartMinute = 30
)

// IntradayJob nowcasts tonight's and tomorrow morning's earnings every 30 minutes
// Schedule: 6:30 AM ~ 12:30 PM PT, weekdays
type IntradayJob struct {
	runner Runner
	logger *logger.Logger
	now    func() time.Time
}

// NewIntradayJob creates a new intraday job. now 는 시장 타임존 시각을 반환해야 함
func NewIntradayJob(runner Runner, now func() time.Time, log *logger.Logger) *IntradayJob {
	if now == nil {
		now = time.Now
	}
	return &IntradayJob{
		runner: runner,
		logger: log,
		now:    now,
	}
}

func (j *IntradayJob) Name() string {
	return "intraday"
}

func (j *IntradayJob) Schedule() string {
	return IntradaySchedule
}

// Run executes one intraday snapshot
func (j *IntradayJob) Run(ctx context.Context) error {
	now := j.now()
	if now.Hour() < intradayStartHour || (now.Hour() == intradayStartHour && now.Minute() < intradayStartMinute) {
		j.logger.Debug("Before intraday window, skipping")
		return nil
	}

	today := j.runner.Today()
	result, err := j.runner.RunIntraday(ctx, today)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"trade_date": today.Format(dateLayout),
		"events":     result.Events,
		"scored":     len(result.Records),
	}).Info("Scheduled intraday run completed")

	return nil
}
