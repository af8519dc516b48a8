package jobs

import (
	"context"

	"github.com/wonny/eds/backend/internal/brain"
	"github.com/wonny/eds/backend/pkg/logger"
)

// PreMarketJob refreshes ΔOI for the previous trade date's signals
// Schedule: 6:00 AM PT, weekdays
type PreMarketJob struct {
	runner Runner
	logger *logger.Logger
}

// NewPreMarketJob creates a new pre-market job
func NewPreMarketJob(runner Runner, log *logger.Logger) *PreMarketJob {
	return &PreMarketJob{
		runner: runner,
		logger: log,
	}
}

func (j *PreMarketJob) Name() string {
	return "pre_market"
}

func (j *PreMarketJob) Schedule() string {
	return PreMarketSchedule
}

// Run re-scores the signals stored by the last post-close run
func (j *PreMarketJob) Run(ctx context.Context) error {
	// 월요일이면 금요일 시그널
	tradeDate := brain.PreviousTradeDate(j.runner.Today())
	j.logger.WithField("trade_date", tradeDate.Format(dateLayout)).Info("Starting scheduled pre-market run")

	result, err := j.runner.RunPreMarket(ctx, tradeDate)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"signals":  result.Signals,
		"deltas":   len(result.Deltas),
		"rescored": len(result.Records),
	}).Info("Scheduled pre-market run completed")

	return nil
}
