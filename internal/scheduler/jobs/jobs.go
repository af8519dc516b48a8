package jobs

import (
	"context"
	"time"

	"github.com/wonny/eds/backend/internal/brain"
)

// Runner is the part of the orchestrator the scheduled jobs drive
type Runner interface {
	Today() time.Time
	RunPostClose(ctx context.Context, tradeDate time.Time) (*brain.PostCloseResult, error)
	RunPreMarket(ctx context.Context, tradeDate time.Time) (*brain.PreMarketResult, error)
	RunIntraday(ctx context.Context, tradeDate time.Time) (*brain.IntradayResult, error)
}

// 스케줄 (초 포함, 시장 타임존 America/Los_Angeles)
const (
	PostCloseSchedule = "0 30 13 * * MON-FRI" // 장 마감 30분 후
	PreMarketSchedule = "0 0 6 * * MON-FRI"   // 개장 30분 전
	// 06:30 ~ 12:30 30분 간격. 06:00 회차는 Run 에서 건너뜀
	IntradaySchedule = "0 0,30 6-12 * * MON-FRI"
)

const dateLayout = "2006-01-02"
