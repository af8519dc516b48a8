package s4_scoring

import (
	"math"
	"time"

	"github.com/wonny/eds/backend/internal/contracts"
	"github.com/wonny/eds/backend/internal/strategyconfig"
)

// ApplyIntradaySmoothing folds the new score into the day's EWMA and flags whipsaws.
// previous 가 nil 이면 첫 실행: ewma = now, whipsaw 없음
func ApplyIntradaySmoothing(symbol string, tradeDate time.Time, scored contracts.DirectionalScore, previous *contracts.PreviousIntradayScore, cfg strategyconfig.Smoothing) contracts.IntradayScoreState {
	state := contracts.IntradayScoreState{
		Symbol:        symbol,
		TradeDate:     contracts.DateOf(tradeDate),
		ScoreNow:      scored.Score,
		ScoreEWMA:     scored.Score,
		Direction:     scored.Direction,
		Decision:      scored.Decision,
		Structure:     scored.Structure,
		SizeReduction: 1.0,
	}

	if previous != nil {
		state.ScoreEWMA = cfg.EWMAAlpha*scored.Score + (1-cfg.EWMAAlpha)*previous.ScoreEWMA

		// 경계값 (정확히 delta) 은 whipsaw 아님
		if math.Abs(scored.Score-previous.ScoreNow) > cfg.WhipsawDelta {
			state.SizeReduction = cfg.WhipsawSizeReduction
			state.Notes = contracts.NoteWhipsawReduce
		}
	}

	if state.Decision == contracts.DecisionPass {
		state.Direction = contracts.DirectionNone
		state.Structure = contracts.StructureSkip
	}

	return state
}
