package repos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/eds/backend/internal/contracts"
)

// IntradayRepository implements contracts.IntradayScoreRepository
// ⭐ SSOT: intraday_signals 저장/조회는 여기서만
type IntradayRepository struct {
	pool *pgxpool.Pool
}

// NewIntradayRepository creates a new intraday repository
func NewIntradayRepository(pool *pgxpool.Pool) *IntradayRepository {
	return &IntradayRepository{pool: pool}
}

const intradayColumns = `
	trade_date, symbol, asof_ts, event_expiry, spot_price,
	rr_25d, net_thrust, vol_pcr, beta_adj_return, iv_bump, spread_pct_atm,
	z_rr_25d, z_net_thrust, z_vol_pcr, z_beta_adj_return, pct_iv_bump, z_spread_pct_atm,
	call_volume, put_volume, total_volume,
	dirscore_now, dirscore_ewma, decision, structure, direction, size_reduction, notes, ewma_alpha`

// GetPrevious returns the latest score of the same trade date
func (r *IntradayRepository) GetPrevious(ctx context.Context, tradeDate time.Time, symbol string) (*contracts.PreviousIntradayScore, error) {
	query := `
		SELECT dirscore_now, dirscore_ewma
		FROM eds.intraday_signals
		WHERE trade_date = $1 AND symbol = $2
		ORDER BY asof_ts DESC
		LIMIT 1`

	var prev contracts.PreviousIntradayScore
	err := r.pool.QueryRow(ctx, query, contracts.DateOf(tradeDate), symbol).Scan(&prev.ScoreNow, &prev.ScoreEWMA)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contracts.ErrNoPrevious
		}
		return nil, fmt.Errorf("failed to get previous intraday score: %w", err)
	}

	return &prev, nil
}

// Save inserts one intraday row; 같은 asof_ts 재저장은 덮어씀
func (r *IntradayRepository) Save(ctx context.Context, rec *contracts.IntradaySignalRecord) error {
	query := `
		INSERT INTO eds.intraday_signals (` + intradayColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)
		ON CONFLICT (trade_date, symbol, asof_ts) DO UPDATE SET
			dirscore_now = EXCLUDED.dirscore_now,
			dirscore_ewma = EXCLUDED.dirscore_ewma,
			decision = EXCLUDED.decision,
			structure = EXCLUDED.structure,
			direction = EXCLUDED.direction,
			size_reduction = EXCLUDED.size_reduction,
			notes = EXCLUDED.notes`

	b := rec.Bundle
	z := func(f contracts.SignalField) *float64 { return rec.Normalized[f].Z }

	var notes *string
	if rec.State.Notes != "" {
		notes = &rec.State.Notes
	}

	_, err := r.pool.Exec(ctx, query,
		contracts.DateOf(rec.TradeDate), b.Symbol, rec.AsOf, dateOrNil(b.EventExpiry), b.SpotPrice,
		b.RR25, b.NetThrust, b.VolPCR, b.BetaAdjReturn, b.IVBump, b.SpreadPctATM,
		z(contracts.FieldRR25), z(contracts.FieldNetThrust), z(contracts.FieldVolPCR),
		z(contracts.FieldBetaAdjReturn), rec.Normalized[contracts.FieldIVBump].Pct, z(contracts.FieldSpreadPctATM),
		b.CallVolume, b.PutVolume, b.TotalVolume(),
		rec.State.ScoreNow, rec.State.ScoreEWMA, string(rec.State.Decision), string(rec.State.Structure),
		string(rec.State.Direction), rec.State.SizeReduction, notes, rec.EWMAAlpha,
	)
	if err != nil {
		return fmt.Errorf("failed to save intraday score %s: %w", b.Symbol, err)
	}

	return nil
}

// ListLatestByDate returns the newest row per symbol for tradeDate.
// symbol 이 주어지면 해당 심볼의 전체 이력 (asof_ts 오름차순)
func (r *IntradayRepository) ListLatestByDate(ctx context.Context, tradeDate time.Time, symbol string) ([]contracts.IntradaySignalRecord, error) {
	var (
		query string
		args  []interface{}
	)
	if symbol == "" {
		query = `
			SELECT DISTINCT ON (symbol) ` + intradayColumns + `
			FROM eds.intraday_signals
			WHERE trade_date = $1
			ORDER BY symbol, asof_ts DESC`
		args = []interface{}{contracts.DateOf(tradeDate)}
	} else {
		query = `
			SELECT ` + intradayColumns + `
			FROM eds.intraday_signals
			WHERE trade_date = $1 AND symbol = $2
			ORDER BY asof_ts`
		args = []interface{}{contracts.DateOf(tradeDate), symbol}
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query intraday scores: %w", err)
	}
	defer rows.Close()

	var records []contracts.IntradaySignalRecord
	for rows.Next() {
		var (
			rec                            contracts.IntradaySignalRecord
			zRR, zThrust, zPCR, zMom, zSpr *float64
			pctBump                        *float64
			callVol, putVol, totalVol      *float64
			decision, structure, direction string
			notes                          *string
		)
		b := &rec.Bundle

		err := rows.Scan(
			&rec.TradeDate, &b.Symbol, &rec.AsOf, &b.EventExpiry, &b.SpotPrice,
			&b.RR25, &b.NetThrust, &b.VolPCR, &b.BetaAdjReturn, &b.IVBump, &b.SpreadPctATM,
			&zRR, &zThrust, &zPCR, &zMom, &pctBump, &zSpr,
			&callVol, &putVol, &totalVol,
			&rec.State.ScoreNow, &rec.State.ScoreEWMA, &decision, &structure, &direction,
			&rec.State.SizeReduction, &notes, &rec.EWMAAlpha,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan intraday score: %w", err)
		}

		b.AsOf = rec.AsOf
		if callVol != nil {
			b.CallVolume = *callVol
		}
		if putVol != nil {
			b.PutVolume = *putVol
		}

		rec.Normalized = map[contracts.SignalField]contracts.NormalizedValue{
			contracts.FieldRR25:          {Z: zRR},
			contracts.FieldNetThrust:     {Z: zThrust},
			contracts.FieldVolPCR:        {Z: zPCR},
			contracts.FieldBetaAdjReturn: {Z: zMom},
			contracts.FieldIVBump:        {Pct: pctBump},
			contracts.FieldSpreadPctATM:  {Z: zSpr},
		}

		rec.State.Symbol = b.Symbol
		rec.State.TradeDate = rec.TradeDate
		rec.State.Decision = contracts.Decision(decision)
		rec.State.Structure = contracts.Structure(structure)
		rec.State.Direction = contracts.Direction(direction)
		rec.State.Notes = deref(notes)

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}
