package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/eds/backend/internal/contracts"
)

// DailySignalRepository implements contracts.DailySignalRepository
// ⭐ SSOT: daily_signals 저장/조회는 여기서만
type DailySignalRepository struct {
	pool *pgxpool.Pool
}

// NewDailySignalRepository creates a new daily signal repository
func NewDailySignalRepository(pool *pgxpool.Pool) *DailySignalRepository {
	return &DailySignalRepository{pool: pool}
}

const dailySignalColumns = `
	trade_date, symbol, event_expiry, spot_price,
	rr_25d, vol_pcr, notional_pcr, call_thrust, put_thrust, net_thrust,
	atm_iv_event, atm_iv_prev, atm_iv_next, iv_bump, spread_pct_atm,
	stock_return, sector_return, beta, beta_adj_return, delta_oi_net,
	dirscore, decision, direction, conviction, structure, config_hash, updated_at`

// UpsertBatch saves records keyed by (trade_date, symbol).
// 프리마켓 재실행은 같은 키를 덮어씀
func (r *DailySignalRepository) UpsertBatch(ctx context.Context, records []contracts.DailySignalRecord) error {
	if len(records) == 0 {
		return nil
	}

	query := `
		INSERT INTO eds.daily_signals (` + dailySignalColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
		        $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, NOW())
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			event_expiry = EXCLUDED.event_expiry,
			spot_price = EXCLUDED.spot_price,
			rr_25d = EXCLUDED.rr_25d,
			vol_pcr = EXCLUDED.vol_pcr,
			notional_pcr = EXCLUDED.notional_pcr,
			call_thrust = EXCLUDED.call_thrust,
			put_thrust = EXCLUDED.put_thrust,
			net_thrust = EXCLUDED.net_thrust,
			atm_iv_event = EXCLUDED.atm_iv_event,
			atm_iv_prev = EXCLUDED.atm_iv_prev,
			atm_iv_next = EXCLUDED.atm_iv_next,
			iv_bump = EXCLUDED.iv_bump,
			spread_pct_atm = EXCLUDED.spread_pct_atm,
			stock_return = EXCLUDED.stock_return,
			sector_return = EXCLUDED.sector_return,
			beta = EXCLUDED.beta,
			beta_adj_return = EXCLUDED.beta_adj_return,
			delta_oi_net = EXCLUDED.delta_oi_net,
			dirscore = EXCLUDED.dirscore,
			decision = EXCLUDED.decision,
			direction = EXCLUDED.direction,
			conviction = EXCLUDED.conviction,
			structure = EXCLUDED.structure,
			config_hash = EXCLUDED.config_hash,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, rec := range records {
		b := rec.Bundle
		batch.Queue(query,
			contracts.DateOf(rec.TradeDate), b.Symbol, dateOrNil(b.EventExpiry), b.SpotPrice,
			b.RR25, b.VolPCR, b.NotionalPCR, b.CallThrust, b.PutThrust, b.NetThrust,
			b.ATMIVEvent, b.ATMIVPrev, b.ATMIVNext, b.IVBump, b.SpreadPctATM,
			b.StockReturn, b.SectorReturn, b.Beta, b.BetaAdjReturn, b.DeltaOINet,
			rec.Score, string(rec.Decision), string(rec.Direction), string(rec.Conviction),
			string(rec.Structure), rec.ConfigHash,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, rec := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert daily signal %s: %w", rec.Symbol(), err)
		}
	}

	return nil
}

// ListByDate returns all rows of a trade date ordered by |dirscore| desc
func (r *DailySignalRepository) ListByDate(ctx context.Context, tradeDate time.Time) ([]contracts.DailySignalRecord, error) {
	query := `
		SELECT ` + dailySignalColumns + `
		FROM eds.daily_signals
		WHERE trade_date = $1
		ORDER BY ABS(dirscore) DESC NULLS LAST, symbol`

	return r.query(ctx, query, contracts.DateOf(tradeDate))
}

// Get returns the row of (tradeDate, symbol)
func (r *DailySignalRepository) Get(ctx context.Context, tradeDate time.Time, symbol string) (*contracts.DailySignalRecord, error) {
	query := `
		SELECT ` + dailySignalColumns + `
		FROM eds.daily_signals
		WHERE trade_date = $1 AND symbol = $2`

	records, err := r.query(ctx, query, contracts.DateOf(tradeDate), symbol)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, contracts.ErrNotFound
	}
	return &records[0], nil
}

// ListBySymbol returns one symbol's rows with trade_date in [from, to), ascending
func (r *DailySignalRepository) ListBySymbol(ctx context.Context, symbol string, from, to time.Time) ([]contracts.DailySignalRecord, error) {
	query := `
		SELECT ` + dailySignalColumns + `
		FROM eds.daily_signals
		WHERE symbol = $1 AND trade_date >= $2 AND trade_date < $3
		ORDER BY trade_date`

	return r.query(ctx, query, symbol, contracts.DateOf(from), contracts.DateOf(to))
}

func (r *DailySignalRepository) query(ctx context.Context, query string, args ...interface{}) ([]contracts.DailySignalRecord, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily signals: %w", err)
	}
	defer rows.Close()

	var records []contracts.DailySignalRecord
	for rows.Next() {
		var (
			rec                                            contracts.DailySignalRecord
			score                                          *float64
			decision, direction, conviction, structure, ch *string
		)
		b := &rec.Bundle

		err := rows.Scan(
			&rec.TradeDate, &b.Symbol, &b.EventExpiry, &b.SpotPrice,
			&b.RR25, &b.VolPCR, &b.NotionalPCR, &b.CallThrust, &b.PutThrust, &b.NetThrust,
			&b.ATMIVEvent, &b.ATMIVPrev, &b.ATMIVNext, &b.IVBump, &b.SpreadPctATM,
			&b.StockReturn, &b.SectorReturn, &b.Beta, &b.BetaAdjReturn, &b.DeltaOINet,
			&score, &decision, &direction, &conviction, &structure, &ch, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily signal: %w", err)
		}

		if score != nil {
			rec.Score = *score
		}
		rec.Decision = contracts.Decision(deref(decision))
		rec.Direction = contracts.Direction(deref(direction))
		rec.Conviction = contracts.Conviction(deref(conviction))
		rec.Structure = contracts.Structure(deref(structure))
		rec.ConfigHash = deref(ch)
		b.AsOf = rec.UpdatedAt

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return records, nil
}

func dateOrNil(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := contracts.DateOf(*t)
	return &d
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
