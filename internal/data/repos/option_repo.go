package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/eds/backend/internal/contracts"
)

// OptionRepository implements contracts.OptionRepository
// ⭐ SSOT: option_contracts / option_snapshots 저장은 여기서만
type OptionRepository struct {
	pool *pgxpool.Pool
}

// NewOptionRepository creates a new option repository
func NewOptionRepository(pool *pgxpool.Pool) *OptionRepository {
	return &OptionRepository{pool: pool}
}

// UpsertContracts saves static contract metadata
func (r *OptionRepository) UpsertContracts(ctx context.Context, items []contracts.OptionContract) error {
	query := `
		INSERT INTO eds.option_contracts (option_symbol, underlying, expiry, strike, option_type, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (option_symbol) DO UPDATE SET
			underlying = EXCLUDED.underlying,
			expiry = EXCLUDED.expiry,
			strike = EXCLUDED.strike,
			option_type = EXCLUDED.option_type,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, c := range items {
		if c.OptionSymbol == "" {
			continue
		}
		batch.Queue(query, c.OptionSymbol, c.Underlying, contracts.DateOf(c.Expiry), c.Strike, string(c.Type))
	}

	return r.sendBatch(ctx, batch, "option contract")
}

// InsertSnapshot stores per-contract market data at snap.AsOf.
// 같은 (asof_ts, option_symbol) 은 무시
func (r *OptionRepository) InsertSnapshot(ctx context.Context, snap *contracts.ChainSnapshot) error {
	if snap.Empty() {
		return nil
	}

	query := `
		INSERT INTO eds.option_snapshots
			(asof_ts, option_symbol, underlying_px, bid, ask, last, iv, delta, gamma, theta, vega, volume, oi)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (asof_ts, option_symbol) DO NOTHING`

	batch := &pgx.Batch{}
	for _, c := range snap.Contracts {
		if c.OptionSymbol == "" {
			continue
		}
		batch.Queue(query, snap.AsOf, c.OptionSymbol, c.UnderlyingPrice,
			c.Bid, c.Ask, c.Price(), c.IV,
			c.Delta, c.Gamma, c.Theta, c.Vega,
			c.DayVolume, c.OpenInterest)
	}

	return r.sendBatch(ctx, batch, "option snapshot")
}

// LatestOpenInterest returns the newest non-null OI per option symbol strictly before asOf
func (r *OptionRepository) LatestOpenInterest(ctx context.Context, optionSymbols []string, asOf time.Time) (map[string]float64, error) {
	out := make(map[string]float64, len(optionSymbols))
	if len(optionSymbols) == 0 {
		return out, nil
	}

	query := `
		SELECT DISTINCT ON (option_symbol) option_symbol, oi
		FROM eds.option_snapshots
		WHERE option_symbol = ANY($1)
		  AND asof_ts < $2
		  AND oi IS NOT NULL
		ORDER BY option_symbol, asof_ts DESC`

	rows, err := r.pool.Query(ctx, query, optionSymbols, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to query open interest: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			symbol string
			oi     float64
		)
		if err := rows.Scan(&symbol, &oi); err != nil {
			return nil, fmt.Errorf("failed to scan open interest: %w", err)
		}
		out[symbol] = oi
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return out, nil
}

func (r *OptionRepository) sendBatch(ctx context.Context, batch *pgx.Batch, what string) error {
	n := batch.Len()
	if n == 0 {
		return nil
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to save %s: %w", what, err)
		}
	}
	return nil
}
