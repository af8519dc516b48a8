package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/eds/backend/internal/contracts"
)

// OIDeltaRepository implements contracts.OIDeltaRepository
type OIDeltaRepository struct {
	pool *pgxpool.Pool
}

// NewOIDeltaRepository creates a new ΔOI repository
func NewOIDeltaRepository(pool *pgxpool.Pool) *OIDeltaRepository {
	return &OIDeltaRepository{pool: pool}
}

// Upsert saves one ΔOI row keyed by (trade_date, symbol)
func (r *OIDeltaRepository) Upsert(ctx context.Context, delta contracts.OIDelta) error {
	query := `
		INSERT INTO eds.oi_deltas (trade_date, symbol, event_expiry, d_oi_calls, d_oi_puts, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (trade_date, symbol) DO UPDATE SET
			event_expiry = EXCLUDED.event_expiry,
			d_oi_calls = EXCLUDED.d_oi_calls,
			d_oi_puts = EXCLUDED.d_oi_puts,
			updated_at = NOW()`

	_, err := r.pool.Exec(ctx, query,
		contracts.DateOf(delta.TradeDate), delta.Symbol, dateOrNil(delta.EventExpiry),
		delta.CallsDelta, delta.PutsDelta,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert oi delta %s: %w", delta.Symbol, err)
	}
	return nil
}

// ListByDate returns all ΔOI rows of a trade date
func (r *OIDeltaRepository) ListByDate(ctx context.Context, tradeDate time.Time) ([]contracts.OIDelta, error) {
	query := `
		SELECT trade_date, symbol, event_expiry, d_oi_calls, d_oi_puts
		FROM eds.oi_deltas
		WHERE trade_date = $1
		ORDER BY symbol`

	rows, err := r.pool.Query(ctx, query, contracts.DateOf(tradeDate))
	if err != nil {
		return nil, fmt.Errorf("failed to query oi deltas: %w", err)
	}
	defer rows.Close()

	var deltas []contracts.OIDelta
	for rows.Next() {
		var d contracts.OIDelta
		if err := rows.Scan(&d.TradeDate, &d.Symbol, &d.EventExpiry, &d.CallsDelta, &d.PutsDelta); err != nil {
			return nil, fmt.Errorf("failed to scan oi delta: %w", err)
		}
		deltas = append(deltas, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return deltas, nil
}
