package repos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/eds/backend/internal/contracts"
)

// EarningsRepository implements contracts.EarningsRepository
// ⭐ SSOT: earnings_events 저장/조회는 여기서만
type EarningsRepository struct {
	pool *pgxpool.Pool
	loc  *time.Location
}

// NewEarningsRepository creates a repository; timestamps are returned in loc
func NewEarningsRepository(pool *pgxpool.Pool, loc *time.Location) *EarningsRepository {
	if loc == nil {
		loc = time.UTC
	}
	return &EarningsRepository{pool: pool, loc: loc}
}

// UpsertBatch saves events keyed by (symbol, earnings_date)
func (r *EarningsRepository) UpsertBatch(ctx context.Context, events []contracts.EarningsEvent) error {
	if len(events) == 0 {
		return nil
	}

	query := `
		INSERT INTO eds.earnings_events (symbol, earnings_date, earnings_ts, session, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol, earnings_date) DO UPDATE SET
			earnings_ts = EXCLUDED.earnings_ts,
			session = EXCLUDED.session,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, e := range events {
		ts := e.EarningsTS.In(r.loc)
		batch.Queue(query, e.Symbol, contracts.DateOf(ts), ts, string(e.Session))
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for _, e := range events {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to upsert earnings %s: %w", e.Symbol, err)
		}
	}

	return nil
}

// ListByDateRange returns events with earnings_ts in [from, to)
func (r *EarningsRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]contracts.EarningsEvent, error) {
	query := `
		SELECT symbol, earnings_ts, session
		FROM eds.earnings_events
		WHERE earnings_ts >= $1 AND earnings_ts < $2
		ORDER BY earnings_ts, symbol`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings events: %w", err)
	}
	defer rows.Close()

	var events []contracts.EarningsEvent
	for rows.Next() {
		var (
			e       contracts.EarningsEvent
			session string
		)
		if err := rows.Scan(&e.Symbol, &e.EarningsTS, &session); err != nil {
			return nil, fmt.Errorf("failed to scan earnings event: %w", err)
		}
		e.EarningsTS = e.EarningsTS.In(r.loc)
		e.Session = contracts.Session(session)
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return events, nil
}
