package database

import (
	"context"
	"fmt"
)

// schemaStatements creates the eds schema used by internal/data/repos.
// 순서 중요: 스키마 → 테이블 → 인덱스
var schemaStatements = []string{
	`CREATE SCHEMA IF NOT EXISTS eds`,

	`CREATE TABLE IF NOT EXISTS eds.earnings_events (
		symbol        TEXT        NOT NULL,
		earnings_date DATE        NOT NULL,
		earnings_ts   TIMESTAMPTZ NOT NULL,
		session       TEXT        NOT NULL DEFAULT 'amc',
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (symbol, earnings_date)
	)`,

	`CREATE TABLE IF NOT EXISTS eds.option_contracts (
		option_symbol TEXT PRIMARY KEY,
		underlying    TEXT             NOT NULL,
		expiry        DATE             NOT NULL,
		strike        DOUBLE PRECISION NOT NULL,
		option_type   TEXT             NOT NULL,
		updated_at    TIMESTAMPTZ      NOT NULL DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS eds.option_snapshots (
		asof_ts       TIMESTAMPTZ NOT NULL,
		option_symbol TEXT        NOT NULL,
		underlying_px DOUBLE PRECISION,
		bid           DOUBLE PRECISION,
		ask           DOUBLE PRECISION,
		last          DOUBLE PRECISION,
		iv            DOUBLE PRECISION,
		delta         DOUBLE PRECISION,
		gamma         DOUBLE PRECISION,
		theta         DOUBLE PRECISION,
		vega          DOUBLE PRECISION,
		volume        DOUBLE PRECISION,
		oi            DOUBLE PRECISION,
		PRIMARY KEY (asof_ts, option_symbol)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_option_snapshots_symbol_ts
		ON eds.option_snapshots (option_symbol, asof_ts DESC)`,

	`CREATE TABLE IF NOT EXISTS eds.daily_signals (
		trade_date      DATE NOT NULL,
		symbol          TEXT NOT NULL,
		event_expiry    DATE,
		spot_price      DOUBLE PRECISION,
		rr_25d          DOUBLE PRECISION,
		vol_pcr         DOUBLE PRECISION,
		notional_pcr    DOUBLE PRECISION,
		call_thrust     DOUBLE PRECISION,
		put_thrust      DOUBLE PRECISION,
		net_thrust      DOUBLE PRECISION,
		atm_iv_event    DOUBLE PRECISION,
		atm_iv_prev     DOUBLE PRECISION,
		atm_iv_next     DOUBLE PRECISION,
		iv_bump         DOUBLE PRECISION,
		spread_pct_atm  DOUBLE PRECISION,
		stock_return    DOUBLE PRECISION,
		sector_return   DOUBLE PRECISION,
		beta            DOUBLE PRECISION,
		beta_adj_return DOUBLE PRECISION,
		delta_oi_net    DOUBLE PRECISION,
		dirscore        DOUBLE PRECISION,
		decision        TEXT,
		direction       TEXT,
		conviction      TEXT,
		structure       TEXT,
		config_hash     TEXT,
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (trade_date, symbol)
	)`,

	`CREATE TABLE IF NOT EXISTS eds.intraday_signals (
		trade_date        DATE        NOT NULL,
		symbol            TEXT        NOT NULL,
		asof_ts           TIMESTAMPTZ NOT NULL,
		event_expiry      DATE,
		spot_price        DOUBLE PRECISION,
		rr_25d            DOUBLE PRECISION,
		net_thrust        DOUBLE PRECISION,
		vol_pcr           DOUBLE PRECISION,
		beta_adj_return   DOUBLE PRECISION,
		iv_bump           DOUBLE PRECISION,
		spread_pct_atm    DOUBLE PRECISION,
		z_rr_25d          DOUBLE PRECISION,
		z_net_thrust      DOUBLE PRECISION,
		z_vol_pcr         DOUBLE PRECISION,
		z_beta_adj_return DOUBLE PRECISION,
		pct_iv_bump       DOUBLE PRECISION,
		z_spread_pct_atm  DOUBLE PRECISION,
		call_volume       DOUBLE PRECISION,
		put_volume        DOUBLE PRECISION,
		total_volume      DOUBLE PRECISION,
		dirscore_now      DOUBLE PRECISION NOT NULL,
		dirscore_ewma     DOUBLE PRECISION NOT NULL,
		decision          TEXT NOT NULL,
		structure         TEXT NOT NULL,
		direction         TEXT NOT NULL,
		size_reduction    DOUBLE PRECISION NOT NULL DEFAULT 1.0,
		notes             TEXT,
		ewma_alpha        DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (trade_date, symbol, asof_ts)
	)`,

	`CREATE TABLE IF NOT EXISTS eds.oi_deltas (
		trade_date   DATE   NOT NULL,
		symbol       TEXT   NOT NULL,
		event_expiry DATE,
		d_oi_calls   BIGINT NOT NULL,
		d_oi_puts    BIGINT NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (trade_date, symbol)
	)`,
}

// Migrate creates the eds schema and tables if they do not exist.
// 모든 문장이 IF NOT EXISTS 이므로 반복 실행해도 안전
func (db *DB) Migrate(ctx context.Context) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, stmt := range schemaStatements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d failed: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}

	return nil
}
