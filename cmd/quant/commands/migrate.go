package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 생성",
	Long: `DB_SCHEMA 스키마와 테이블을 생성합니다 (IF NOT EXISTS, 반복 실행 안전).

Tables:
  earnings_events, option_contracts, option_snapshots,
  daily_signals, intraday_signals, oi_deltas

Example:
  go run ./cmd/quant migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	a, err := newStorageApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := a.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Schema %s is up to date", a.db.Schema))
	return nil
}
