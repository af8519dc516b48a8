package commands

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/cobra"
)

// testDBCmd represents the test-db command
var testDBCmd = &cobra.Command{
	Use:   "test-db",
	Short: "PostgreSQL 연결 테스트",
	Long: `데이터베이스 연결을 테스트하고 풀 통계를 표시합니다.

이 명령어는:
- config에서 DATABASE_URL 로드
- Ping / Health Check
- Connection Pool 통계 표시

Example:
  go run ./cmd/quant test-db`,
	RunE: runTestDB,
}

func init() {
	rootCmd.AddCommand(testDBCmd)
}

func runTestDB(cmd *cobra.Command, args []string) error {
	fmt.Println("=== EDS Database Connection Test ===")

	a, err := newStorageApp()
	if err != nil {
		return fmt.Errorf("❌ %w", err)
	}
	defer a.Close()
	fmt.Printf("✅ Connected (ENV: %s, schema: %s)\n", a.cfg.Env, a.db.Schema)
	fmt.Printf("   Database URL: %s\n\n", maskPassword(a.cfg.Database.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		return fmt.Errorf("❌ Failed to ping database: %w", err)
	}
	fmt.Println("✅ Ping successful")

	status, err := a.db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("❌ Health check failed: %w", err)
	}

	fmt.Println("✅ Health Check Results:")
	PrintKeyValue("Healthy", fmt.Sprint(status.Healthy), 14)
	PrintKeyValue("Response Time", status.ResponseTime.String(), 14)
	PrintKeyValue("Timestamp", status.Timestamp.Format(time.RFC3339), 14)

	fmt.Println("\n📊 Connection Pool Statistics:")
	PrintKeyValue("Max", fmt.Sprint(status.Stats.MaxConns), 14)
	PrintKeyValue("Total", fmt.Sprint(status.Stats.TotalConns), 14)
	PrintKeyValue("Acquired", fmt.Sprint(status.Stats.AcquiredConns), 14)
	PrintKeyValue("Idle", fmt.Sprint(status.Stats.IdleConns), 14)
	PrintKeyValue("Acquire Count", fmt.Sprint(status.Stats.AcquireCount), 14)

	fmt.Println("\n✅ All tests passed!")
	return nil
}

// maskPassword hides the password of a postgres URL
func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}
