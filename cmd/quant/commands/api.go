package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/eds/backend/internal/api"
	"github.com/wonny/eds/backend/internal/api/handlers"
	"github.com/wonny/eds/backend/pkg/config"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `저장된 점수를 조회하는 REST API 서버를 시작합니다.

Endpoints:
  GET /health                                  - Health check (DB ping)
  GET /metrics                                 - Prometheus metrics
  GET /api/signals/daily?date=YYYY-MM-DD       - 일간 점수 (|score| 내림차순)
  GET /api/signals/intraday?date=&symbol=      - 장중 점수 (심볼별 최신 / 심볼 이력)
  GET /api/events?date=YYYY-MM-DD              - 어닝 이벤트
  GET /api/oi-deltas?date=YYYY-MM-DD           - 개장 전 ΔOI

Example:
  go run ./cmd/quant api
  go run ./cmd/quant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== EDS API Server ===")

	a, err := newStorageApp(func(cfg *config.Config) {
		if apiPort != "" {
			cfg.Port = apiPort
		}
	})
	if err != nil {
		return err
	}
	defer a.Close()

	handler := handlers.NewSignalHandler(handlers.Repos{
		Daily:    a.dailyRepo,
		Intraday: a.intradayRepo,
		Earnings: a.earningsRepo,
		OIDeltas: a.oiDeltaRepo,
	}, a.location, a.log)

	router := api.NewRouter(handler, a.db, a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	ctx, cancel := signalContext()
	defer cancel()

	if err := server.Run(ctx, 30*time.Second); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
