package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/eds/backend/internal/brain"
	"github.com/wonny/eds/backend/pkg/config"
)

var (
	runDate      string
	runDaysAhead int
)

var postCloseCmd = &cobra.Command{
	Use:   "postclose",
	Short: "장 마감 후 일간 점수 계산",
	Long: `다가오는 어닝 이벤트의 일간 방향성 점수를 계산합니다.

이 명령어는:
- Finnhub 어닝 캘린더 조회 (trade_date ~ trade_date+days-ahead)
- 이벤트/이전/다음 만기 필터
- 옵션 체인 스냅샷 → 시그널 → 정규화 → 점수
- daily_signals 저장, predictions_YYYYMMDD.csv 출력

Example:
  go run ./cmd/quant postclose
  go run ./cmd/quant postclose --date 2025-10-29 --days-ahead 3`,
	RunE: runPostClose,
}

var preMarketCmd = &cobra.Command{
	Use:   "premarket",
	Short: "개장 전 ΔOI 재점수",
	Long: `전 거래일 daily_signals 의 ATM ±2 행사가 ΔOI 를 계산하고 재점수합니다.

--date 를 생략하면 전 거래일 (월요일이면 금요일).

Example:
  go run ./cmd/quant premarket
  go run ./cmd/quant premarket --date 2025-10-29`,
	RunE: runPreMarket,
}

var intradayCmd = &cobra.Command{
	Use:   "intraday",
	Short: "장중 nowcast 1회 실행",
	Long: `당일 13:00 이후, 익일 06:30 이전 어닝 종목의 장중 점수를 계산합니다.
같은 날 이전 점수와 EWMA 스무딩 후 intraday_signals 에 추가합니다.

Example:
  go run ./cmd/quant intraday`,
	RunE: runIntraday,
}

func init() {
	rootCmd.AddCommand(postCloseCmd)
	rootCmd.AddCommand(preMarketCmd)
	rootCmd.AddCommand(intradayCmd)

	for _, c := range []*cobra.Command{postCloseCmd, preMarketCmd, intradayCmd} {
		c.Flags().StringVar(&runDate, "date", "", "trade date (YYYY-MM-DD)")
	}
	postCloseCmd.Flags().IntVar(&runDaysAhead, "days-ahead", -1, "earnings lookahead in days (default EARNINGS_DAYS_AHEAD)")
}

// signalContext is cancelled on Ctrl+C / SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runPostClose(cmd *cobra.Command, args []string) error {
	var overrides []func(*config.Config)
	if cmd.Flags().Changed("days-ahead") {
		if runDaysAhead < 0 {
			return fmt.Errorf("--days-ahead must be >= 0")
		}
		overrides = append(overrides, func(cfg *config.Config) {
			cfg.Pipeline.DaysAhead = runDaysAhead
		})
	}

	a, err := newApp(overrides...)
	if err != nil {
		return err
	}
	defer a.Close()

	tradeDate, err := parseDateFlag(runDate, a.orchestrator.Today())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader("Post-Close Scoring", tradeDate, map[string]string{
		"Days Ahead":  strconv.Itoa(a.cfg.Pipeline.DaysAhead),
		"Config Hash": a.orchestrator.ConfigHash()[:12],
	}, "Days Ahead", "Config Hash")

	result, err := a.orchestrator.RunPostClose(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("post-close run: %w", err)
	}

	PrintKeyValue("Events", strconv.Itoa(result.Events), 10)
	PrintKeyValue("Tradeable", strconv.Itoa(result.Tradeable), 10)
	PrintKeyValue("Scored", strconv.Itoa(len(result.Records)), 10)
	if len(result.Records) > 0 {
		fmt.Println()
		PrintDailyTable(result.Records)
	}
	if result.CSVPath != "" {
		fmt.Println()
		PrintSuccess("Predictions written to " + result.CSVPath)
	}

	PrintJobCompletion("Post-close run", result.Duration)
	return nil
}

func runPreMarket(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tradeDate, err := parseDateFlag(runDate, brain.PreviousTradeDate(a.orchestrator.Today()))
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader("Pre-Market ΔOI", tradeDate, nil)

	result, err := a.orchestrator.RunPreMarket(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("pre-market run: %w", err)
	}

	PrintKeyValue("Signals", strconv.Itoa(result.Signals), 10)
	PrintKeyValue("ΔOI", strconv.Itoa(len(result.Deltas)), 10)
	if len(result.Records) == 0 {
		PrintWarning("No ΔOI available, daily scores unchanged")
	} else {
		fmt.Println()
		PrintDailyTable(result.Records)
	}

	PrintJobCompletion("Pre-market run", result.Duration)
	return nil
}

func runIntraday(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tradeDate, err := parseDateFlag(runDate, a.orchestrator.Today())
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	PrintJobHeader("Intraday Nowcast", tradeDate, nil)

	result, err := a.orchestrator.RunIntraday(ctx, tradeDate)
	if err != nil {
		return fmt.Errorf("intraday run: %w", err)
	}

	PrintKeyValue("Events", strconv.Itoa(result.Events), 10)
	PrintKeyValue("As Of", result.AsOf.In(a.location).Format("15:04:05 MST"), 10)
	if len(result.Records) > 0 {
		fmt.Println()
		PrintIntradayTable(result.Records)
	}

	PrintJobCompletion("Intraday run", result.Duration)
	return nil
}
