package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "EDS - 어닝 방향성 스코어 시스템",
	Long: `EDS (Earnings Directional Score) Unified CLI

미국 주식 어닝 이벤트의 옵션 체인으로 방향성 점수를 계산합니다.
장 마감 후 일간 점수, 개장 전 ΔOI 재점수, 장중 30분 nowcast.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant postclose --date 2025-10-29
  go run ./cmd/quant premarket
  go run ./cmd/quant intraday
  go run ./cmd/quant scheduler start
  go run ./cmd/quant api --port 8080
  go run ./cmd/quant migrate`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to load before the environment (default .env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
