package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "diamond",
	Short: "Diamond - NSE 스윙 셋업 파이프라인",
	Long: `Diamond Unified CLI

NSE 종목 대상 일일 전략 + 장중 실행 파이프라인.
S0 가드 → S1 유니버스 → S2 섹터 레짐 → S3 스코어링 → S4 계약 → 실행.

Usage:
  go run ./cmd/diamond [command]

Examples:
  go run ./cmd/diamond probe
  go run ./cmd/diamond strategy run
  go run ./cmd/diamond execution run
  go run ./cmd/diamond scheduler start`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default is STRATEGY_CONFIG_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
