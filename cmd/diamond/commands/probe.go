package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/diamond/internal/s0_guard"
)

// probeCmd runs the S0 health probe alone
var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "가격 소스 헬스 프로브",
	Long: `기준 종목(guard.health_probe.symbol) 1건을 조회해
가격 소스가 살아있는지 확인합니다. 실패 시 종료 코드 1.

Example:
  go run ./cmd/diamond probe`,
	RunE: runProbe,
}

func init() {
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.strategy.Guard.HealthProbe
	probe := s0_guard.NewHealthProbe(a.yahoo, cfg, a.log)
	if !probe.Probe(cmd.Context()) {
		PrintError(fmt.Sprintf("Health probe failed (%s, %s)", cfg.Symbol, cfg.Period))
		return fmt.Errorf("health probe failed")
	}

	PrintSuccess(fmt.Sprintf("Price source healthy (%s, %s)", cfg.Symbol, cfg.Period))
	return nil
}
