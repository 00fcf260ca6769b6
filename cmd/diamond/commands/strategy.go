package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/diamond/internal/brain"
	"github.com/wonny/diamond/internal/contracts"
	"github.com/wonny/diamond/internal/notify"
)

// strategyCmd represents the strategy command
var strategyCmd = &cobra.Command{
	Use:   "strategy",
	Short: "전략 단계 (S0-S4)",
	Long: `일일 전략 단계를 실행합니다.

S0 헬스 프로브 → S1 유니버스 수집 → S0 서킷 브레이커
→ S2 섹터 레짐 → S3 스코어링 → S4 계약 기록

Example:
  go run ./cmd/diamond strategy run`,
}

var strategyRunCmd = &cobra.Command{
	Use:   "run",
	Short: "전략 즉시 실행 (계약 파일 갱신)",
	RunE:  runStrategy,
}

func init() {
	rootCmd.AddCommand(strategyCmd)
	strategyCmd.AddCommand(strategyRunCmd)
}

func runStrategy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	now := a.cal.Now()
	PrintStageHeader(StageHeader{
		Title:      "Diamond Strategy Run",
		RunID:      a.cal.RunID(now),
		Timestamp:  now.Format(time.RFC3339),
		StrategyID: a.strategy.Meta.StrategyID,
		ConfigHash: a.configHash,
	})

	result, err := a.orchestrator().Run(ctx)
	if err != nil {
		if errors.Is(err, brain.ErrBreakerTripped) {
			PrintError(fmt.Sprintf("Circuit breaker tripped: %s", result.Decision.Summary()))
		}
		return err
	}

	printStrategyResult(result)
	return nil
}

func printStrategyResult(result *brain.RunResult) {
	if result.Outcome == contracts.OutcomeProbeFailed {
		PrintWarning("Health probe failed. Strategy run aborted without alert.")
		return
	}

	fmt.Println()
	for _, stage := range result.Stages {
		PrintKeyValue(stage.Label(), stageSummary(stage), 12)
	}
	if result.Decision != nil {
		PrintKeyValue("Failures", result.Decision.Summary(), 12)
		PrintKeyValue("Action", string(result.Decision.Action), 12)
	}
	PrintKeyValue("Trend", string(result.Market.Trend), 12)
	if result.Regime != nil {
		PrintKeyValue("Leader", result.Regime.Leader(), 12)
		PrintKeyValue("Dispersion", fmt.Sprintf("%.2f", result.Regime.Dispersion), 12)
		PrintKeyValue("KillSwitch", fmt.Sprint(result.Regime.KillSwitch), 12)
		PrintKeyValue("Protocol", string(result.Regime.Protocol), 12)
	}
	PrintKeyValue("Scored", fmt.Sprint(result.Scored), 12)
	PrintKeyValue("Rejected", fmt.Sprint(result.Rejected), 12)
	PrintKeyValue("Jailed", fmt.Sprint(result.Jailed), 12)
	PrintSeparator()

	if result.Contract != nil {
		if result.Contract.Count == 0 {
			PrintInfo("No candidate passed the score threshold")
		} else if err := notify.CandidateTable(os.Stdout, result.Contract.Universe); err != nil {
			PrintError(err.Error())
		}
	}

	PrintCompletion("Strategy run", result.Duration.Seconds())
}

// stageSummary renders one stage as "8 → 7 (12ms)"
func stageSummary(r contracts.PipelineResult) string {
	summary := fmt.Sprintf("%d → %d (%dms)", r.InputCount, r.OutputCount, r.Duration)
	if !r.Success() {
		summary += " " + string(r.Outcome)
	}
	return summary
}
