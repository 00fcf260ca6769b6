package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/diamond/internal/execution"
	"github.com/wonny/diamond/internal/notify"
)

// executionCmd represents the execution command
var executionCmd = &cobra.Command{
	Use:   "execution",
	Short: "실행 단계 (계약 → 실시간 셋업)",
	Long: `계약 파일을 읽어 실시간 가격으로 셋업을 재계산하고
알림 전송 + 실행 기록(중복 제거)을 수행합니다.

Example:
  go run ./cmd/diamond execution run`,
}

var executionRunCmd = &cobra.Command{
	Use:   "run",
	Short: "실행 단계 즉시 실행",
	RunE:  runExecution,
}

func init() {
	rootCmd.AddCommand(executionCmd)
	executionCmd.AddCommand(executionRunCmd)
}

func runExecution(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, closer, err := a.executionEngine(ctx)
	if err != nil {
		return err
	}
	defer closer.Close()

	now := a.cal.Now()
	PrintStageHeader(StageHeader{
		Title:     "Diamond Execution Run",
		RunID:     a.cal.RunID(now),
		Timestamp: now.Format(time.RFC3339),
	})

	start := time.Now()
	result, err := engine.Run(ctx)
	if err != nil {
		return err
	}

	printExecutionResult(result)
	PrintCompletion("Execution run", time.Since(start).Seconds())
	return nil
}

func printExecutionResult(result *execution.Result) {
	PrintKeyValue("Contract", result.ContractID, 10)
	PrintKeyValue("Loaded", fmt.Sprint(result.Loaded), 10)
	PrintKeyValue("Refined", fmt.Sprint(len(result.Setups)), 10)
	PrintKeyValue("Shown", fmt.Sprint(result.Shown), 10)
	PrintKeyValue("Hidden", fmt.Sprint(result.Hidden), 10)
	PrintKeyValue("Appended", fmt.Sprint(result.Gate.Appended), 10)
	PrintKeyValue("Dropped", fmt.Sprint(result.Gate.Dropped), 10)
	PrintSeparator()

	if len(result.Setups) == 0 {
		PrintInfo("No setups passed live refinement")
	} else if err := notify.SetupTable(os.Stdout, result.Setups); err != nil {
		PrintError(err.Error())
	}

	if len(result.Rejected) > 0 {
		fmt.Println()
		items := make([]string, len(result.Rejected))
		for i, r := range result.Rejected {
			items[i] = fmt.Sprintf("%s (%d): %s", r.Symbol, r.Score, r.Reason)
		}
		PrintList(items)
	}
	if result.Gate.FailOpen {
		PrintWarning("Existing record keys unavailable; all rows appended")
	}
}
