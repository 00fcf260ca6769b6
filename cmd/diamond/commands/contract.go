package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/diamond/internal/notify"
)

// contractCmd represents the contract command
var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "신호 계약 조회",
	Long: `현재 게시된 신호 계약(diamond_signal.json)을 읽어 출력합니다.

Example:
  go run ./cmd/diamond contract show`,
}

var contractShowCmd = &cobra.Command{
	Use:   "show",
	Short: "계약 메타 + 후보 목록",
	RunE:  showContract,
}

func init() {
	rootCmd.AddCommand(contractCmd)
	contractCmd.AddCommand(contractShowCmd)
}

func showContract(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	contract, err := a.contractReader().Load()
	if err != nil {
		return err
	}

	m := contract.Meta
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Signal Contract  %s\n", a.contractPath())
	PrintSeparator()
	PrintKeyValue("Contract ID", m.ContractID, 12)
	PrintKeyValue("Timestamp", m.Timestamp.In(a.cal.Location()).Format(time.RFC3339), 12)
	PrintKeyValue("Strategy", m.StrategyID, 12)
	PrintKeyValue("Config", shortHash(m.ConfigHash), 12)
	PrintKeyValue("Trend", string(m.Trend), 12)
	PrintKeyValue("Leader", m.SectorLeader, 12)
	PrintKeyValue("Dispersion", fmt.Sprintf("%.2f", m.Dispersion), 12)
	PrintKeyValue("KillSwitch", fmt.Sprint(m.KillSwitch), 12)
	PrintKeyValue("Protocol", string(m.Protocol), 12)
	PrintKeyValue("Count", fmt.Sprint(contract.Count), 12)
	PrintSeparator()

	if m.ConfigHash != "" && m.ConfigHash != a.configHash {
		PrintWarning("Contract was written under a different strategy config")
	}
	if contract.Count == 0 {
		PrintInfo("Contract has no candidates")
		return nil
	}
	return notify.CandidateTable(os.Stdout, contract.Universe)
}
