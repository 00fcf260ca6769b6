package commands

import (
	"fmt"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// quarantineCmd represents the quarantine command
var quarantineCmd = &cobra.Command{
	Use:   "quarantine",
	Short: "격리 목록 관리",
	Long: `데이터 오류로 격리된 종목을 조회/추가/해제합니다.

격리 기간(guard.quarantine.days)이 지나면 조회 시점에 자동 해제됩니다.

Subcommands:
  list     - 격리 목록
  add      - 종목 격리
  release  - 종목 즉시 해제

Example:
  go run ./cmd/diamond quarantine list
  go run ./cmd/diamond quarantine add TCS "manual"
  go run ./cmd/diamond quarantine release TCS`,
}

var (
	quarantineListCmd = &cobra.Command{
		Use:   "list",
		Short: "격리 목록",
		RunE:  listQuarantine,
	}

	quarantineAddCmd = &cobra.Command{
		Use:   "add [symbol] [reason]",
		Short: "종목 격리",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  addQuarantine,
	}

	quarantineReleaseCmd = &cobra.Command{
		Use:   "release [symbol]",
		Short: "종목 즉시 해제",
		Args:  cobra.ExactArgs(1),
		RunE:  releaseQuarantine,
	}
)

func init() {
	rootCmd.AddCommand(quarantineCmd)
	quarantineCmd.AddCommand(quarantineListCmd)
	quarantineCmd.AddCommand(quarantineAddCmd)
	quarantineCmd.AddCommand(quarantineReleaseCmd)
}

func listQuarantine(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	entries := a.quarantine.List()
	if len(entries) == 0 {
		PrintInfo("Quarantine is empty")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Symbol", "Jailed On", "Days Served", "Days Left")
	for _, e := range entries {
		left := a.strategy.Guard.Quarantine.Days - e.DaysServed
		if err := table.Append(e.Symbol, e.JailedOn, strconv.Itoa(e.DaysServed), strconv.Itoa(left)); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}

	fmt.Printf("\nTotal: %d symbols\n", len(entries))
	return nil
}

func addQuarantine(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	reason := "manual"
	if len(args) > 1 {
		reason = args[1]
	}
	if err := a.quarantine.Add(args[0], reason); err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s quarantined for %d days", args[0], a.strategy.Guard.Quarantine.Days))
	return nil
}

func releaseQuarantine(cmd *cobra.Command, args []string) error {
	a, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	released, err := a.quarantine.Release(args[0])
	if err != nil {
		return err
	}
	if !released {
		PrintWarning(fmt.Sprintf("%s is not quarantined", args[0]))
		return nil
	}

	PrintSuccess(fmt.Sprintf("%s released", args[0]))
	return nil
}
