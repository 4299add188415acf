package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/2679373161/AI-Trader/journal"
)

var (
	reportDBPath string
	reportCSV    string
)

var reportCmd = &cobra.Command{
	Use:   "report <agent-signature>",
	Short: "Report an agent's journaled trade history",
	Long: `Report reads the run journal and prints an agent's trade history, newest
last. With --csv, the history is written as CSV instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportDBPath, "db", "d", "./run.sqlite", "path to run journal")
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "write trade history to this CSV file")
}

func runReport(cmd *cobra.Command, args []string) error {
	sig := args[0]

	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	records, err := j.TradesByAgent(sig)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no trade records for agent %q", sig)
	}

	if reportCSV != "" {
		f, err := os.Create(reportCSV)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := journal.ExportTradesCSV(f, records); err != nil {
			return err
		}
		fmt.Printf("Wrote %d records to %s\n", len(records), reportCSV)
		return nil
	}

	fmt.Printf("Trade history for %s (%d records)\n\n", sig, len(records))
	for _, r := range records {
		switch r.Side {
		case "hold":
			fmt.Printf("%s  hold                     cash $%s\n",
				r.Date.Format("2006-01-02"), r.CashAfter.StringFixed(2))
		default:
			fmt.Printf("%s  %-4s %5d %-6s @ %-10s cash $%s\n",
				r.Date.Format("2006-01-02"), r.Side, r.Quantity, r.Symbol,
				r.Price.StringFixed(2), r.CashAfter.StringFixed(2))
		}
	}
	return nil
}
