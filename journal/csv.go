package journal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/2679373161/AI-Trader/ledger"
)

var tradeHeader = []string{
	"trade_id", "agent", "date", "symbol", "side", "quantity",
	"price", "cash_after", "holdings_after",
}

// ExportTradesCSV writes an agent's trade history as CSV, one row per trade
// record, in the same column order the SQLite schema uses.
func ExportTradesCSV(w io.Writer, records []ledger.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tradeHeader); err != nil {
		return err
	}

	for _, t := range records {
		holdings, err := json.Marshal(t.HoldingsAfter)
		if err != nil {
			return fmt.Errorf("journal: trade %s: %w", t.ID, err)
		}
		row := []string{
			t.ID,
			t.Agent,
			t.Date.UTC().Format(time.RFC3339),
			t.Symbol,
			string(t.Side),
			strconv.FormatInt(t.Quantity, 10),
			t.Price.String(),
			t.CashAfter.String(),
			string(holdings),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
