package ledger

import "fmt"

// Replay applies records to initial and returns the resulting position.
// Each record's CashAfter is cross-checked against the recomputed balance,
// so a journal edited or corrupted after the fact fails loudly instead of
// resuming a run on wrong numbers.
func Replay(initial Position, records []TradeRecord) (Position, error) {
	pos := initial.clone()

	for i, rec := range records {
		switch rec.Side {
		case Buy:
			pos.Cash = pos.Cash.Sub(rec.Cost())
			pos.Holdings[rec.Symbol] += rec.Quantity
		case Sell:
			pos.Cash = pos.Cash.Add(rec.Cost())
			pos.Holdings[rec.Symbol] -= rec.Quantity
		case Hold:
		default:
			return Position{}, fmt.Errorf("ledger: replay record %d: unknown side %q", i, rec.Side)
		}

		if !rec.CashAfter.Equal(pos.Cash) {
			return Position{}, fmt.Errorf("%w: replay record %d (%s): cash %s, record says %s",
				ErrIntegrity, i, rec.ID, pos.Cash, rec.CashAfter)
		}
	}

	for sym, n := range pos.Holdings {
		if n == 0 {
			delete(pos.Holdings, sym)
		}
	}
	return pos, nil
}

// Equal reports whether two positions hold the same cash and shares.
func Equal(a, b Position) bool {
	if !a.Cash.Equal(b.Cash) {
		return false
	}
	return sameHoldings(a.Holdings, b.Holdings)
}

func sameHoldings(a, b map[string]int64) bool {
	for sym, n := range a {
		if n != 0 && b[sym] != n {
			return false
		}
	}
	for sym, n := range b {
		if n != 0 && a[sym] != n {
			return false
		}
	}
	return true
}
