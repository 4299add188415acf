package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/2679373161/AI-Trader/gate"
)

// Position is one agent's cash balance and share counts. Values returned
// from the ledger are snapshots; mutating a snapshot never touches ledger
// state.
type Position struct {
	Cash     decimal.Decimal
	Holdings map[string]int64
}

// NewPosition returns a starting position with the given cash and no
// holdings.
func NewPosition(cash decimal.Decimal) Position {
	return Position{Cash: cash, Holdings: make(map[string]int64)}
}

func (p Position) clone() Position {
	h := make(map[string]int64, len(p.Holdings))
	for sym, n := range p.Holdings {
		if n != 0 {
			h[sym] = n
		}
	}
	return Position{Cash: p.Cash, Holdings: h}
}

// Shares returns the share count for symbol, zero if none held.
func (p Position) Shares(symbol string) int64 {
	return p.Holdings[symbol]
}

// Equity values the position at gated prices: cash plus the close of every
// held symbol as of the view's day. Symbols with no price history yet are
// valued at zero; that only happens when data starts after the position
// acquired them, which a well-formed run never does.
func (p Position) Equity(v *gate.View) decimal.Decimal {
	eq := p.Cash
	for sym, n := range p.Holdings {
		if n == 0 {
			continue
		}
		rec, err := v.Lookup(sym)
		if err != nil {
			continue
		}
		eq = eq.Add(rec.Close.Mul(decimal.NewFromInt(n)))
	}
	return eq
}
